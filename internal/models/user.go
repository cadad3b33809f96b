package models

import "time"

// User - зарегистрированный пользователь
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	IsStaff      bool      `json:"isStaff"`
	DateJoined   time.Time `json:"dateJoined"`
}
