package models

import "time"

// Location - место, к которому привязан пост
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
}
