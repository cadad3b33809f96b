package blog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/MosinFAM/blogicum/internal/apperr"
	"github.com/MosinFAM/blogicum/internal/models"
	"github.com/MosinFAM/blogicum/internal/policy"
	"github.com/MosinFAM/blogicum/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = apperr.Invalid("invalid credentials", map[string]string{
	"username": "Please enter a correct username and password.",
})

// Register создаёт пользователя с bcrypt-хешем пароля
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.AddUser(ctx, models.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsStaff:      s.isStaff(in.Username),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Invalid("invalid form", map[string]string{
				"username": "A user with that username already exists.",
			})
		}
		return nil, fmt.Errorf("add user: %w", err)
	}
	log.Printf("User %s registered", user.Username)
	return &user, nil
}

// Authenticate проверяет логин и пароль
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}
	user, err := s.storage.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return user, nil
}

// EditProfile меняет имя и email; править можно только свой профиль
func (s *Service) EditProfile(ctx context.Context, actor *models.User, username string, in ProfileInput) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	target, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, lookupErr(err, "user")
	}
	if !policy.CanEditProfile(actor, target) {
		return nil, apperr.Forbidden("only the owner can edit this profile")
	}
	if err := s.validate(in, nil); err != nil {
		return nil, err
	}

	target.FirstName = in.FirstName
	target.LastName = in.LastName
	target.Email = in.Email
	if err := s.storage.UpdateUser(ctx, *target); err != nil {
		return nil, lookupErr(err, "user")
	}
	return target, nil
}
