// Package authpw verifies email/password credentials against the user table.
// Accounts are provisioned by operators, so there is no self-service signup.
package authpw

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"workboard/api/internal/store"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so a caller cannot probe which emails exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore defines the storage interface for credential checks.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

// Service checks passwords with bcrypt.
type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignInRequest contains sign-in parameters.
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates a user by email and password.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return store.User{}, errors.New("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	return user, nil
}
