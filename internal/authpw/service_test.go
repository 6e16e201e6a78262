package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"workboard/api/internal/store"
)

type mockUserStore struct {
	users map[string]store.User // keyed by email
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return NewService(&mockUserStore{users: map[string]store.User{
		"ana@example.com": {
			ID:           "usr-1",
			DisplayName:  "Ana Marin",
			Email:        "ana@example.com",
			PasswordHash: string(hash),
			Role:         "frontdesk",
		},
	}})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("successful sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "ana@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "usr-1" {
			t.Errorf("expected usr-1, got %s", user.ID)
		}
		if user.Role != "frontdesk" {
			t.Errorf("expected frontdesk role, got %s", user.Role)
		}
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "  Ana@Example.COM ",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "usr-1" {
			t.Errorf("expected usr-1, got %s", user.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "ana@example.com",
			Password: "wrongpassword",
		})
		if err != ErrInvalidCredentials {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		if err != ErrInvalidCredentials {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, err := svc.SignIn(ctx, SignInRequest{}); err == nil {
			t.Error("expected error for missing fields")
		}
	})
}
