package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

type Credentials struct {
	Email    string
	Password string
}

type emailFinder interface {
	FindByEmail(ctx context.Context, email string) (store.User, error)
}

// Local verifies an email and password against the user store.
type Local struct {
	users emailFinder
}

func NewLocal(users emailFinder) *Local {
	if users == nil {
		panic("user store is required")
	}
	return &Local{users: users}
}

func (l *Local) Kind() StrategyKind {
	return KindLocal
}

// Authenticate returns the user whose email and password match c exactly. Unknown emails
// and wrong passwords fail with the same error.
func (l *Local) Authenticate(ctx context.Context, c Credentials) (store.User, error) {
	u, err := l.users.FindByEmail(ctx, c.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Debug("login rejected", "reason", "unknown email")
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, fmt.Errorf("find user: %w", err)
	}

	if !u.Password.IsSet() || !u.Password.Equal(c.Password) {
		slog.Debug("login rejected", "reason", "password mismatch", "user_id", u.ID)
		return store.User{}, ErrInvalidCredentials
	}

	return u, nil
}
