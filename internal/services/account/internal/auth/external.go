package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx store.Store) error) error
}

// External turns a profile verified by an identity provider into a local user.
type External struct {
	users txRunner
}

func NewExternal(users txRunner) *External {
	if users == nil {
		panic("user store is required")
	}
	return &External{users: users}
}

func (e *External) Kind() StrategyKind {
	return KindExternal
}

// Authenticate finds the user linked to the provider identity, then a user with the
// verified email, and creates a public account without a password when neither exists.
// Found users get missing name and photo filled from the profile.
//
// A user matched only by email is linked only when it has no credential of its own.
// Nobody proved owning the address when it was registered, so a user with a password or
// another linked identity fails with ErrLinkRequiresLogin and must be linked through Link.
func (e *External) Authenticate(ctx context.Context, provider string, profile oauth.User) (store.User, error) {
	if provider == "" || profile.ID == "" {
		return store.User{}, ErrInvalidProfile
	}

	var usr store.User
	err := e.users.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.FindByExternalID(ctx, provider, profile.ID)
		if err == nil {
			usr, err = tx.Update(ctx, u.ID, fillFrom(provider, profile))
			return err
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find by external id: %w", err)
		}

		email := profile.VerifiedEmail()
		if email != "" {
			u, err = tx.FindByEmail(ctx, email)
			if err == nil {
				if u.Password.IsSet() || u.IsExternal() {
					return ErrLinkRequiresLogin
				}
				usr, err = tx.Update(ctx, u.ID, fillFrom(provider, profile))
				return err
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("find by email: %w", err)
			}
		}

		id, err := tx.Create(ctx, store.CreateUserRequest{
			Email:      email,
			Name:       profile.Name,
			Photo:      profile.Picture,
			IsPublic:   true,
			Provider:   provider,
			ExternalID: profile.ID,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		usr, err = tx.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return store.User{}, err
	}

	return usr, nil
}

// Link attaches the provider identity to userID, a user already signed in by other means.
// The user's email must be the verified email of the profile.
func (e *External) Link(ctx context.Context, userID int64, provider string, profile oauth.User) (store.User, error) {
	if provider == "" || profile.ID == "" {
		return store.User{}, ErrInvalidProfile
	}

	var usr store.User
	err := e.users.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("find by id: %w", err)
		}

		if email := profile.VerifiedEmail(); email == "" || email != u.Email {
			return ErrLinkRequiresLogin
		}

		usr, err = tx.Update(ctx, u.ID, fillFrom(provider, profile))
		return err
	})
	if err != nil {
		return store.User{}, err
	}

	return usr, nil
}

func fillFrom(provider string, profile oauth.User) func(u *store.User) error {
	return func(u *store.User) error {
		if u.Name == "" {
			u.Name = profile.Name
		}
		if u.Photo == "" {
			u.Photo = profile.Picture
		}
		if !u.IsExternal() {
			u.Provider = provider
			u.ExternalID = profile.ID
		}
		return nil
	}
}
