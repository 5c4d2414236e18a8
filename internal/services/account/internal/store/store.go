package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmailExists = errors.New("email already exists")
)

type Store interface {
	Create(ctx context.Context, r CreateUserRequest) (int64, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByExternalID(ctx context.Context, provider, externalID string) (User, error)
	Update(ctx context.Context, id int64, fn func(u *User) error) (User, error)
	ListPublic(ctx context.Context) ([]User, error)
	List(ctx context.Context) ([]User, error)
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type CreateUserRequest struct {
	Email      string
	Password   Password
	Name       string
	Photo      string
	IsPublic   bool
	IsAdmin    bool
	Provider   string
	ExternalID string
}
