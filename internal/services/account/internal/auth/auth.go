package auth

import (
	"errors"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidProfile     = errors.New("invalid external profile")
	ErrLinkRequiresLogin  = errors.New("account exists, sign in to link the identity")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)

// StrategyKind tells how a strategy establishes who the user is.
type StrategyKind int

const (
	KindLocal StrategyKind = iota + 1
	KindExternal
)

func (k StrategyKind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Strategy is implemented by Local and External.
type Strategy interface {
	Kind() StrategyKind
}

// RequireAdmin admits only administrators.
func RequireAdmin(u store.User) error {
	if !u.IsAdmin {
		return ErrForbidden
	}
	return nil
}
