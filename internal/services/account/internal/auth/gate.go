package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/session"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

type deserializer interface {
	Deserialize(ctx context.Context, tok session.Token) (store.User, error)
}

// Gate admits requests whose session resolves to a live user.
type Gate struct {
	sessions deserializer
}

func NewGate(sessions deserializer) *Gate {
	if sessions == nil {
		panic("session manager is required")
	}
	return &Gate{sessions: sessions}
}

func (g *Gate) Authorize(ctx context.Context, state session.State) (store.User, error) {
	if !state.Authenticated() {
		return store.User{}, ErrUnauthenticated
	}

	u, err := g.sessions.Deserialize(ctx, state.Token)
	if err != nil {
		if errors.Is(err, session.ErrUnknownIdentity) {
			return store.User{}, ErrUnauthenticated
		}
		return store.User{}, fmt.Errorf("deserialize session: %w", err)
	}

	return u, nil
}
