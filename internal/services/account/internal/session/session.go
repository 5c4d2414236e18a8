package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrUnknownIdentity = errors.New("unknown identity")
)

// Token is the serialized form of a user kept in a session: its identity.
type Token int64

// State is the session data attached to a request. The zero State is anonymous.
type State struct {
	ID    string
	Token Token
}

func (s State) Authenticated() bool {
	return s.ID != "" && s.Token > 0
}

// Backend keeps serialized identities under session ids until they expire.
type Backend interface {
	Save(ctx context.Context, sid string, tok Token, ttl time.Duration) error
	Load(ctx context.Context, sid string) (Token, error)
	Delete(ctx context.Context, sid string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id int64) (store.User, error)
}

// Manager maps users to session tokens and back.
type Manager struct {
	users   userFinder
	backend Backend
	ttl     time.Duration
}

type ManagerOption func(*Manager) *Manager

func WithUsers(users userFinder) ManagerOption {
	return func(m *Manager) *Manager {
		m.users = users
		return m
	}
}

func WithBackend(b Backend) ManagerOption {
	return func(m *Manager) *Manager {
		m.backend = b
		return m
	}
}

func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) *Manager {
		m.ttl = ttl
		return m
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		ttl: 24 * time.Hour,
	}
	for _, opt := range opts {
		m = opt(m)
	}

	if m.users == nil {
		panic("user store is required")
	}

	if m.backend == nil {
		panic("session backend is required")
	}

	return m
}

// Serialize reduces a user to the value stored in its session.
func (m *Manager) Serialize(u store.User) Token {
	return Token(u.ID)
}

// Deserialize looks the identity up in the store, so the result always reflects the
// current record.
func (m *Manager) Deserialize(ctx context.Context, tok Token) (store.User, error) {
	if tok <= 0 {
		return store.User{}, ErrUnknownIdentity
	}

	u, err := m.users.FindByID(ctx, int64(tok))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrUnknownIdentity
		}
		return store.User{}, fmt.Errorf("find user: %w", err)
	}

	return u, nil
}

// Establish starts a new session for u and returns its id.
func (m *Manager) Establish(ctx context.Context, u store.User) (string, error) {
	sid := uuid.NewString()
	if err := m.backend.Save(ctx, sid, m.Serialize(u), m.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return sid, nil
}

// Load returns the state of session sid. Unknown or expired sessions are anonymous.
func (m *Manager) Load(ctx context.Context, sid string) (State, error) {
	if sid == "" {
		return State{}, nil
	}

	tok, err := m.backend.Load(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("load session: %w", err)
	}

	return State{ID: sid, Token: tok}, nil
}

func (m *Manager) Destroy(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}

	if err := m.backend.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
