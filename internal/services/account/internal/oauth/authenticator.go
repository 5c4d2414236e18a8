package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

const (
	keyState = "state"
	keyNonce = "nonce"
)

var (
	ErrProviderConflict = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrAuthFailed       = errors.New("auth failed")
)

// User is the profile an identity provider verified.
type User struct {
	Nonce         string
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

func (u *User) VerifiedEmail() string {
	if u.EmailVerified {
		return u.Email
	}
	return ""
}

// Env keeps the values of a login attempt between the redirect and the callback.
// Load returns an empty value for keys that were never saved.
type Env interface {
	Save(key, val string) error
	Load(key string) (string, error)
	Delete(key string) error
}

type identityProvider interface {
	LoginURL(state, nonce string) (string, error)
	Exchange(ctx context.Context, code string) (User, error)
}

type Authenticator struct {
	providers map[string]identityProvider
	mu        sync.RWMutex
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{
		providers: make(map[string]identityProvider),
	}
}

func (a *Authenticator) Use(name string, p identityProvider) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.providers[name]; ok {
		return ErrProviderConflict
	}

	a.providers[name] = p
	return nil
}

func (a *Authenticator) LoginURL(env Env, provider, state, nonce string) (string, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return "", fmt.Errorf("get provider: %w", err)
	}

	if err = env.Save(keyState, state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}

	if err = env.Save(keyNonce, nonce); err != nil {
		return "", fmt.Errorf("save nonce: %w", err)
	}

	url, err := p.LoginURL(state, nonce)
	if err != nil {
		return "", fmt.Errorf("get login url: %w", err)
	}

	return url, nil
}

func (a *Authenticator) Exchange(ctx context.Context, env Env, provider, code, state string) (User, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return User{}, fmt.Errorf("get provider: %w", err)
	}

	saved, err := env.Load(keyState)
	if err != nil {
		return User{}, fmt.Errorf("load state: %w", err)
	}

	if saved == "" || saved != state {
		return User{}, ErrAuthFailed
	}

	nonce, err := env.Load(keyNonce)
	if err != nil {
		return User{}, fmt.Errorf("load nonce: %w", err)
	}

	// a state is good for one callback only
	for _, key := range []string{keyState, keyNonce} {
		if err := env.Delete(key); err != nil {
			return User{}, fmt.Errorf("delete %s: %w", key, err)
		}
	}

	usr, err := p.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			if rerr.Response != nil {
				if rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized {
					return User{}, ErrAuthFailed
				}
			}
		}

		return User{}, fmt.Errorf("exchange: %w", err)
	}

	if usr.Nonce == "" || usr.Nonce != nonce {
		return User{}, ErrAuthFailed
	}

	return usr, nil
}

func (a *Authenticator) getProvider(name string) (identityProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return p, nil
}
