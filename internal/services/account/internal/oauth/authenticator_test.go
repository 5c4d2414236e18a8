package oauth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type mockIdentityProvider struct {
	loginFunc    func(state, nonce string) (string, error)
	exchangeFunc func(ctx context.Context, code string) (User, error)
}

func (m *mockIdentityProvider) LoginURL(state, nonce string) (string, error) {
	return m.loginFunc(state, nonce)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (User, error) {
	return m.exchangeFunc(ctx, code)
}

type memEnv struct {
	store map[string]string
}

func newMemEnv(kv ...string) *memEnv {
	e := &memEnv{store: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		e.store[kv[i]] = kv[i+1]
	}
	return e
}

func (m *memEnv) Save(key, val string) error {
	m.store[key] = val
	return nil
}

func (m *memEnv) Load(key string) (string, error) {
	return m.store[key], nil
}

func (m *memEnv) Delete(key string) error {
	delete(m.store, key)
	return nil
}

type mockEnv struct {
	saveFunc   func(key, val string) error
	loadFunc   func(key string) (string, error)
	deleteFunc func(key string) error
}

func (m *mockEnv) Save(key, val string) error {
	return m.saveFunc(key, val)
}

func (m *mockEnv) Load(key string) (string, error) {
	return m.loadFunc(key)
}

func (m *mockEnv) Delete(key string) error {
	if m.deleteFunc == nil {
		return nil
	}
	return m.deleteFunc(key)
}

func exchangeReturning(u User, err error) *mockIdentityProvider {
	return &mockIdentityProvider{
		loginFunc: func(state, nonce string) (string, error) {
			return "", nil
		},
		exchangeFunc: func(ctx context.Context, code string) (User, error) {
			return u, err
		},
	}
}

func TestAuthenticator_Use_Conflict(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{}, nil)))

	err := a.Use("test", exchangeReturning(User{}, nil))
	require.ErrorIs(t, err, ErrProviderConflict)
}

func TestAuthenticator_LoginURL(t *testing.T) {
	var gotState, gotNonce string
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", &mockIdentityProvider{
		loginFunc: func(state, nonce string) (string, error) {
			gotState, gotNonce = state, nonce
			return "test_url", nil
		},
	}))

	env := newMemEnv()
	url, err := a.LoginURL(env, "test", "some_state", "some_nonce")
	require.NoError(t, err)
	assert.Equal(t, "test_url", url)
	assert.Equal(t, "some_state", gotState)
	assert.Equal(t, "some_nonce", gotNonce)
	assert.Equal(t, map[string]string{"state": "some_state", "nonce": "some_nonce"}, env.store)
}

func TestAuthenticator_LoginURL_ProviderNotFound(t *testing.T) {
	a := NewAuthenticator()

	_, err := a.LoginURL(newMemEnv(), "non_existent", "state", "nonce")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestAuthenticator_LoginURL_EnvSaveError(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{}, nil)))

	brokenEnv := &mockEnv{
		saveFunc: func(key, val string) error {
			return errors.New("save error")
		},
	}

	_, err := a.LoginURL(brokenEnv, "test", "state", "nonce")
	require.Error(t, err)
}

func TestAuthenticator_LoginURL_ProviderLoginError(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", &mockIdentityProvider{
		loginFunc: func(state, nonce string) (string, error) {
			return "", errors.New("login error")
		},
	}))

	_, err := a.LoginURL(newMemEnv(), "test", "some_state", "some_nonce")
	require.Error(t, err)
}

func TestAuthenticator_Exchange(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{
		Nonce:         "valid_nonce",
		ID:            "user123",
		Email:         "test@example.com",
		Name:          "Test User",
		Picture:       "http://example.com/user.png",
		EmailVerified: true,
	}, nil)))

	env := newMemEnv("state", "valid_state", "nonce", "valid_nonce")
	usr, err := a.Exchange(context.Background(), env, "test", "auth_code_123", "valid_state")
	require.NoError(t, err)
	assert.Equal(t, "user123", usr.ID)
	assert.Equal(t, "test@example.com", usr.Email)
	assert.Equal(t, "Test User", usr.Name)
	assert.Equal(t, "http://example.com/user.png", usr.Picture)
	assert.Equal(t, "test@example.com", usr.VerifiedEmail())
	assert.Empty(t, env.store, "state and nonce must be consumed")

	_, err = a.Exchange(context.Background(), env, "test", "auth_code_123", "valid_state")
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticator_Exchange_ProviderNotFound(t *testing.T) {
	a := NewAuthenticator()

	_, err := a.Exchange(context.Background(), newMemEnv(), "non_existent", "code", "state")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestAuthenticator_Exchange_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		env      *memEnv
		state    string
		provided User
	}{
		{
			name:     "state mismatch",
			env:      newMemEnv("state", "expected_state", "nonce", "valid_nonce"),
			state:    "wrong_state",
			provided: User{Nonce: "valid_nonce"},
		},
		{
			name:     "no saved state",
			env:      newMemEnv(),
			state:    "valid_state",
			provided: User{Nonce: "valid_nonce"},
		},
		{
			name:     "empty state",
			env:      newMemEnv("state", "", "nonce", "valid_nonce"),
			state:    "",
			provided: User{Nonce: "valid_nonce"},
		},
		{
			name:     "missing nonce from provider",
			env:      newMemEnv("state", "valid_state", "nonce", "valid_nonce"),
			state:    "valid_state",
			provided: User{},
		},
		{
			name:     "nonce mismatch",
			env:      newMemEnv("state", "valid_state", "nonce", "valid_nonce"),
			state:    "valid_state",
			provided: User{Nonce: "wrong_nonce"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator()
			require.NoError(t, a.Use("test", exchangeReturning(tt.provided, nil)))

			_, err := a.Exchange(context.Background(), tt.env, "test", "code", tt.state)
			require.ErrorIs(t, err, ErrAuthFailed)
		})
	}
}

func TestAuthenticator_Exchange_EnvLoadError(t *testing.T) {
	tests := []struct {
		name    string
		failKey string
	}{
		{name: "state", failKey: "state"},
		{name: "nonce", failKey: "nonce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator()
			require.NoError(t, a.Use("test", exchangeReturning(User{Nonce: "some_nonce"}, nil)))

			brokenEnv := &mockEnv{
				loadFunc: func(key string) (string, error) {
					if key == tt.failKey {
						return "", errors.New("load error")
					}
					return "some_" + key, nil
				},
			}

			_, err := a.Exchange(context.Background(), brokenEnv, "test", "code", "some_state")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrAuthFailed)
		})
	}
}

func TestAuthenticator_Exchange_EnvDeleteError(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{Nonce: "some_nonce"}, nil)))

	env := &mockEnv{
		loadFunc: func(key string) (string, error) {
			return "some_" + key, nil
		},
		deleteFunc: func(key string) error {
			return errors.New("delete error")
		},
	}

	_, err := a.Exchange(context.Background(), env, "test", "code", "some_state")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticator_Exchange_ProviderExchangeError(t *testing.T) {
	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{}, errors.New("exchange error"))))

	env := newMemEnv("state", "valid_state", "nonce", "valid_nonce")
	_, err := a.Exchange(context.Background(), env, "test", "code", "valid_state")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticator_Exchange_InvalidCode(t *testing.T) {
	rerr := &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}}

	a := NewAuthenticator()
	require.NoError(t, a.Use("test", exchangeReturning(User{}, rerr)))

	env := newMemEnv("state", "valid_state", "nonce", "valid_nonce")
	_, err := a.Exchange(context.Background(), env, "test", "bad_code", "valid_state")
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestUser_VerifiedEmail(t *testing.T) {
	u := User{Email: "a@x.com"}
	assert.Empty(t, u.VerifiedEmail())

	u.EmailVerified = true
	assert.Equal(t, "a@x.com", u.VerifiedEmail())
}
