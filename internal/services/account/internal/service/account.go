package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/riya-gandhi/authentication-api/internal/pkg/serr"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/auth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/session"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

// sessionManager starts and ends sessions
type sessionManager interface {
	Establish(ctx context.Context, u store.User) (string, error)
	Load(ctx context.Context, sid string) (session.State, error)
	Destroy(ctx context.Context, sid string) error
}

// gate resolves the user behind a session
type gate interface {
	Authorize(ctx context.Context, state session.State) (store.User, error)
}

type localStrategy interface {
	auth.Strategy
	Authenticate(ctx context.Context, c auth.Credentials) (store.User, error)
}

type externalStrategy interface {
	auth.Strategy
	Authenticate(ctx context.Context, provider string, profile oauth.User) (store.User, error)
	Link(ctx context.Context, userID int64, provider string, profile oauth.User) (store.User, error)
}

// authenticator drives the OAuth redirect and callback
type authenticator interface {
	LoginURL(env oauth.Env, provider, state, nonce string) (string, error)
	Exchange(ctx context.Context, env oauth.Env, provider, code, state string) (oauth.User, error)
}

type photoStore interface {
	Upload(ctx context.Context, img io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// Account implements registration, login and profile management
type Account struct {
	store    store.Store
	sessions sessionManager
	gate     gate
	local    localStrategy
	external externalStrategy
	oauth    authenticator
	photos   photoStore
}

// AccountOption defines a functional option for configuring the Account service
type AccountOption func(*Account) *Account

func WithStore(st store.Store) AccountOption {
	return func(a *Account) *Account {
		a.store = st
		return a
	}
}

func WithSessions(m sessionManager) AccountOption {
	return func(a *Account) *Account {
		a.sessions = m
		return a
	}
}

func WithGate(g gate) AccountOption {
	return func(a *Account) *Account {
		a.gate = g
		return a
	}
}

func WithLocal(l localStrategy) AccountOption {
	return func(a *Account) *Account {
		a.local = l
		return a
	}
}

func WithExternal(e externalStrategy) AccountOption {
	return func(a *Account) *Account {
		a.external = e
		return a
	}
}

func WithAuthenticator(au authenticator) AccountOption {
	return func(a *Account) *Account {
		a.oauth = au
		return a
	}
}

func WithPhotos(p photoStore) AccountOption {
	return func(a *Account) *Account {
		a.photos = p
		return a
	}
}

// NewAccount creates a new Account service with the provided options
func NewAccount(opts ...AccountOption) *Account {
	a := &Account{}
	for _, opt := range opts {
		a = opt(a)
	}

	if a.store == nil {
		panic("store is required")
	}

	if a.sessions == nil {
		panic("session manager is required")
	}

	if a.gate == nil {
		panic("access gate is required")
	}

	if a.local == nil {
		panic("local strategy is required")
	}

	if a.external == nil {
		panic("external strategy is required")
	}

	if a.oauth == nil {
		panic("oauth authenticator is required")
	}

	if a.photos == nil {
		panic("photo store is required")
	}

	return a
}

type RegisterRequest struct {
	Email    string
	Password string
}

// Register creates a private local account
func (a *Account) Register(ctx context.Context, r RegisterRequest) (int64, error) {
	if r.Email == "" || r.Password == "" {
		return 0, serr.NewServiceError(nil, http.StatusBadRequest, "Email and password are required")
	}

	id, err := a.store.Create(ctx, store.CreateUserRequest{
		Email:    r.Email,
		Password: store.Password(r.Password),
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return 0, serr.NewServiceError(err, http.StatusBadRequest, "Email already exists")
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", id)
	return id, nil
}

type LoginRequest struct {
	Email    string
	Password string
	// SessionID is the session the client currently holds, if any. It is replaced.
	SessionID string
}

// Login verifies credentials and starts a new session, returning its id
func (a *Account) Login(ctx context.Context, r LoginRequest) (string, error) {
	u, err := a.local.Authenticate(ctx, auth.Credentials{Email: r.Email, Password: r.Password})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return "", serr.NewServiceError(err, http.StatusUnauthorized, "Invalid email or password")
		}
		return "", fmt.Errorf("authenticate: %w", err)
	}

	return a.establish(ctx, u, r.SessionID, a.local.Kind())
}

// LoginURL generates a login URL for the specified provider
func (a *Account) LoginURL(env oauth.Env, provider string) (string, error) {
	url, err := a.oauth.LoginURL(env, provider, randString(32), randString(32))
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "OAuth provider not found")
			sErr.Env["provider"] = provider
			return "", sErr
		}

		return "", fmt.Errorf("login url: %w", err)
	}

	return url, nil
}

type AuthCallbackRequest struct {
	Provider  string
	Code      string
	State     string
	SessionID string
}

// AuthCallback exchanges the provider code for a verified profile, materializes the local
// user and starts a session for it
func (a *Account) AuthCallback(ctx context.Context, env oauth.Env, r AuthCallbackRequest) (string, error) {
	profile, err := a.oauth.Exchange(ctx, env, r.Provider, r.Code, r.State)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "OAuth provider not found")
			sErr.Env["provider"] = r.Provider
			return "", sErr
		}

		if errors.Is(err, oauth.ErrAuthFailed) {
			sErr := serr.NewServiceError(err, http.StatusUnauthorized, "Authentication failed")
			sErr.Env["provider"] = r.Provider
			return "", sErr
		}

		return "", fmt.Errorf("exchange: %w", err)
	}

	u, err := a.external.Authenticate(ctx, r.Provider, profile)
	if errors.Is(err, auth.ErrLinkRequiresLogin) {
		u, err = a.linkSignedIn(ctx, r.SessionID, r.Provider, profile)
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidProfile) {
			sErr := serr.NewServiceError(err, http.StatusUnauthorized, "Authentication failed")
			sErr.Env["provider"] = r.Provider
			return "", sErr
		}

		if errors.Is(err, auth.ErrLinkRequiresLogin) {
			sErr := serr.NewServiceError(err, http.StatusConflict, "Account already exists, log in with your password to link it")
			sErr.Env["provider"] = r.Provider
			return "", sErr
		}

		return "", fmt.Errorf("materialize user: %w", err)
	}

	return a.establish(ctx, u, r.SessionID, a.external.Kind())
}

// linkSignedIn attaches the external identity to the user of session sid.
func (a *Account) linkSignedIn(ctx context.Context, sid, provider string, profile oauth.User) (store.User, error) {
	if sid == "" {
		return store.User{}, auth.ErrLinkRequiresLogin
	}

	state, err := a.sessions.Load(ctx, sid)
	if err != nil {
		return store.User{}, fmt.Errorf("load session: %w", err)
	}

	cur, err := a.gate.Authorize(ctx, state)
	if err != nil {
		return store.User{}, fmt.Errorf("%w: %w", auth.ErrLinkRequiresLogin, err)
	}

	return a.external.Link(ctx, cur.ID, provider, profile)
}

// Logout ends the session. Ending an unknown session succeeds.
func (a *Account) Logout(ctx context.Context, sid string) error {
	if err := a.sessions.Destroy(ctx, sid); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Authorize returns the user behind the session or an Unauthorized error
func (a *Account) Authorize(ctx context.Context, state session.State) (store.User, error) {
	u, err := a.gate.Authorize(ctx, state)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return store.User{}, serr.NewServiceError(err, http.StatusUnauthorized, "Unauthorized")
		}
		return store.User{}, fmt.Errorf("authorize: %w", err)
	}

	return u, nil
}

// Profile returns the current user
func (a *Account) Profile(ctx context.Context, state session.State) (store.User, error) {
	return a.Authorize(ctx, state)
}

// UpdateProfileRequest holds the fields to change. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name     *string
	Bio      *string
	Phone    *string
	Email    *string
	Password *string
	IsPublic *bool
}

// UpdateProfile applies the present fields of r to the current user
func (a *Account) UpdateProfile(ctx context.Context, state session.State, r UpdateProfileRequest) (store.User, error) {
	u, err := a.Authorize(ctx, state)
	if err != nil {
		return store.User{}, err
	}

	if r.Email != nil && *r.Email == "" {
		return store.User{}, serr.NewServiceError(nil, http.StatusBadRequest, "Email cannot be empty")
	}

	if r.Password != nil && *r.Password == "" {
		return store.User{}, serr.NewServiceError(nil, http.StatusBadRequest, "Password cannot be empty")
	}

	updated, err := a.store.Update(ctx, u.ID, func(u *store.User) error {
		setIfPresent(&u.Name, r.Name)
		setIfPresent(&u.Bio, r.Bio)
		setIfPresent(&u.Phone, r.Phone)
		setIfPresent(&u.Email, r.Email)
		setIfPresent(&u.IsPublic, r.IsPublic)
		if r.Password != nil {
			u.Password = store.Password(*r.Password)
		}
		return nil
	})
	if err != nil {
		return store.User{}, a.updateErr(err)
	}

	return updated, nil
}

// UploadPhoto stores img as the current user's photo and removes the previous one
func (a *Account) UploadPhoto(ctx context.Context, state session.State, img io.Reader) (string, error) {
	u, err := a.Authorize(ctx, state)
	if err != nil {
		return "", err
	}

	ref, err := a.photos.Upload(ctx, img)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	var old string
	_, err = a.store.Update(ctx, u.ID, func(u *store.User) error {
		old = u.Photo
		u.Photo = ref
		return nil
	})
	if err != nil {
		if rmErr := a.photos.Remove(ctx, ref); rmErr != nil {
			slog.Warn("failed to remove orphaned photo", "error", rmErr, "ref", ref)
		}
		return "", a.updateErr(err)
	}

	if err := a.photos.Remove(ctx, old); err != nil {
		slog.Warn("failed to remove previous photo", "error", err, "ref", old, "user_id", u.ID)
	}

	return ref, nil
}

// SetVisibility makes the current user's profile public or private
func (a *Account) SetVisibility(ctx context.Context, state session.State, public bool) error {
	_, err := a.UpdateProfile(ctx, state, UpdateProfileRequest{IsPublic: &public})
	return err
}

// PublicProfiles lists users who made their profile public
func (a *Account) PublicProfiles(ctx context.Context) ([]store.User, error) {
	users, err := a.store.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public users: %w", err)
	}
	return users, nil
}

// AllProfiles lists every user. Only administrators may call it.
func (a *Account) AllProfiles(ctx context.Context, state session.State) ([]store.User, error) {
	u, err := a.Authorize(ctx, state)
	if err != nil {
		return nil, err
	}

	if err := auth.RequireAdmin(u); err != nil {
		sErr := serr.NewServiceError(err, http.StatusForbidden, "Forbidden")
		sErr.Env["user_id"] = fmt.Sprint(u.ID)
		return nil, sErr
	}

	users, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SeedAdmin makes sure an administrator with the given credentials exists
func (a *Account) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}

	return a.store.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			_, err = tx.Create(ctx, store.CreateUserRequest{
				Email:    email,
				Password: store.Password(password),
				IsAdmin:  true,
			})
			return err
		}
		if err != nil {
			return err
		}

		_, err = tx.Update(ctx, u.ID, func(u *store.User) error {
			u.IsAdmin = true
			u.Password = store.Password(password)
			return nil
		})
		return err
	})
}

func (a *Account) establish(ctx context.Context, u store.User, prev string, kind auth.StrategyKind) (string, error) {
	if prev != "" {
		if err := a.sessions.Destroy(ctx, prev); err != nil {
			slog.Warn("failed to destroy previous session", "error", err, "user_id", u.ID)
		}
	}

	sid, err := a.sessions.Establish(ctx, u)
	if err != nil {
		return "", fmt.Errorf("establish session: %w", err)
	}

	slog.Info("user signed in", "user_id", u.ID, "strategy", kind)
	return sid, nil
}

func (a *Account) updateErr(err error) error {
	switch {
	case errors.Is(err, store.ErrEmailExists):
		return serr.NewServiceError(err, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, store.ErrNotFound):
		return serr.NewServiceError(err, http.StatusUnauthorized, "Unauthorized")
	default:
		return fmt.Errorf("update user: %w", err)
	}
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func randString(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
