package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/riya-gandhi/authentication-api/internal/pkg/httpx"
	"github.com/riya-gandhi/authentication-api/internal/pkg/middleware"
	"github.com/riya-gandhi/authentication-api/internal/pkg/router"
	"github.com/riya-gandhi/authentication-api/internal/pkg/serr"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/service"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/session"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
)

const defaultMaxPhotoSize = 5 << 20

// PhotoPath is the URL path disk stored photos are served under.
const PhotoPath = "/photos"

type accountService interface {
	Register(ctx context.Context, r service.RegisterRequest) (int64, error)
	Login(ctx context.Context, r service.LoginRequest) (string, error)
	LoginURL(env oauth.Env, provider string) (string, error)
	AuthCallback(ctx context.Context, env oauth.Env, r service.AuthCallbackRequest) (string, error)
	Logout(ctx context.Context, sid string) error
	Profile(ctx context.Context, state session.State) (store.User, error)
	UpdateProfile(ctx context.Context, state session.State, r service.UpdateProfileRequest) (store.User, error)
	UploadPhoto(ctx context.Context, state session.State, img io.Reader) (string, error)
	SetVisibility(ctx context.Context, state session.State, public bool) error
	PublicProfiles(ctx context.Context) ([]store.User, error)
	AllProfiles(ctx context.Context, state session.State) ([]store.User, error)
}

// sessionLoader resolves a session id to its state
type sessionLoader interface {
	Load(ctx context.Context, sid string) (session.State, error)
}

type cookieJar interface {
	Write(w http.ResponseWriter, sid string) error
	Read(r *http.Request) (string, error)
	Clear(w http.ResponseWriter)
}

type APIOption func(*API) *API

func WithAccountService(srv accountService) APIOption {
	return func(api *API) *API {
		api.srv = srv
		return api
	}
}

func WithSessions(s sessionLoader) APIOption {
	return func(api *API) *API {
		api.sessions = s
		return api
	}
}

func WithCookies(c cookieJar) APIOption {
	return func(api *API) *API {
		api.cookies = c
		return api
	}
}

func WithMaxPhotoSize(size int64) APIOption {
	return func(api *API) *API {
		api.maxPhotoSize = size
		return api
	}
}

// WithPhotoRoot serves the files under root at PhotoPath.
func WithPhotoRoot(root string) APIOption {
	return func(api *API) *API {
		api.photoRoot = root
		return api
	}
}

// WithSecureCookies marks the OAuth login cookies as HTTPS only.
func WithSecureCookies(secure bool) APIOption {
	return func(api *API) *API {
		api.secureCookies = secure
		return api
	}
}

type API struct {
	srv           accountService
	sessions      sessionLoader
	cookies       cookieJar
	maxPhotoSize  int64
	photoRoot     string
	secureCookies bool
	router        *router.Router
}

func NewAPI(opts ...APIOption) *API {
	api := &API{
		maxPhotoSize: defaultMaxPhotoSize,
		router:       router.New(),
	}

	for _, opt := range opts {
		api = opt(api)
	}

	if api.srv == nil {
		panic("account service is required")
	}

	if api.sessions == nil {
		panic("session loader is required")
	}

	if api.cookies == nil {
		panic("session cookies are required")
	}

	api.mount()
	return api
}

func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(w, r)
}

func (api *API) mount() {
	api.router.Use(middleware.Session[session.State](api.loadSession))

	api.router.HandleFunc("POST /register", api.handleRegister)
	api.router.HandleFunc("POST /login", api.handleLogin)
	api.router.HandleFunc("GET /auth/{provider}/login", api.handleOAuthLogin)
	api.router.HandleFunc("GET /auth/{provider}/callback", api.handleOAuthCallback)
	api.router.HandleFunc("GET /logout", api.handleLogout)
	api.router.HandleFunc("POST /logout", api.handleLogout)

	api.router.HandleFunc("GET /profile", api.handleGetProfile)
	api.router.HandleFunc("PUT /profile", api.handleUpdateProfile)
	api.router.HandleFunc("POST /profile/photo", api.handleUploadPhoto)
	api.router.HandleFunc("PUT /profile/visibility", api.handleSetVisibility)

	api.router.HandleFunc("GET /profiles", api.handlePublicProfiles)
	api.router.HandleFunc("GET /profiles/all", api.handleAllProfiles)

	if api.photoRoot != "" {
		fs := http.FileServer(http.Dir(api.photoRoot))
		api.router.Handle("GET "+PhotoPath+"/", http.StripPrefix(PhotoPath+"/", noListing(fs)))
	}
}

func (api *API) loadSession(r *http.Request) (session.State, error) {
	sid, err := api.cookies.Read(r)
	if err != nil {
		return session.State{}, fmt.Errorf("read cookie: %w", err)
	}

	return api.sessions.Load(r.Context(), sid)
}

func currentSession(r *http.Request) session.State {
	return middleware.SessionFromContext[session.State](r.Context())
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badRequest(err))
		return
	}

	_, err := api.srv.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.writeMessage(w, r, http.StatusCreated, "User registered successfully")
}

func (api *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badRequest(err))
		return
	}

	sid, err := api.srv.Login(r.Context(), service.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		SessionID: currentSession(r).ID,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.startSession(w, r, sid)
}

func (api *API) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("provider")
	url, err := api.srv.LoginURL(api.oauthEnv(p, w, r), p)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (api *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("provider")
	q := r.URL.Query()

	sid, err := api.srv.AuthCallback(r.Context(), api.oauthEnv(p, w, r), service.AuthCallbackRequest{
		Provider:  p,
		Code:      q.Get("code"),
		State:     q.Get("state"),
		SessionID: currentSession(r).ID,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.startSession(w, r, sid)
}

func (api *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := api.srv.Logout(r.Context(), currentSession(r).ID); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.cookies.Clear(w)
	api.writeMessage(w, r, http.StatusOK, "Logged out successfully")
}

func (api *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := api.srv.Profile(r.Context(), currentSession(r))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.writeJSON(w, r, http.StatusOK, toProfile(u))
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsPublic *bool   `json:"isPublic"`
}

type updateProfileResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

func (api *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badRequest(err))
		return
	}

	u, err := api.srv.UpdateProfile(r.Context(), currentSession(r), service.UpdateProfileRequest{
		Name:     req.Name,
		Bio:      req.Bio,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.writeJSON(w, r, http.StatusOK, updateProfileResponse{
		Message: "Profile updated successfully",
		User:    toUser(u),
	})
}

type uploadPhotoResponse struct {
	Message string `json:"message"`
	Photo   string `json:"photo"`
}

func (api *API) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	// the body is not read for anonymous callers
	if _, err := api.srv.Profile(r.Context(), currentSession(r)); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, api.maxPhotoSize+multipartOverhead)

	f, _, err := r.FormFile("photo")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusRequestEntityTooLarge, "Image size exceeded"))
			return
		}

		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "No photo uploaded"))
		return
	}
	defer f.Close()

	ref, err := api.srv.UploadPhoto(r.Context(), currentSession(r), f)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	api.writeJSON(w, r, http.StatusOK, uploadPhotoResponse{
		Message: "Photo uploaded successfully",
		Photo:   ref,
	})
}

type visibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

func (api *API) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badRequest(err))
		return
	}

	if req.IsPublic == nil {
		httpx.HandleErr(w, r, serr.NewServiceError(nil, http.StatusBadRequest, "isPublic is required"))
		return
	}

	if err := api.srv.SetVisibility(r.Context(), currentSession(r), *req.IsPublic); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	visibility := "private"
	if *req.IsPublic {
		visibility = "public"
	}
	api.writeMessage(w, r, http.StatusOK, "Profile visibility set to "+visibility)
}

type profilesResponse[T any] struct {
	Profiles []T `json:"profiles"`
}

func (api *API) handlePublicProfiles(w http.ResponseWriter, r *http.Request) {
	users, err := api.srv.PublicProfiles(r.Context())
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	resp := profilesResponse[publicProfile]{Profiles: make([]publicProfile, 0, len(users))}
	for _, u := range users {
		resp.Profiles = append(resp.Profiles, toPublicProfile(u))
	}

	api.writeJSON(w, r, http.StatusOK, resp)
}

func (api *API) handleAllProfiles(w http.ResponseWriter, r *http.Request) {
	users, err := api.srv.AllProfiles(r.Context(), currentSession(r))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	resp := profilesResponse[userResponse]{Profiles: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Profiles = append(resp.Profiles, toUser(u))
	}

	api.writeJSON(w, r, http.StatusOK, resp)
}

func (api *API) startSession(w http.ResponseWriter, r *http.Request, sid string) {
	if err := api.cookies.Write(w, sid); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write session cookie: %w", err))
		return
	}

	api.writeMessage(w, r, http.StatusOK, "Login successful")
}

func (api *API) writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	api.writeJSON(w, r, status, httpx.Message{Message: msg})
}

func (api *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, resp any) {
	if err := httpx.WriteJSON(w, status, resp); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

func (api *API) oauthEnv(provider string, w http.ResponseWriter, r *http.Request) oauth.Env {
	return oauth.NewHTTPEnv("oauth-"+provider, w, r, oauth.WithSecure(api.secureCookies))
}

func badRequest(err error) error {
	return serr.NewServiceError(err, http.StatusBadRequest, "Invalid request body")
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
