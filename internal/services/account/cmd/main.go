package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/riya-gandhi/authentication-api/internal/pkg/middleware"
	"github.com/riya-gandhi/authentication-api/internal/pkg/router"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/auth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/config"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/photo"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/provider"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/rest"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/service"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/session"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/token"
)

type readinessCheck func(ctx context.Context) error

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	slog.Info("starting account service")

	st, err := store.NewMemStore()
	if err != nil {
		return fmt.Errorf("failed to create user store: %w", err)
	}

	backend, ready, closeBackend, err := newSessionBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to create session backend: %w", err)
	}
	defer closeBackend()

	sessions := session.NewManager(
		session.WithUsers(st),
		session.WithBackend(backend),
		session.WithTTL(cfg.Session.TTL),
	)

	photos, photoRoot, err := newPhotoService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create photo storage: %w", err)
	}

	authn := oauth.NewAuthenticator()
	if err := registerProviders(ctx, authn, cfg); err != nil {
		return fmt.Errorf("failed to register oauth providers: %w", err)
	}

	srv := service.NewAccount(
		service.WithStore(st),
		service.WithSessions(sessions),
		service.WithGate(auth.NewGate(sessions)),
		service.WithLocal(auth.NewLocal(st)),
		service.WithExternal(auth.NewExternal(st)),
		service.WithAuthenticator(authn),
		service.WithPhotos(photos),
	)

	if cfg.Admin.Enabled() {
		if err := srv.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		slog.Info("admin account ready", "email", cfg.Admin.Email)
	}

	api := rest.NewAPI(
		rest.WithAccountService(srv),
		rest.WithSessions(sessions),
		rest.WithCookies(session.NewCookies(session.CookiesConfig{
			Name: cfg.Session.CookieName,
			Signer: token.NewJWTIssuer(token.JwtConfig{
				Secret: token.NewSecretString(cfg.Session.Secret),
				Issuer: cfg.Session.Issuer,
				TTL:    cfg.Session.TTL,
			}),
			MaxAge: cfg.Session.TTL,
			Secure: cfg.Session.CookieSecure,
		})),
		rest.WithMaxPhotoSize(cfg.Photo.MaxBytes),
		rest.WithPhotoRoot(photoRoot),
		rest.WithSecureCookies(cfg.Session.CookieSecure),
	)

	rt := router.New()
	rt.Use(middleware.Recover(), middleware.LogWith(logger))
	rt.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rt.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			slog.Warn("not ready", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rt.Handle("/", api)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      rt,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Log.Level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func newSessionBackend(cfg config.Config) (session.Backend, readinessCheck, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rds := session.NewRedis(session.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		closer := func() {
			if err := rds.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}
		return rds, rds.Ping, closer, nil
	default:
		mem, err := session.NewMemory(cfg.Session.MaxSessions)
		if err != nil {
			return nil, nil, nil, err
		}
		ready := func(context.Context) error { return nil }
		return mem, ready, mem.Close, nil
	}
}

// newPhotoService returns the photo service and, for disk storage, the directory to serve
func newPhotoService(ctx context.Context, cfg config.Config) (*photo.Service, string, error) {
	var (
		backend photo.Backend
		root    string
	)

	switch cfg.Photo.Backend {
	case config.PhotoBackendS3:
		base, err := url.Parse(cfg.Photo.S3.PublicBaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("parse public base url: %w", err)
		}

		client, err := photo.NewS3Client(ctx, photo.S3ClientConfig{
			Region:       cfg.Photo.S3.Region,
			Endpoint:     cfg.Photo.S3.Endpoint,
			AccessKey:    cfg.Photo.S3.AccessKey,
			SecretKey:    cfg.Photo.S3.SecretKey,
			UsePathStyle: cfg.Photo.S3.UsePathStyle,
		})
		if err != nil {
			return nil, "", err
		}

		backend = photo.NewS3(photo.S3Config{
			Client:     client,
			Bucket:     cfg.Photo.S3.Bucket,
			Prefix:     cfg.Photo.S3.Prefix,
			PublicBase: base,
		})
	default:
		disk, err := photo.NewDisk(photo.DiskConfig{
			Root:      cfg.Photo.Root,
			ServeRoot: &url.URL{Path: rest.PhotoPath},
		})
		if err != nil {
			return nil, "", err
		}

		backend = disk
		root = disk.Root()
	}

	return photo.NewService(photo.ServiceConfig{
		Backend:   backend,
		MaxBytes:  cfg.Photo.MaxBytes,
		MaxWidth:  cfg.Photo.MaxWidth,
		MaxHeight: cfg.Photo.MaxHeight,
	}), root, nil
}

func registerProviders(ctx context.Context, authn *oauth.Authenticator, cfg config.Config) error {
	if !cfg.OAuth.Google.Enabled() {
		slog.Info("google sign in disabled")
		return nil
	}

	prvGoogle, err := provider.NewGoogle(ctx, provider.GoogleConfig{
		ClientID:     cfg.OAuth.Google.ClientID,
		ClientSecret: cfg.OAuth.Google.ClientSecret,
		RedirectURL:  cfg.OAuth.Google.RedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create google oauth provider: %w", err)
	}

	return authn.Use("google", prvGoogle)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("account service terminated with error", "error", err)
		os.Exit(1)
	}
}
