package provider

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleIssuer       string = "https://accounts.google.com"
	googleScopeEmail   string = "email"
	googleScopeProfile string = "profile"
)

// Google implements the identityProvider interface for Google OAuth
type Google struct {
	cfg      *oauth2.Config
	verifier idTokenVerifier
}

type idTokenVerifier interface {
	Verify(ctx context.Context, raw string) (*oidc.IDToken, error)
}

// GoogleConfig holds the configuration for the Google OAuth provider
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type userClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// NewGoogle discovers Google's OIDC configuration and creates the provider
func NewGoogle(ctx context.Context, google GoogleConfig) (*Google, error) {
	p, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &Google{
		cfg: &oauth2.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			RedirectURL:  google.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, googleScopeProfile, googleScopeEmail},
			Endpoint:     endpoints.Google,
		},
		verifier: p.Verifier(&oidc.Config{ClientID: google.ClientID}),
	}, nil
}

// LoginURL generates the Google OAuth login URL with the given state and nonce
func (g *Google) LoginURL(state, nonce string) (string, error) {
	return g.cfg.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// Exchange exchanges the authorization code for a verified profile
func (g *Google) Exchange(ctx context.Context, code string) (oauth.User, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return oauth.User{}, err
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return oauth.User{}, errors.New("token response has no id_token")
	}

	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return oauth.User{}, fmt.Errorf("verify id token: %w", err)
	}

	var usr userClaims
	if err := idTok.Claims(&usr); err != nil {
		return oauth.User{}, fmt.Errorf("read claims: %w", err)
	}

	return toUser(idTok.Nonce, usr), nil
}

func toUser(nonce string, usr userClaims) oauth.User {
	return oauth.User{
		Nonce:         nonce,
		ID:            usr.Sub,
		Email:         usr.Email,
		EmailVerified: usr.Verified,
		Picture:       usr.Picture,
		Name:          nameOrDefault(usr.Name, defaultName(usr)),
	}
}

// nameOrDefault returns the user's name if it's not empty; otherwise, it returns the default name
func nameOrDefault(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

// defaultName derives a stable display name from the subject identifier
func defaultName(usr userClaims) string {
	sum := sha1.Sum([]byte(usr.Sub))
	return fmt.Sprintf("google_%x", sum[:8])
}
