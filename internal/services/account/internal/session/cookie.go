package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DefaultCookieName = "sid"

type tokenSigner interface {
	Issue(sessionID string) (string, error)
	Validate(raw string) (string, error)
}

// Cookies carries signed session ids in an HTTP cookie.
type Cookies struct {
	name   string
	signer tokenSigner
	maxAge time.Duration
	secure bool
}

type CookiesConfig struct {
	Name   string
	Signer tokenSigner
	MaxAge time.Duration
	Secure bool
}

func NewCookies(cfg CookiesConfig) *Cookies {
	if cfg.Signer == nil {
		panic("cookie signer is required")
	}

	name := cfg.Name
	if name == "" {
		name = DefaultCookieName
	}

	return &Cookies{
		name:   name,
		signer: cfg.Signer,
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
	}
}

func (c *Cookies) Write(w http.ResponseWriter, sid string) error {
	v, err := c.signer.Issue(sid)
	if err != nil {
		return fmt.Errorf("sign session id: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    v,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session id carried by r, or an empty string when there is none.
func (c *Cookies) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", fmt.Errorf("read session cookie: %w", err)
	}

	sid, err := c.signer.Validate(ck.Value)
	if err != nil {
		return "", fmt.Errorf("validate session cookie: %w", err)
	}

	return sid, nil
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
