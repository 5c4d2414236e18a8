package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const envCookieTTL = 10 * time.Minute

// HTTPEnv implements the Env interface using HTTP cookies
type HTTPEnv struct {
	scope  string
	secure bool
	w      http.ResponseWriter
	r      *http.Request
}

type HTTPEnvOption func(*HTTPEnv) *HTTPEnv

// WithSecure marks the cookies as HTTPS only.
func WithSecure(secure bool) HTTPEnvOption {
	return func(e *HTTPEnv) *HTTPEnv {
		e.secure = secure
		return e
	}
}

// NewHTTPEnv creates a new HTTPEnv instance. Cookie names are prefixed with scope.
func NewHTTPEnv(scope string, w http.ResponseWriter, r *http.Request, opts ...HTTPEnvOption) *HTTPEnv {
	e := &HTTPEnv{scope: scope, w: w, r: r}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

func (e *HTTPEnv) Save(key, val string) error {
	http.SetCookie(e.w, &http.Cookie{
		Name:     e.name(key),
		Value:    val,
		Path:     "/",
		MaxAge:   int(envCookieTTL.Seconds()),
		Secure:   e.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (e *HTTPEnv) Load(key string) (string, error) {
	c, err := e.r.Cookie(e.name(key))
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", err
	}

	return c.Value, nil
}

func (e *HTTPEnv) Delete(key string) error {
	http.SetCookie(e.w, &http.Cookie{
		Name:     e.name(key),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   e.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (e *HTTPEnv) name(key string) string {
	return fmt.Sprintf("%s-%s", e.scope, key)
}
