package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/riya-gandhi/authentication-api/internal/pkg/router"
)

type sessionKey struct{}

// SessionLoader resolves the session state carried by a request.
type SessionLoader[S any] func(r *http.Request) (S, error)

// Session loads the request's session state and stores it in the request context.
// A load failure is logged and the request continues with the zero state, so guarded
// handlers reject it as unauthenticated.
func Session[S any](load SessionLoader[S]) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := load(r)
			if err != nil {
				slog.Warn("failed to load session",
					"error", err,
					"method", r.Method,
					"url", r.URL.String(),
					"remote_addr", r.RemoteAddr,
				)
				var zero S
				state = zero
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the state stored by Session, or the zero state.
func SessionFromContext[S any](ctx context.Context) S {
	state, _ := ctx.Value(sessionKey{}).(S)
	return state
}
