package router

import (
	"net/http"
	"strings"
)

type Middleware func(http.Handler) http.Handler

type Router struct {
	prefix     string
	mux        *http.ServeMux
	middleware []Middleware
}

func New() *Router {
	return &Router{
		prefix: "",
		mux:    http.NewServeMux(),
	}
}

func (rt *Router) Use(mw ...Middleware) {
	rt.middleware = append(rt.middleware, mw...)
}

// Handle registers handler for pattern. Patterns may carry a method, as in "GET /profile".
func (rt *Router) Handle(pattern string, handler http.Handler, mw ...Middleware) {
	rt.mux.Handle(normalize(pattern), wrap(handler, mw))
}

func (rt *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request), mw ...Middleware) {
	rt.Handle(pattern, http.HandlerFunc(handler), mw...)
}

// SubRouter mounts a new router under prefix. Requests reaching it have already
// passed through the parent's middleware.
func (rt *Router) SubRouter(prefix string) *Router {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		panic("empty subrouter prefix")
	}

	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	s := &Router{
		prefix: rt.prefix + prefix,
		mux:    http.NewServeMux(),
	}

	rt.mux.Handle(prefix+"/", http.StripPrefix(prefix, s))
	return s
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wrap(rt.mux, rt.middleware).ServeHTTP(w, r)
}

func wrap(h http.Handler, mw []Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func normalize(pattern string) string {
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		method, path = "", pattern
	}

	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if method == "" {
		return path
	}
	return method + " " + path
}
