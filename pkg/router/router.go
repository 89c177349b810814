package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string // empty matches any method
	pattern string
	handler http.Handler
}

// Router matches routes in registration order, so register specific
// patterns before the wildcards that would also match them. A "*" segment
// matches one path segment; a trailing "*" matches the rest of the path.
type Router struct {
	routes []route
	logger *zap.Logger
}

func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger.Named("http")}
}

type paramsKey struct{}

// Params returns the path segments matched by "*" in the route pattern.
func Params(r *http.Request) []string {
	p, _ := r.Context().Value(paramsKey{}).([]string)
	return p
}

// Param returns the i-th wildcard value, or "" when there is none.
func Param(r *http.Request, i int) string {
	p := Params(r)
	if i < 0 || i >= len(p) {
		return ""
	}
	return p[i]
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	var allowed []string
	served := false
	for _, rt := range r.routes {
		params, ok := matchWildcardRoute(req.URL.Path, rt.pattern)
		if !ok {
			continue
		}
		if rt.method != "" && rt.method != req.Method {
			allowed = append(allowed, rt.method)
			continue
		}
		ctx := context.WithValue(req.Context(), paramsKey{}, params)
		rt.handler.ServeHTTP(lrw, req.WithContext(ctx))
		served = true
		break
	}

	if !served {
		if len(allowed) > 0 {
			lrw.Header().Set("Allow", strings.Join(allowed, ", "))
			http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
		} else {
			http.Error(lrw, "Not Found", http.StatusNotFound)
		}
	}

	r.logger.Info("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", lrw.statusCode),
		zap.Duration("duration", time.Since(start)),
	)
}

// matchWildcardRoute reports whether requestPath matches routePattern and
// returns the values captured by its wildcards.
func matchWildcardRoute(requestPath, routePattern string) ([]string, bool) {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	var params []string
	last := len(routeSegments) - 1

	// trailing wildcard swallows the remaining segments
	if routeSegments[last] == "*" {
		if len(requestSegments) < len(routeSegments) {
			return nil, false
		}
		for i := 0; i < last; i++ {
			if routeSegments[i] == "*" {
				params = append(params, requestSegments[i])
				continue
			}
			if requestSegments[i] != routeSegments[i] {
				return nil, false
			}
		}
		rest := strings.Join(requestSegments[last:], "/")
		if rest == "" {
			return nil, false
		}
		return append(params, rest), true
	}

	if len(requestSegments) != len(routeSegments) {
		return nil, false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return nil, false
			}
			params = append(params, requestSegments[i])
			continue
		}
		if requestSegments[i] != routeSegment {
			return nil, false
		}
	}
	return params, true
}

func (r *Router) register(method, path string, handler http.Handler) {
	r.routes = append(r.routes, route{method: method, pattern: path, handler: handler})
}

func (r *Router) GET(path string, handler HandlerFunc) {
	r.register(http.MethodGet, path, http.HandlerFunc(handler))
}
func (r *Router) POST(path string, handler HandlerFunc) {
	r.register(http.MethodPost, path, http.HandlerFunc(handler))
}
func (r *Router) PUT(path string, handler HandlerFunc) {
	r.register(http.MethodPut, path, http.HandlerFunc(handler))
}
func (r *Router) PATCH(path string, handler HandlerFunc) {
	r.register(http.MethodPatch, path, http.HandlerFunc(handler))
}
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, http.HandlerFunc(handler))
}

// Handle mounts handler for every method.
func (r *Router) Handle(path string, handler http.Handler) {
	r.register("", path, handler)
}

// Patterns lists the registered routes as "METHOD PATTERN".
func (r *Router) Patterns() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		m := rt.method
		if m == "" {
			m = "*"
		}
		out = append(out, m+" "+rt.pattern)
	}
	return out
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
