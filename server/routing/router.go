// Package routing mounts the configured route table on a chi router.
// Each route names a handler and a list of middleware; both are resolved
// from maps supplied by the server, so the YAML decides what is exposed.
package routing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/config"
	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/middleware"
	"github.com/teilomillet/studyscribe/server/validation"
)

// Middleware is a standard http middleware.
type Middleware = func(http.Handler) http.Handler

// Router handles configured HTTP routing.
// It provides:
// - Version-based path prefixes (v1, v2, etc.)
// - Named per-route middleware (auth, ratelimit)
// - JSON body enforcement on POST routes
// - Header validation
// - Method restrictions
type Router struct {
	router     chi.Router              // Chi router instance for HTTP routing
	handlers   map[string]http.Handler // Map of handler names to implementations
	middleware map[string]Middleware   // Map of middleware names usable in routes
	logger     *zap.Logger             // Logger instance for error and debug logging
	cfg        *config.Config          // Server configuration
}

// NewRouter creates a router for cfg.Routes. global middleware wraps every
// route, after request ID assignment and before panic recovery.
//
// Routes naming an unknown handler are skipped with an error log; unknown
// middleware names are skipped with a warning.
func NewRouter(cfg *config.Config, handlers map[string]http.Handler, named map[string]Middleware, logger *zap.Logger, global ...Middleware) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		router:     chi.NewRouter(),
		handlers:   handlers,
		middleware: named,
		logger:     logger,
		cfg:        cfg,
	}

	r.router.Use(middleware.RequestID)
	for _, mw := range global {
		r.router.Use(mw)
	}
	r.router.Use(errors.ErrorHandler(logger))
	r.router.Use(middleware.CORS)

	r.router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.ErrorWithType(w, "route not found", errors.InvalidRequestError, http.StatusNotFound)
	})
	r.router.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		errors.ErrorWithType(w, fmt.Sprintf("method %s not allowed", req.Method), errors.InvalidRequestError, http.StatusMethodNotAllowed)
	})

	r.setupRoutes()
	return r
}

// setupRoutes configures all routes based on the configuration.
func (r *Router) setupRoutes() {
	for _, route := range r.cfg.Routes {
		handler, ok := r.handlers[route.Handler]
		if !ok {
			r.logger.Error("handler not found", zap.String("handler", route.Handler), zap.String("path", route.Path))
			continue
		}

		path := route.Path
		if route.Version != "" {
			path = fmt.Sprintf("/%s%s", route.Version, path)
		}

		methods := route.Methods
		if len(methods) == 0 {
			methods = []string{http.MethodGet}
		}

		r.router.Group(func(router chi.Router) {
			for _, name := range route.Middleware {
				mw, ok := r.middleware[name]
				if !ok {
					r.logger.Warn("unknown middleware requested", zap.String("middleware", name))
					continue
				}
				router.Use(mw)
			}

			if acceptsBody(methods) {
				router.Use(validation.RequireJSON(r.cfg.Server.MaxBodyBytes))
			}
			if headers := otherHeaders(route.Headers); len(headers) > 0 {
				router.Use(requireHeaders(headers))
			}

			for _, method := range methods {
				router.Method(strings.ToUpper(method), path, handler)
			}
		})
		r.logger.Debug("route mounted",
			zap.String("path", path),
			zap.String("handler", route.Handler),
			zap.Strings("methods", methods),
		)
	}
}

func acceptsBody(methods []string) bool {
	for _, m := range methods {
		switch strings.ToUpper(m) {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			return true
		}
	}
	return false
}

// otherHeaders drops Content-Type, which RequireJSON checks with media type
// parsing instead of string equality.
func otherHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		out[k] = v
	}
	return out
}

func requireHeaders(headers map[string]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, value := range headers {
				if r.Header.Get(key) != value {
					errors.ErrorWithType(w, fmt.Sprintf("missing or invalid header: %s", key),
						errors.InvalidRequestError, http.StatusBadRequest)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ServeHTTP implements the http.Handler interface.
// Delegates request handling to the underlying Chi router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
