// Package diag exposes a provider's plans and metrics over HTTP and offers
// a middleware that opens one scope per request.
package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/ARTM2000/grove"
)

type scopeKey struct{}

// Router returns a chi router serving:
//
//	GET /health      liveness and the root provider id
//	GET /plans       cached plans as JSON
//	GET /plans/text  cached plans rendered as trees
//	GET /metrics     the engine metrics registry as JSON
func Router(root *grove.Provider, log logrus.FieldLogger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, log, map[string]string{"status": "ok", "provider": root.ID()})
	})
	r.Get("/plans", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, log, root.Plans())
	})
	r.Get("/plans/text", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		var b strings.Builder
		for _, p := range root.Plans() {
			b.WriteString("# " + p.ServiceType + "\n")
			if p.Plan == "" {
				b.WriteString("(not registered)\n")
			}
			b.WriteString(p.Plan)
			b.WriteString("\n")
		}
		_, _ = w.Write([]byte(b.String()))
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		metrics.WriteJSONOnce(root.Metrics(), w)
	})
	return r
}

// RequestLogger logs each request at debug level with logrus.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("request")
		})
	}
}

// Scoped opens a scope of root for every request, stores it in the request
// context and disposes it once the handler returns.
func Scoped(root *grove.Provider, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := root.CreateScope()
			if err != nil {
				log.WithError(err).Error("creating request scope")
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			defer func() {
				if err := scope.Dispose(); err != nil {
					log.WithError(err).WithField("scope", scope.ID()).Warn("disposing request scope")
				}
			}()

			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *grove.Provider) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope stored by Scoped, if any.
func ScopeFrom(ctx context.Context) (*grove.Provider, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*grove.Provider)
	return scope, ok
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("encoding response")
	}
}
