package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/cache"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/ratings"
)

const requestIDHeader = "X-Request-ID"

// lookupService is the part of ratings.Service the handlers use.
type lookupService interface {
	Ratings(ctx context.Context, q model.Query) model.RatingsResponse
	Find(ctx context.Context, q model.Query) model.FindResponse
}

// buildRouter mounts the API. caches may be nil, in which case handlers run
// without a cache and /metrics reports zeros.
func buildRouter(svc lookupService, caches *cache.Lazy, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(traceRequest)
	r.Use(logRequest)
	r.Use(recoverDegraded)
	r.Use(withCache(caches))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		c, ok := cache.FromContext(r.Context())
		if !ok {
			c = cache.NewMemory()
		}
		writeJSON(w, c.Metrics(r.Context()))
	})

	r.Get("/ratings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Ratings(r.Context(), queryFrom(r)))
	})

	r.Get("/find", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Find(r.Context(), queryFrom(r)))
	})

	return r
}

func queryFrom(r *http.Request) model.Query {
	v := r.URL.Query()
	return model.Query{
		Name:    strings.TrimSpace(v.Get("q")),
		Ticker:  strings.TrimSpace(v.Get("ticker")),
		Country: strings.TrimSpace(v.Get("country")),
	}
}

// traceRequest honours an inbound X-Request-ID or assigns one, and echoes
// it on the response.
func traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ratings.WithTraceID(r.Context(), id)))
	})
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.Query().Get("q")),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("trace_id", ratings.TraceID(r.Context())),
		)
	})
}

// recoverDegraded turns a handler panic into a degraded 200 response.
func recoverDegraded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zap.L().Error("http: panic recovered", zap.String("path", r.URL.Path), zap.Any("panic", rec))
			writeJSON(w, degraded(r, fmt.Sprintf("internal error: %v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}

// degraded is the fallback body for r's endpoint.
func degraded(r *http.Request, msg string) any {
	q := r.URL.Query().Get("q")
	meta := model.Meta{TraceID: ratings.TraceID(r.Context())}
	if r.URL.Path == "/find" {
		return model.FindResponse{
			Query:       q,
			Status:      model.StatusDegraded,
			Agencies:    map[model.Agency][]string{},
			Diagnostics: model.FindDiagnostics{Errors: []string{msg}},
			Meta:        meta,
		}
	}
	return model.RatingsResponse{
		Query:   q,
		Status:  model.StatusDegraded,
		Ratings: []model.RatingEntry{},
		Diagnostics: model.RatingsDiagnostics{
			SourcesUsed: []string{},
			Domains:     []string{},
			Errors:      []string{msg},
		},
		Meta: meta,
	}
}

func withCache(caches *cache.Lazy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caches == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := cache.WithContext(r.Context(), caches.Get(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("http: encode response", zap.Error(err))
	}
}

func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down within grace.
func startServer(ctx context.Context, handler http.Handler, port int, grace time.Duration) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}
