// Package server exposes analyses over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/render"
)

// Analyzer runs one analysis request.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Server serves the analysis API.
type Server struct {
	analyzer Analyzer
	base     config.AnalysisConfig
	cache    *ResultCache
	limiter  *rate.Limiter
	origins  []string
}

// New builds a Server. Requests start from base and override it with query
// parameters.
func New(a Analyzer, base config.AnalysisConfig, cfg config.ServerConfig) *Server {
	s := &Server{
		analyzer: a,
		base:     base,
		cache:    NewResultCache(cfg.CacheEntries, time.Duration(cfg.CacheTTLMinutes)*time.Minute),
		origins:  cfg.CORSOrigins,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// Cache exposes the response cache.
func (s *Server) Cache() *ResultCache {
	return s.cache
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cache", "X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/indices", s.handleIndices)
		r.Get("/analyses/{index}", s.handleAnalysis)
	})
	return r
}

// ListenAndServe serves on port until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.cache.Stats(),
	})
}

type indexInfo struct {
	Slug      string           `json:"slug"`
	Title     string           `json:"title"`
	Subject   coverage.Subject `json:"subject"`
	Formula   string           `json:"formula"`
	HighMeans string           `json:"high_means"`
	Direction string           `json:"direction"`
	Aliases   []string         `json:"aliases"`
}

func (s *Server) handleIndices(w http.ResponseWriter, _ *http.Request) {
	kinds := coverage.Kinds()
	out := make([]indexInfo, 0, len(kinds))
	for _, k := range kinds {
		d := k.Definition()
		dir := coverage.Descending
		if !d.Descending {
			dir = coverage.Ascending
		}
		out = append(out, indexInfo{
			Slug:      d.Slug,
			Title:     render.Title(k),
			Subject:   d.Subject,
			Formula:   d.Formula(),
			HighMeans: d.HighMeans,
			Direction: dir.String(),
			Aliases:   d.Aliases(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"indices": out})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := responseFormat(q.Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := requestFromQuery(s.base, chi.URLParam(r, "index"), q)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := cacheKey(req, format)
	if err != nil {
		writeError(w, err)
		return
	}

	if body, ct, ok := s.cache.Get(key); ok {
		w.Header().Set("Content-Type", ct)
		w.Header().Set("X-Cache", "hit")
		_, _ = w.Write(body)
		return
	}

	res, err := s.analyzer.Run(r.Context(), req)
	if err != nil {
		zap.L().Warn("server: analysis failed",
			zap.String("index", req.Index.String()),
			zap.String("area", req.Area()),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Write(&buf, res, format); err != nil {
		writeError(w, err)
		return
	}
	ct := contentType(format)
	s.cache.Put(key, buf.Bytes(), ct)

	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Cache", "miss")
	w.Header().Set("X-Run-ID", res.RunID)
	_, _ = w.Write(buf.Bytes())
}

// rateLimit rejects requests beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, coverage.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, coverage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, coverage.ErrNoInfrastructure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
