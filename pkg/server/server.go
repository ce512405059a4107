// Package server exposes the scorecard pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
	"github.com/elonfeng/scorecard/pkg/scorecard"
)

const maxUploadBytes = 32 << 20

// CacheReader reads enrichment records without fetching.
type CacheReader interface {
	Cached(ctx context.Context, name string) (enrich.Record, bool, error)
}

// Options wires the server's collaborators. Only Engine is required.
type Options struct {
	Engine         *scorecard.Engine // scores without enrichment
	EnrichEngine   *scorecard.Engine // used for ?enrich=true, nil = unavailable
	Cache          CacheReader
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Port           int
}

// Server provides the HTTP API.
type Server struct {
	opts Options
	log  zerolog.Logger
}

// New creates a new HTTP server.
func New(opts Options, log zerolog.Logger) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{opts: opts, log: log.With().Str("component", "server").Logger()}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(ar chi.Router) {
		ar.Post("/scorecard", s.handleScorecard)
		ar.Get("/cache/{name}", s.handleCache)
	})

	return r
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	engine := s.opts.Engine
	if v := r.URL.Query().Get("enrich"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enrich must be a boolean"})
			return
		}
		if on {
			if s.opts.EnrichEngine == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "enrichment not configured"})
				return
			}
			engine = s.opts.EnrichEngine
		}
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	sc, err := engine.RunCSV(r.Context(), body)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
		case funding.IsInputError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			s.log.Error().Err(err).Msg("score upload")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", scorecard.Filename(sc.GeneratedAt)))
		w.WriteHeader(http.StatusOK)
		if err := scorecard.WriteCSV(w, sc.Companies); err != nil {
			s.log.Warn().Err(err).Msg("write csv response")
		}
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if s.opts.Cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache not configured"})
		return
	}

	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	rec, ok, err := s.opts.Cache.Cached(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not cached"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"key":    enrich.CacheKey(name),
		"record": rec,
	})
}

func wantsCSV(r *http.Request) bool {
	if r.URL.Query().Get("format") == "csv" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
