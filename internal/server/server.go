// Package server exposes basket analysis over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
)

const defaultMaxUpload = 32 << 20

// entryBytesPerUpload bounds how far one XLSX part may inflate relative to
// the upload cap.
const entryBytesPerUpload = 8

// Options configures a Server.
type Options struct {
	// RunsDir holds saved runs; empty disables the runs endpoints and saving.
	RunsDir        string
	AllowedOrigins []string
	// MaxUploadBytes caps the multipart body; 0 means 32 MiB. Unless Load
	// sets its own, each decompressed XLSX part is capped at 8x this.
	MaxUploadBytes int64
	// Timeout bounds one analysis; 0 leaves only the request context.
	Timeout time.Duration
	// Defaults seed parameters the request does not set.
	Defaults mining.Params
	Load     analysis.Options
	Logger   *slog.Logger
}

// Server holds the handlers and their shared read-only settings.
type Server struct {
	opt Options
	log *slog.Logger
}

// New returns a Server. Zero-valued options fall back to package defaults.
func New(opt Options) *Server {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = defaultMaxUpload
	}
	if opt.Load.MaxEntryBytes <= 0 {
		opt.Load.MaxEntryBytes = entryBytesPerUpload * opt.MaxUploadBytes
	}
	if opt.Defaults == (mining.Params{}) {
		opt.Defaults = mining.DefaultParams()
	}
	if len(opt.AllowedOrigins) == 0 {
		opt.AllowedOrigins = []string{"*"}
	}
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Server{opt: opt, log: lg}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opt.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Post("/api/analyze", s.analyze)
	r.Get("/api/runs", s.listRuns)
	r.Get("/api/runs/{id}", s.getRun)
	r.Get("/api/runs/{id}/csv/{kind}", s.runCSV)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "runs_dir", s.opt.RunsDir)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
