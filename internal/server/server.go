// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/estatein/internal/handler"
)

// MediaPrefix is where locally stored uploads are served.
const MediaPrefix = "/media"

// RouterOptions configure the outer layer of the router.
type RouterOptions struct {
	CORSOrigins []string
	// MediaDir, when set, is served read-only under MediaPrefix.
	MediaDir string
}

// NewRouter builds the complete HTTP handler: health and metrics endpoints,
// local media, and the session-guarded dashboard and API routes.
func NewRouter(deps handler.Deps, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	if opts.MediaDir != "" {
		r.Handle(MediaPrefix+"/*", http.StripPrefix(MediaPrefix+"/", http.FileServer(http.Dir(opts.MediaDir))))
	}

	handler.RegisterRoutes(r, deps)

	co := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return handler.Recovery(handler.Logging(co.Handler(r)))
}

// Config holds server configuration.
type Config struct {
	Port            int
	Handler         http.Handler
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info().Msg("shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
