// Package server assembles the HTTP surface: the payment webhook, the
// operator receipt endpoints and the health check.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fiskal/internal/adapters/http/health"
	"fiskal/internal/adapters/http/receipts"
	"fiskal/internal/adapters/http/webhook"
	"fiskal/internal/infrastructure/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	log        *slog.Logger
	httpServer *http.Server
}

type Options struct {
	Addr     string
	Logger   *slog.Logger
	Webhook  *webhook.Handler
	Receipts *receipts.Handler
	Health   *health.Handler
}

func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))

	r.Get("/health", opts.Health.HandleCheck)
	r.Post("/stripe/payment-intent", opts.Webhook.HandlePaymentIntent)
	r.Get("/receipts/{number}", opts.Receipts.HandleGet)
	r.Post("/receipts/{number}/retry", opts.Receipts.HandleRetry)

	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // a webhook request spans a full authority exchange
		IdleTimeout:  120 * time.Second,
	}

	return &Server{log: opts.Logger, httpServer: srv}, nil
}

// Run serves until the context is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
