package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/wagerbook/config"
	"github.com/alejandrodnm/wagerbook/internal/adapters/httpapi"
)

func runServe(ctx context.Context, a *app, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(a.escrow, a.registry, a.arbiter).Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
