// Storefront - HTTP, SSE and MCP front end for a Shopify store's catalog
// and cart. One process serves one cart session.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
)

const shutdownGrace = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("shop_domain", cfg.Shop.Domain),
		slog.String("api_version", cfg.Shop.APIVersion),
		slog.String("state_file", cfg.StateFile),
		slog.Bool("tls_fingerprint", cfg.TLSFingerprint),
	)

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("creating storefront: %w", err)
	}

	restoreCtx, cancelRestore := context.WithTimeout(ctx, 3*cfg.RequestTimeout)
	a.Restore(restoreCtx)
	cancelRestore()

	// Event streams only end when their request context does, so every
	// request derives from streams and is canceled before Shutdown waits.
	streams, closeStreams := context.WithCancel(context.Background())
	defer closeStreams()

	// No WriteTimeout: /events holds the response open.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streams },
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	closeStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger returns a JSON logger in production (Cloud Logging reads it
// from stdout) and a text logger otherwise. Source locations are added at
// debug level.
func newLogger(environment, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
