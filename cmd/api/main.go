package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/perlas-wallet/internal/api"
	"github.com/fastprodman/perlas-wallet/internal/app"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/pkg/envconf"
	"github.com/fastprodman/perlas-wallet/pkg/shutdownqueue"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra and services ---
	a, err := app.Build(ctx, cfg.App)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	router := api.NewRouter(api.Services{
		Wallet:    a.Wallet,
		Deposits:  a.Deposit,
		Transfers: a.Transfer,
		Webhooks:  a.Webhook,
	}, cfg.CORSOrigins)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, router)

	shutdownqueue.Add("http server", srv.Shutdown)

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port, "gateway", a.Gateway.Name())

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
