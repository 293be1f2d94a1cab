// Command worker runs the background reconciliation loops: expiring stale
// deposits, replaying unprocessed webhooks and watching payment health.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/app"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/pkg/envconf"
	"github.com/fastprodman/perlas-wallet/pkg/shutdownqueue"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

type workerConfig struct {
	LogLevel        slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	ReplayInterval  time.Duration `env:"REPLAY_INTERVAL" envDefault:"30s"`
	App             app.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running worker: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load()

	cfg := new(workerConfig)

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

	a, err := app.Build(ctx, cfg.App)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(gctx, cfg.SweepInterval, "expire deposits", a.Deposit.ExpireStale)
	})

	g.Go(func() error {
		return every(gctx, cfg.ReplayInterval, "replay webhooks", a.Webhook.ReplayPending)
	})

	g.Go(func() error {
		return a.Monitoring.Run(gctx, a.Policy.Monitoring.Interval)
	})

	slog.Info("Worker started")

	err = g.Wait()
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	return nil
}

// every runs fn on each tick until ctx is done. A failed pass is logged and
// retried on the next tick.
func every(ctx context.Context, interval time.Duration, name string, fn func(context.Context) (int, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n, err := fn(ctx)
		if err != nil {
			slog.Error("job failed", "job", name, "handled", n, "error", err)
			continue
		}

		if n > 0 {
			slog.Info("job done", "job", name, "handled", n)
		}
	}
}
