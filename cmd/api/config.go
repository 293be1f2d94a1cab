package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/app"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// Empty allows any origin.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
	App         app.Config
}
