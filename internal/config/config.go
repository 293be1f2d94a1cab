package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// EnvProd marks a deployment that moves real funds.
	EnvProd = "PROD"
	EnvDev  = "DEV"

	GatewayModeMock = "mock"
	GatewayModeLive = "live"
)

var ErrMockInProduction = errors.New("mock gateway is not allowed in production")

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig is optional: an empty Addr disables Redis-backed notifications.
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR" envDefault:""`
	Password      string `env:"REDIS_PASSWORD" envDefault:""`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	NotifyChannel string `env:"REDIS_NOTIFY_CHANNEL" envDefault:"perlas.notifications"`
	AlertChannel  string `env:"REDIS_ALERT_CHANNEL" envDefault:"perlas.alerts"`
}

// KafkaConfig is optional: no brokers means audit records go to the log only.
type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" envDefault:""`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"perlas.audit"`
}

type GatewayConfig struct {
	Mode            string        `env:"GATEWAY_MODE" envDefault:"mock"`
	BaseURL         string        `env:"GATEWAY_BASE_URL" envDefault:"https://sandbox-api.openpay.mx"`
	MerchantID      string        `env:"GATEWAY_MERCHANT_ID" envDefault:""`
	PrivateKey      string        `env:"GATEWAY_PRIVATE_KEY" envDefault:""`
	WebhookSecret   string        `env:"GATEWAY_WEBHOOK_SECRET"`
	Currency        string        `env:"GATEWAY_CURRENCY" envDefault:"MXN"`
	Timeout         time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	MockSuccessRate float64       `env:"GATEWAY_MOCK_SUCCESS_RATE" envDefault:"0.9"`
	MockLatency     time.Duration `env:"GATEWAY_MOCK_LATENCY" envDefault:"0s"`
}

// Validate is run once at startup. The mock adapter must never be reachable
// when the process runs against real funds.
func (g GatewayConfig) Validate(appEnv string) error {
	switch g.Mode {
	case GatewayModeMock:
		if strings.EqualFold(appEnv, EnvProd) {
			return ErrMockInProduction
		}

		if g.MockSuccessRate < 0 || g.MockSuccessRate > 1 {
			return fmt.Errorf("mock success rate %v out of [0,1]", g.MockSuccessRate)
		}
	case GatewayModeLive:
		if g.MerchantID == "" || g.PrivateKey == "" {
			return errors.New("live gateway requires merchant id and private key")
		}
	default:
		return fmt.Errorf("unknown gateway mode %q", g.Mode)
	}

	if g.WebhookSecret == "" {
		return errors.New("webhook secret is required")
	}

	return nil
}
