// Package app assembles the services shared by the api and worker binaries
// from environment configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/gateway/mock"
	"github.com/fastprodman/perlas-wallet/internal/gateway/openpay"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	customerspg "github.com/fastprodman/perlas-wallet/internal/repos/customers/postgres"
	depositspg "github.com/fastprodman/perlas-wallet/internal/repos/deposits/postgres"
	gatewaytxnspg "github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns/postgres"
	metricspg "github.com/fastprodman/perlas-wallet/internal/repos/metrics/postgres"
	transactionspg "github.com/fastprodman/perlas-wallet/internal/repos/transactions/postgres"
	userspg "github.com/fastprodman/perlas-wallet/internal/repos/users/postgres"
	walletspg "github.com/fastprodman/perlas-wallet/internal/repos/wallets/postgres"
	webhookeventspg "github.com/fastprodman/perlas-wallet/internal/repos/webhookevents/postgres"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
	"github.com/fastprodman/perlas-wallet/internal/services/monitoring"
	"github.com/fastprodman/perlas-wallet/internal/services/transfer"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/fastprodman/perlas-wallet/internal/services/webhook"
	"github.com/fastprodman/perlas-wallet/pkg/shutdownqueue"
	"github.com/redis/go-redis/v9"
)

// Config is embedded by each binary's env config.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"DEV"`
	PolicyPath string `env:"POLICY_PATH" envDefault:""`
	Postgres   config.PostgresConfig
	Redis      config.RedisConfig
	Kafka      config.KafkaConfig
	Gateway    config.GatewayConfig
}

type App struct {
	DB         *sql.DB
	Policy     config.Policy
	Gateway    gateway.Gateway
	Wallet     *wallet.Service
	Deposit    *deposit.Service
	Transfer   *transfer.Service
	Webhook    *webhook.Service
	Monitoring *monitoring.Service
}

// Build opens every backing connection and registers its close with the
// shutdown queue. Redis and Kafka are optional.
func Build(ctx context.Context, cfg Config) (*App, error) {
	err := cfg.Gateway.Validate(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error {
		return db.Close()
	})

	var (
		notifier notify.Notifier = notify.Nop{}
		alerter  notify.Alerter  = notify.Nop{}
	)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		err = rdb.Ping(ctx).Err()
		if err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}

		shutdownqueue.Add("redis", func(context.Context) error {
			return rdb.Close()
		})

		r := notify.NewRedis(rdb, cfg.Redis.NotifyChannel, cfg.Redis.AlertChannel)
		notifier, alerter = r, r
	}

	async := notify.NewAsync(notifier, 0)

	// Registered after the redis close so pending sends drain first.
	shutdownqueue.Add("notifications", func(context.Context) error {
		async.Wait()
		return nil
	})

	var auditor audit.Auditor = audit.NewLog(slog.Default())

	if len(cfg.Kafka.Brokers) > 0 {
		kw := audit.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)

		shutdownqueue.Add("kafka", func(context.Context) error {
			return kw.Close()
		})

		ka := audit.NewKafka(kw, auditor)

		// Runs before the writer close so queued records get written.
		shutdownqueue.Add("audit", ka.Close)

		auditor = ka
	}

	gw := newGateway(cfg.Gateway)
	slog.Info("payment gateway configured", "gateway", gw.Name(), "env", cfg.AppEnv)

	tx := pgutils.Runner{DB: db}
	idGen := ids.NewGenerator()
	usersRepo := userspg.New(db)

	w := wallet.New(wallet.Deps{
		Tx:             tx,
		Users:          usersRepo,
		Wallets:        walletspg.New(db),
		Transactions:   transactionspg.New(db),
		Auditor:        auditor,
		IDs:            idGen,
		PlatformUserID: policy.Transfer.PlatformUserID,
	})

	dep := deposit.New(deposit.Deps{
		Tx:        tx,
		Deposits:  depositspg.New(db),
		Charges:   gatewaytxnspg.New(db),
		Customers: customerspg.New(db),
		Wallet:    w,
		Gateway:   gw,
		Notifier:  async,
		Auditor:   auditor,
		IDs:       idGen,
		Policy:    policy.Deposit,
		Currency:  cfg.Gateway.Currency,
	})

	return &App{
		DB:      db,
		Policy:  policy,
		Gateway: gw,
		Wallet:  w,
		Deposit: dep,
		Transfer: transfer.New(transfer.Deps{
			Users:    usersRepo,
			Wallet:   w,
			Notifier: async,
			Policy:   policy.Transfer,
		}),
		Webhook: webhook.New(webhook.Deps{
			Tx:      tx,
			Events:  webhookeventspg.New(db),
			Deposit: dep,
			Gateway: gw,
			Auditor: auditor,
			Secret:  cfg.Gateway.WebhookSecret,
			Policy:  policy.Webhook,
		}),
		Monitoring: monitoring.New(metricspg.New(db), alerter, policy.Monitoring, time.Now),
	}, nil
}

func newGateway(cfg config.GatewayConfig) gateway.Gateway {
	if cfg.Mode == config.GatewayModeLive {
		return openpay.New(openpay.Config{
			BaseURL:    cfg.BaseURL,
			MerchantID: cfg.MerchantID,
			PrivateKey: cfg.PrivateKey,
			Timeout:    cfg.Timeout,
		})
	}

	return mock.New(mock.Config{SuccessRate: cfg.MockSuccessRate, Latency: cfg.MockLatency})
}
