package config

import (
	"errors"
	"testing"

	"github.com/fastprodman/perlas-wallet/pkg/envconf"
)

func TestGatewayConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     GatewayConfig
		appEnv  string
		wantErr bool
		is      error
	}{
		{
			name:   "mock_in_dev",
			cfg:    GatewayConfig{Mode: GatewayModeMock, WebhookSecret: "s", MockSuccessRate: 0.5},
			appEnv: EnvDev,
		},
		{
			name:    "mock_in_prod_rejected",
			cfg:     GatewayConfig{Mode: GatewayModeMock, WebhookSecret: "s", MockSuccessRate: 1},
			appEnv:  "prod",
			wantErr: true,
			is:      ErrMockInProduction,
		},
		{
			name:    "live_without_credentials",
			cfg:     GatewayConfig{Mode: GatewayModeLive, WebhookSecret: "s"},
			appEnv:  EnvProd,
			wantErr: true,
		},
		{
			name:   "live_ok",
			cfg:    GatewayConfig{Mode: GatewayModeLive, WebhookSecret: "s", MerchantID: "m", PrivateKey: "k"},
			appEnv: EnvProd,
		},
		{
			name:    "missing_secret",
			cfg:     GatewayConfig{Mode: GatewayModeMock, MockSuccessRate: 1},
			appEnv:  EnvDev,
			wantErr: true,
		},
		{
			name:    "bad_success_rate",
			cfg:     GatewayConfig{Mode: GatewayModeMock, WebhookSecret: "s", MockSuccessRate: 1.5},
			appEnv:  EnvDev,
			wantErr: true,
		},
		{
			name:    "unknown_mode",
			cfg:     GatewayConfig{Mode: "sandbox", WebhookSecret: "s"},
			appEnv:  EnvDev,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate(tt.appEnv)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				return
			}

			if err == nil {
				t.Fatalf("expected error, got nil")
			}

			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("want %v, got %v", tt.is, err)
			}
		})
	}
}

//nolint:paralleltest
func TestKafkaConfig_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")

	var k KafkaConfig

	err := envconf.Load(&k)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(k.Brokers) != 2 || k.Brokers[0] != "kafka-1:9092" || k.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %q", k.Brokers)
	}

	if k.AuditTopic != "perlas.audit" {
		t.Fatalf("audit topic default = %q", k.AuditTopic)
	}
}
