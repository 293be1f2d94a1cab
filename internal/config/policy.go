package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Policy holds business rules that product owns and changes without a deploy
// of new code. It is read from a YAML file layered over DefaultPolicy.
type Policy struct {
	Deposit    DepositPolicy    `yaml:"deposit"`
	Transfer   TransferPolicy   `yaml:"transfer"`
	Webhook    WebhookPolicy    `yaml:"webhook"`
	Monitoring MonitoringPolicy `yaml:"monitoring"`
}

type DepositPolicy struct {
	MinAmount decimal.Decimal `yaml:"min_amount"`
	MaxAmount decimal.Decimal `yaml:"max_amount"`
	Expiry    time.Duration   `yaml:"expiry"`
	// PollGateway lets a status lookup ask the gateway about a pending charge.
	PollGateway bool `yaml:"poll_gateway"`
	SweepBatch  int  `yaml:"sweep_batch"`
}

type TransferPolicy struct {
	// CommissionRate is a fraction of the transferred amount (0.05 = 5%).
	CommissionRate decimal.Decimal `yaml:"commission_rate"`
	MinAmount      decimal.Decimal `yaml:"min_amount"`
	MaxAmount      decimal.Decimal `yaml:"max_amount"`
	// PlatformUserID owns the wallet commissions are credited to.
	PlatformUserID uint64 `yaml:"platform_user_id"`
}

type WebhookPolicy struct {
	ReplayAfter time.Duration `yaml:"replay_after"`
	MaxAttempts int           `yaml:"max_attempts"`
	ReplayBatch int           `yaml:"replay_batch"`
}

type MonitoringPolicy struct {
	Interval             time.Duration   `yaml:"interval"`
	Window               time.Duration   `yaml:"window"`
	FailureRateThreshold decimal.Decimal `yaml:"failure_rate_threshold"`
	MinSamples           int             `yaml:"min_samples"`
	StuckAfter           time.Duration   `yaml:"stuck_after"`
	StuckThreshold       int             `yaml:"stuck_threshold"`
	VolumeSpikeFactor    decimal.Decimal `yaml:"volume_spike_factor"`
}

func DefaultPolicy() Policy {
	return Policy{
		Deposit: DepositPolicy{
			MinAmount:   decimal.NewFromInt(10),
			MaxAmount:   decimal.NewFromInt(50_000),
			Expiry:      24 * time.Hour,
			PollGateway: true,
			SweepBatch:  100,
		},
		Transfer: TransferPolicy{
			CommissionRate: decimal.RequireFromString("0.05"),
			MinAmount:      decimal.NewFromInt(1),
			MaxAmount:      decimal.NewFromInt(10_000),
			PlatformUserID: 1,
		},
		Webhook: WebhookPolicy{
			ReplayAfter: 2 * time.Minute,
			MaxAttempts: 10,
			ReplayBatch: 50,
		},
		Monitoring: MonitoringPolicy{
			Interval:             5 * time.Minute,
			Window:               time.Hour,
			FailureRateThreshold: decimal.RequireFromString("0.20"),
			MinSamples:           20,
			StuckAfter:           30 * time.Minute,
			StuckThreshold:       5,
			VolumeSpikeFactor:    decimal.NewFromInt(3),
		},
	}
}

// LoadPolicy reads path over the defaults. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	err = yaml.Unmarshal(raw, &p)
	if err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	err = p.Validate()
	if err != nil {
		return Policy{}, fmt.Errorf("validate policy: %w", err)
	}

	return p, nil
}

func (p Policy) Validate() error {
	var errs []error

	if !p.Deposit.MinAmount.IsPositive() {
		errs = append(errs, errors.New("deposit.min_amount must be > 0"))
	}

	if p.Deposit.MaxAmount.LessThan(p.Deposit.MinAmount) {
		errs = append(errs, errors.New("deposit.max_amount must be >= min_amount"))
	}

	if p.Deposit.Expiry <= 0 {
		errs = append(errs, errors.New("deposit.expiry must be > 0"))
	}

	if p.Transfer.CommissionRate.IsNegative() || p.Transfer.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("transfer.commission_rate must be in [0,1)"))
	}

	if !p.Transfer.MinAmount.IsPositive() || p.Transfer.MaxAmount.LessThan(p.Transfer.MinAmount) {
		errs = append(errs, errors.New("transfer amount bounds are invalid"))
	}

	if p.Transfer.PlatformUserID == 0 {
		errs = append(errs, errors.New("transfer.platform_user_id is required"))
	}

	if p.Webhook.MaxAttempts <= 0 {
		errs = append(errs, errors.New("webhook.max_attempts must be > 0"))
	}

	if p.Monitoring.Window <= 0 || p.Monitoring.Interval <= 0 {
		errs = append(errs, errors.New("monitoring window and interval must be > 0"))
	}

	return errors.Join(errs...)
}
