// Package monitoring samples ledger health and raises alerts. It only reads.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	"github.com/fastprodman/perlas-wallet/internal/repos/metrics"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindHighFailureRate Kind = "HIGH_FAILURE_RATE"
	KindStuckPending    Kind = "STUCK_PENDING"
	KindVolumeSpike     Kind = "VOLUME_SPIKE"
)

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const baselineSpan = 7 * 24 * time.Hour

type Metrics struct {
	From                 time.Time
	To                   time.Time
	Total                int
	Completed            int
	Failed               int
	Pending              int
	AvgSettlementLatency time.Duration
	StuckPending         int
	Volume               decimal.Decimal
	// SevenDayAvgVolume is the volume of an average window over the seven
	// days before From.
	SevenDayAvgVolume decimal.Decimal
}

// FailureRate is failed over settled rows; ok is false with no settled rows.
func (m Metrics) FailureRate() (decimal.Decimal, bool) {
	settled := m.Completed + m.Failed
	if settled == 0 {
		return decimal.Zero, false
	}

	return decimal.NewFromInt(int64(m.Failed)).Div(decimal.NewFromInt(int64(settled))), true
}

type Alert struct {
	Kind      Kind
	Severity  string
	Message   string
	Value     string
	Threshold string
}

type Service struct {
	metrics metrics.Metrics
	alerter notify.Alerter
	policy  config.MonitoringPolicy
	now     func() time.Time
	log     *slog.Logger
}

func New(m metrics.Metrics, alerter notify.Alerter, policy config.MonitoringPolicy, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	if alerter == nil {
		alerter = notify.Nop{}
	}

	return &Service{
		metrics: m,
		alerter: alerter,
		policy:  policy,
		now:     now,
		log:     logging.Component("monitoring"),
	}
}

func (s *Service) Sample(ctx context.Context, window time.Duration) (Metrics, error) {
	to := s.now().UTC()
	from := to.Add(-window)

	m := Metrics{From: from, To: to}

	counts, err := s.metrics.TransactionCounts(ctx, from, to)
	if err != nil {
		return Metrics{}, fmt.Errorf("transaction counts: %w", err)
	}

	m.Total, m.Completed, m.Failed, m.Pending = counts.Total, counts.Completed, counts.Failed, counts.Pending

	m.AvgSettlementLatency, err = s.metrics.AvgSettlementLatency(ctx, from, to)
	if err != nil {
		return Metrics{}, fmt.Errorf("settlement latency: %w", err)
	}

	m.StuckPending, err = s.metrics.StuckPendingDeposits(ctx, to.Add(-s.policy.StuckAfter))
	if err != nil {
		return Metrics{}, fmt.Errorf("stuck deposits: %w", err)
	}

	m.Volume, err = s.metrics.DepositVolume(ctx, from, to)
	if err != nil {
		return Metrics{}, fmt.Errorf("deposit volume: %w", err)
	}

	baseline, err := s.metrics.DepositVolume(ctx, from.Add(-baselineSpan), from)
	if err != nil {
		return Metrics{}, fmt.Errorf("baseline volume: %w", err)
	}

	m.SevenDayAvgVolume = baseline.
		Mul(decimal.NewFromInt(int64(window))).
		Div(decimal.NewFromInt(int64(baselineSpan))).
		Round(2)

	return m, nil
}

func Classify(m Metrics, p config.MonitoringPolicy) []Alert {
	var alerts []Alert

	rate, ok := m.FailureRate()
	if ok && m.Completed+m.Failed >= p.MinSamples && rate.GreaterThan(p.FailureRateThreshold) {
		severity := SeverityWarning
		if rate.GreaterThan(p.FailureRateThreshold.Mul(decimal.NewFromInt(2))) {
			severity = SeverityCritical
		}

		alerts = append(alerts, Alert{
			Kind:      KindHighFailureRate,
			Severity:  severity,
			Message:   fmt.Sprintf("%d of %d settled transactions failed", m.Failed, m.Completed+m.Failed),
			Value:     rate.StringFixed(4),
			Threshold: p.FailureRateThreshold.StringFixed(4),
		})
	}

	if p.StuckThreshold > 0 && m.StuckPending >= p.StuckThreshold {
		alerts = append(alerts, Alert{
			Kind:      KindStuckPending,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("%d deposits pending for more than %s", m.StuckPending, p.StuckAfter),
			Value:     fmt.Sprint(m.StuckPending),
			Threshold: fmt.Sprint(p.StuckThreshold),
		})
	}

	if m.SevenDayAvgVolume.IsPositive() && m.Volume.GreaterThan(m.SevenDayAvgVolume.Mul(p.VolumeSpikeFactor)) {
		alerts = append(alerts, Alert{
			Kind:      KindVolumeSpike,
			Severity:  SeverityWarning,
			Message:   "deposit volume is above the seven day average",
			Value:     m.Volume.StringFixed(2),
			Threshold: m.SevenDayAvgVolume.Mul(p.VolumeSpikeFactor).StringFixed(2),
		})
	}

	return alerts
}

// Check samples one window and publishes whatever Classify finds.
func (s *Service) Check(ctx context.Context) ([]Alert, error) {
	m, err := s.Sample(ctx, s.policy.Window)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "ledger sample",
		"total", m.Total,
		"completed", m.Completed,
		"failed", m.Failed,
		"pending", m.Pending,
		"avg_settlement", m.AvgSettlementLatency,
		"stuck_pending", m.StuckPending,
		"volume", m.Volume.StringFixed(2),
	)

	alerts := Classify(m, s.policy)

	for _, a := range alerts {
		s.log.WarnContext(ctx, "monitoring alert", "kind", a.Kind, "severity", a.Severity, "value", a.Value, "threshold", a.Threshold)

		err = s.alerter.PublishAlert(ctx, notify.Alert{
			Kind:      string(a.Kind),
			Severity:  a.Severity,
			Message:   a.Message,
			Value:     a.Value,
			Threshold: a.Threshold,
			At:        m.To,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "publish alert", "kind", a.Kind, "error", err)
		}
	}

	return alerts, nil
}

// Run checks every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := s.Check(ctx)
		if err != nil {
			s.log.ErrorContext(ctx, "monitoring check", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
