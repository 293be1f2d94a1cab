// Package mock is a synchronous stand-in for the payment gateway. Outcomes
// depend only on the order id, the source token and the configured success
// rate, so a given request always behaves the same way.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
)

const Name = "mock"

// Source tokens that force an outcome regardless of the success rate.
const (
	TokenApproved     = "tok_approved"
	TokenPending      = "tok_pending"
	TokenDeclined     = "tok_declined"
	TokenNetworkError = "tok_network_error"
)

type Config struct {
	SuccessRate float64
	Latency     time.Duration
	// Sleep waits for Latency. Tests leave Latency at zero.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

type Gateway struct {
	cfg Config

	mu      sync.Mutex
	charges map[string]gateway.Charge
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(cfg Config) *Gateway {
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Gateway{cfg: cfg, charges: map[string]gateway.Charge{}}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return gateway.NetworkError(ctx.Err())
	case <-t.C:
		return nil
	}
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	return gateway.VerifyHMAC(payload, signature, secret)
}

func (g *Gateway) CreateCustomer(ctx context.Context, req gateway.CustomerRequest) (gateway.Customer, error) {
	err := g.cfg.Sleep(ctx, g.cfg.Latency)
	if err != nil {
		return gateway.Customer{}, err
	}

	return gateway.Customer{
		ID:    "cus_mock_" + req.ExternalID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, nil
}

func (g *Gateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	err := g.cfg.Sleep(ctx, g.cfg.Latency)
	if err != nil {
		return gateway.Charge{}, err
	}

	now := g.cfg.Now().UTC()

	ch := gateway.Charge{
		ID:        "trm_" + req.OrderID,
		OrderID:   req.OrderID,
		Method:    req.Method,
		Amount:    req.Amount,
		Currency:  req.Currency,
		CreatedAt: now,
	}

	switch {
	case req.Method == gateway.MethodBankAccount:
		ch.Status = gateway.StatusPending
		ch.Bank = &gateway.BankInstructions{
			Bank:      "STP",
			CLABE:     clabeFor(req.OrderID),
			Agreement: "000000",
			Name:      "Perlas",
			Reference: req.OrderID,
		}
		ch.DueDate = req.DueDate
	case req.SourceToken == TokenNetworkError:
		return gateway.Charge{}, gateway.NetworkError(fmt.Errorf("mock: connection reset"))
	case req.SourceToken == TokenDeclined:
		return gateway.Charge{}, declined()
	case req.SourceToken == TokenPending:
		ch.Status = gateway.StatusPending
	case req.SourceToken == TokenApproved || g.approves(req.OrderID):
		ch.Status = gateway.StatusCompleted
		ch.AuthorizationCode = authCode(req.OrderID)
		ch.ChargedAt = &now
	default:
		return gateway.Charge{}, declined()
	}

	if req.Method == gateway.MethodCard {
		ch.Card = &gateway.CardDetails{Brand: "visa", Last4: "4242"}
	}

	ch.RawStatus = ch.Status.String()

	g.mu.Lock()
	g.charges[ch.ID] = ch
	g.mu.Unlock()

	return ch, nil
}

func (g *Gateway) GetCharge(ctx context.Context, chargeID string) (gateway.Charge, error) {
	err := g.cfg.Sleep(ctx, g.cfg.Latency)
	if err != nil {
		return gateway.Charge{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.charges[chargeID]
	if !ok {
		return gateway.Charge{}, &gateway.Error{
			Code:        gateway.CodeInvalidRequest,
			GatewayCode: "1005",
			Description: "the requested resource doesn't exist",
			HTTPStatus:  404,
		}
	}

	return ch, nil
}

// Settle moves a pending charge to status, as the gateway would after the
// payer acts, and returns the updated charge.
func (g *Gateway) Settle(chargeID string, status gateway.ChargeStatus) (gateway.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.charges[chargeID]
	if !ok {
		return gateway.Charge{}, fmt.Errorf("mock: unknown charge %s", chargeID)
	}

	ch.Status = status
	ch.RawStatus = status.String()

	if status == gateway.StatusCompleted {
		now := g.cfg.Now().UTC()
		ch.ChargedAt = &now
		ch.AuthorizationCode = authCode(ch.OrderID)
	}

	g.charges[chargeID] = ch

	return ch, nil
}

// approves buckets the order id into [0,1) and compares with SuccessRate.
func (g *Gateway) approves(orderID string) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))

	return float64(h.Sum32()%10_000)/10_000 < g.cfg.SuccessRate
}

func declined() *gateway.Error {
	return &gateway.Error{
		Code:        gateway.CodeCardDeclined,
		GatewayCode: "3001",
		Description: "The card was declined by the bank",
		HTTPStatus:  402,
	}
}

func authCode(orderID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte("auth:" + orderID))

	return fmt.Sprintf("%06d", h.Sum32()%1_000_000)
}

func clabeFor(orderID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(orderID))

	return fmt.Sprintf("646180%012d", h.Sum64()%1_000_000_000_000)
}

type webhookTxn struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Authorization string `json:"authorization,omitempty"`
}

type webhookBody struct {
	ID          string     `json:"id,omitempty"`
	Type        string     `json:"type"`
	EventDate   time.Time  `json:"event_date"`
	Transaction webhookTxn `json:"transaction"`
}

// WebhookPayload renders the notification the gateway would send for the
// current state of a charge.
func (g *Gateway) WebhookPayload(eventID, chargeID string) ([]byte, error) {
	g.mu.Lock()
	ch, ok := g.charges[chargeID]
	g.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("mock: unknown charge %s", chargeID)
	}

	eventType := gateway.EventChargePending

	switch ch.Status {
	case gateway.StatusCompleted:
		eventType = gateway.EventChargeSucceeded
	case gateway.StatusFailed:
		eventType = gateway.EventChargeFailed
	case gateway.StatusCancelled:
		eventType = gateway.EventChargeCancelled
	case gateway.StatusPending:
	}

	raw, err := json.Marshal(webhookBody{
		ID:        eventID,
		Type:      string(eventType),
		EventDate: g.cfg.Now().UTC(),
		Transaction: webhookTxn{
			ID:            ch.ID,
			OrderID:       ch.OrderID,
			Status:        ch.RawStatus,
			Authorization: ch.AuthorizationCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook: %w", err)
	}

	return raw, nil
}
