// Package openpay is the live adapter for the Openpay REST API.
package openpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/shopspring/decimal"
)

const (
	Name = "openpay"

	maxErrorBody = 64 << 10
)

type Config struct {
	BaseURL    string
	MerchantID string
	PrivateKey string
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	return gateway.VerifyHMAC(payload, signature, secret)
}

type customerBody struct {
	ExternalID  string `json:"external_id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	RequiresAcc bool   `json:"requires_account"`
}

type customerResp struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

func (c *Client) CreateCustomer(ctx context.Context, req gateway.CustomerRequest) (gateway.Customer, error) {
	var out customerResp

	err := c.do(ctx, http.MethodPost, "/customers", customerBody{
		ExternalID:  req.ExternalID,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.Phone,
	}, &out)
	if err != nil {
		return gateway.Customer{}, err
	}

	return gateway.Customer{ID: out.ID, Name: out.Name, Email: out.Email, Phone: out.PhoneNumber}, nil
}

type chargeBody struct {
	Method          string      `json:"method"`
	SourceID        string      `json:"source_id,omitempty"`
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	Description     string      `json:"description"`
	OrderID         string      `json:"order_id"`
	DeviceSessionID string      `json:"device_session_id,omitempty"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
}

type chargeResp struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Authorization string          `json:"authorization"`
	ErrorCode     any             `json:"error_code"`
	ErrorMessage  string          `json:"error_message"`
	CreationDate  time.Time       `json:"creation_date"`
	OperationDate *time.Time      `json:"operation_date"`
	DueDate       *time.Time      `json:"due_date"`
	Card          *struct {
		Brand      string `json:"brand"`
		CardNumber string `json:"card_number"`
	} `json:"card"`
	PaymentMethod *struct {
		Type      string `json:"type"`
		Bank      string `json:"bank"`
		CLABE     string `json:"clabe"`
		Agreement string `json:"agreement"`
		Name      string `json:"name"`
		Reference string `json:"reference"`
	} `json:"payment_method"`
	FraudDetails *struct {
		RiskScore *decimal.Decimal `json:"risk_score"`
	} `json:"fraud_details"`
}

func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	body := chargeBody{
		Method:          wireMethod(req.Method),
		SourceID:        req.SourceToken,
		Amount:          json.Number(req.Amount.StringFixed(2)),
		Currency:        req.Currency,
		Description:     req.Description,
		OrderID:         req.OrderID,
		DeviceSessionID: req.DeviceSessionID,
		DueDate:         req.DueDate,
	}

	path := "/charges"
	if req.CustomerID != "" {
		path = "/customers/" + req.CustomerID + "/charges"
	}

	var out chargeResp

	err := c.do(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return gateway.Charge{}, err
	}

	return toCharge(out)
}

func (c *Client) GetCharge(ctx context.Context, chargeID string) (gateway.Charge, error) {
	var out chargeResp

	err := c.do(ctx, http.MethodGet, "/charges/"+chargeID, nil, &out)
	if err != nil {
		return gateway.Charge{}, err
	}

	return toCharge(out)
}

func wireMethod(m gateway.Method) string {
	if m == gateway.MethodBankAccount {
		return "bank_account"
	}

	return "card"
}

func toCharge(r chargeResp) (gateway.Charge, error) {
	status, ok := gateway.ParseChargeStatus(r.Status)
	if !ok {
		return gateway.Charge{}, &gateway.Error{
			Code:        gateway.CodeGatewayError,
			Description: fmt.Sprintf("unknown charge status %q", r.Status),
			Temporary:   true,
		}
	}

	ch := gateway.Charge{
		ID:                r.ID,
		OrderID:           r.OrderID,
		Status:            status,
		RawStatus:         r.Status,
		Method:            gateway.Method(r.Method),
		Amount:            r.Amount,
		Currency:          r.Currency,
		AuthorizationCode: r.Authorization,
		ErrorMessage:      r.ErrorMessage,
		CreatedAt:         r.CreationDate,
		DueDate:           r.DueDate,
	}

	if r.ErrorCode != nil {
		ch.ErrorCode = fmt.Sprint(r.ErrorCode)
	}

	if status == gateway.StatusCompleted {
		ch.ChargedAt = r.OperationDate
	}

	if r.Card != nil {
		ch.Card = &gateway.CardDetails{Brand: r.Card.Brand, Last4: last4(r.Card.CardNumber)}
	}

	if r.PaymentMethod != nil && r.PaymentMethod.CLABE != "" {
		ch.Bank = &gateway.BankInstructions{
			Bank:      r.PaymentMethod.Bank,
			CLABE:     r.PaymentMethod.CLABE,
			Agreement: r.PaymentMethod.Agreement,
			Name:      r.PaymentMethod.Name,
			Reference: r.PaymentMethod.Reference,
		}
	}

	if r.FraudDetails != nil {
		ch.RiskScore = r.FraudDetails.RiskScore
	}

	return ch, nil
}

func last4(pan string) string {
	if len(pan) < 4 {
		return pan
	}

	return pan[len(pan)-4:]
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body = bytes.NewReader(raw)
	}

	url := c.cfg.BaseURL + "/v1/" + c.cfg.MerchantID + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.SetBasicAuth(c.cfg.PrivateKey, "")
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gateway.NetworkError(err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return &gateway.Error{
			Code:        gateway.CodeGatewayError,
			Description: "unreadable response from payment provider",
			HTTPStatus:  resp.StatusCode,
			Temporary:   true,
			Err:         err,
		}
	}

	return nil
}
