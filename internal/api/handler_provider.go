package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
	"github.com/fastprodman/perlas-wallet/internal/services/transfer"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/go-chi/chi/v5"
)

type WalletService interface {
	Open(ctx context.Context, userID uint64) error
	GetBalance(ctx context.Context, userID uint64) (wallets.Wallet, error)
	GetHistory(ctx context.Context, userID uint64, f transactions.Filter) ([]transactions.Transaction, error)
	Credit(ctx context.Context, req wallet.CreditRequest) (wallet.Result, error)
	Freeze(ctx context.Context, userID, adminID uint64, reason string) (wallets.Wallet, error)
	Unfreeze(ctx context.Context, userID, adminID uint64, reason string) (wallets.Wallet, error)
}

type DepositService interface {
	ProcessCardPayment(ctx context.Context, req deposit.CardPaymentRequest) (deposit.Result, error)
	ProcessBankTransfer(ctx context.Context, req deposit.BankTransferRequest) (deposit.Result, error)
	GetTransactionStatus(ctx context.Context, userID uint64, depositID string) (deposit.StatusView, error)
	Review(ctx context.Context, req deposit.ReviewRequest) (deposit.Outcome, error)
}

type TransferService interface {
	TransferPearls(ctx context.Context, req transfer.Request) (transfer.Result, error)
	VerifyUsername(ctx context.Context, username string) (transfer.Recipient, error)
}

type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Services struct {
	Wallet    WalletService
	Deposits  DepositService
	Transfers TransferService
	Webhooks  WebhookService
}

// HandlerProvider exposes the services as HTTP handlers.
type HandlerProvider struct {
	svcs Services
}

func NewHandler(svcs Services) *HandlerProvider {
	return &HandlerProvider{svcs: svcs}
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Description: description}})
}

// writeServiceError is the only place a service error becomes a response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, description := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	writeError(w, status, code, description)
}

// decodeBody reads a JSON body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return errors.New("empty body")
	}

	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, errors.New("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userId: %w", err)
	}

	if id == 0 {
		return 0, errors.New("invalid userId: must be positive")
	}

	return id, nil
}
