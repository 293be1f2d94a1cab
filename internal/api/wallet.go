package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/services/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type walletResponse struct {
	UserID       uint64 `json:"user_id"`
	Balance      string `json:"balance"`
	DailyLimit   string `json:"daily_limit"`
	MonthlyLimit string `json:"monthly_limit"`
	IsActive     bool   `json:"is_active"`
	IsFrozen     bool   `json:"is_frozen"`
	FrozenReason string `json:"frozen_reason,omitempty"`
}

func toWalletResponse(wl wallets.Wallet) walletResponse {
	return walletResponse{
		UserID:       wl.UserID,
		Balance:      wl.Balance.StringFixed(2),
		DailyLimit:   wl.DailyLimit.StringFixed(2),
		MonthlyLimit: wl.MonthlyLimit.StringFixed(2),
		IsActive:     wl.IsActive,
		IsFrozen:     wl.IsFrozen,
		FrozenReason: wl.FrozenReason,
	}
}

type transactionResponse struct {
	ID            string              `json:"id"`
	Type          transactions.Type   `json:"type"`
	Amount        string              `json:"amount"`
	Description   string              `json:"description,omitempty"`
	Status        transactions.Status `json:"status"`
	FromUserID    *uint64             `json:"from_user_id,omitempty"`
	ToUserID      *uint64             `json:"to_user_id,omitempty"`
	ReferenceID   string              `json:"reference_id,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

func (h *HandlerProvider) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID := idFromContext(r.Context(), userIDKey)

	// Wallets are opened on first sight.
	err := h.svcs.Wallet.Open(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	wl, err := h.svcs.Wallet.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toWalletResponse(wl))
}

func (h *HandlerProvider) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	txns, err := h.svcs.Wallet.GetHistory(r.Context(), idFromContext(r.Context(), userIDKey), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionResponse{
			ID:            t.ID,
			Type:          t.Type,
			Amount:        t.Amount.StringFixed(2),
			Description:   t.Description,
			Status:        t.Status,
			FromUserID:    t.FromUserID,
			ToUserID:      t.ToUserID,
			ReferenceID:   t.ReferenceID,
			CorrelationID: t.CorrelationID,
			CreatedAt:     t.CreatedAt,
			CompletedAt:   t.CompletedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func parseHistoryFilter(q url.Values) (transactions.Filter, error) {
	f := transactions.Filter{Limit: defaultHistoryLimit}

	if v := q.Get("type"); v != "" {
		f.Type = transactions.Type(v)
		if !f.Type.Valid() {
			return transactions.Filter{}, fmt.Errorf("invalid type %q", v)
		}
	}

	if v := q.Get("status"); v != "" {
		f.Status = transactions.Status(v)
	}

	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}

		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return transactions.Filter{}, fmt.Errorf("invalid %s: %w", key, err)
		}

		*dst = t
	}

	for key, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return transactions.Filter{}, fmt.Errorf("invalid %s", key)
		}

		*dst = n
	}

	if f.Limit == 0 || f.Limit > maxHistoryLimit {
		f.Limit = maxHistoryLimit
	}

	return f, nil
}

type transferRequest struct {
	ToUsername  string          `json:"to_username"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type recipientResponse struct {
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

type transferResponse struct {
	CorrelationID   string            `json:"correlation_id"`
	SenderTxnID     string            `json:"sender_transaction_id"`
	ReceiverTxnID   string            `json:"receiver_transaction_id"`
	CommissionTxnID string            `json:"commission_transaction_id,omitempty"`
	Amount          string            `json:"amount"`
	Commission      string            `json:"commission"`
	NewBalance      string            `json:"new_balance"`
	Recipient       recipientResponse `json:"recipient"`
}

func toRecipientResponse(rc transfer.Recipient) recipientResponse {
	return recipientResponse{UserID: rc.UserID, Username: rc.Username, DisplayName: rc.DisplayName}
}

func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	if req.ToUsername == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "to_username is required")
		return
	}

	res, err := h.svcs.Transfers.TransferPearls(r.Context(), transfer.Request{
		FromUserID:  idFromContext(r.Context(), userIDKey),
		ToUsername:  req.ToUsername,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{
		CorrelationID:   res.CorrelationID,
		SenderTxnID:     res.SenderTxnID,
		ReceiverTxnID:   res.ReceiverTxnID,
		CommissionTxnID: res.CommissionTxnID,
		Amount:          res.Amount.StringFixed(2),
		Commission:      res.Commission.StringFixed(2),
		NewBalance:      res.NewBalance.StringFixed(2),
		Recipient:       toRecipientResponse(res.Recipient),
	})
}

func (h *HandlerProvider) VerifyUsernameHandler(w http.ResponseWriter, r *http.Request) {
	rc, err := h.svcs.Transfers.VerifyUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecipientResponse(rc))
}
