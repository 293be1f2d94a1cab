package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type freezeRequest struct {
	Reason string `json:"reason"`
}

type adminCreditRequest struct {
	Amount      decimal.Decimal   `json:"amount"`
	Type        transactions.Type `json:"type"`
	Description string            `json:"description"`
	ReferenceID string            `json:"reference_id"`
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

func (h *HandlerProvider) FreezeHandler(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, h.svcs.Wallet.Freeze)
}

func (h *HandlerProvider) UnfreezeHandler(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, h.svcs.Wallet.Unfreeze)
}

type freezeFunc func(ctx context.Context, userID, adminID uint64, reason string) (wallets.Wallet, error)

func (h *HandlerProvider) setFrozen(w http.ResponseWriter, r *http.Request, fn freezeFunc) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	var req freezeRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "reason is required")
		return
	}

	wl, err := fn(r.Context(), userID, idFromContext(r.Context(), adminIDKey), req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toWalletResponse(wl))
}

func (h *HandlerProvider) AdminCreditHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	var req adminCreditRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	adminID := idFromContext(r.Context(), adminIDKey)

	res, err := h.svcs.Wallet.Credit(r.Context(), wallet.CreditRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
		AdminID:     &adminID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": res.Transaction.ID,
		"new_balance":    res.NewBalance.StringFixed(2),
	})
}

func (h *HandlerProvider) ReviewDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	out, err := h.svcs.Deposits.Review(r.Context(), deposit.ReviewRequest{
		DepositID: chi.URLParam(r, "depositId"),
		AdminID:   idFromContext(r.Context(), adminIDKey),
		Approve:   req.Approve,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"deposit_id":   out.Deposit.ID,
		"status":       out.Deposit.Status,
		"validated_by": out.Deposit.ValidatedBy,
	}
	if out.Deposit.Status == deposits.StatusApproved {
		resp["new_balance"] = out.NewBalance.StringFixed(2)
	}

	writeJSON(w, http.StatusOK, resp)
}
