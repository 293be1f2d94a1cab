package api

import (
	"net/http"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type contactJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c contactJSON) toContact() deposit.Contact {
	return deposit.Contact{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

type cardPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Token           string          `json:"token"`
	DeviceSessionID string          `json:"device_session_id"`
	Customer        contactJSON     `json:"customer"`
}

type bankTransferRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Customer contactJSON     `json:"customer"`
}

type instructionsResponse struct {
	Bank      string `json:"bank"`
	CLABE     string `json:"clabe"`
	Agreement string `json:"agreement,omitempty"`
	Name      string `json:"name,omitempty"`
	Reference string `json:"reference"`
}

type depositResponse struct {
	DepositID     string                `json:"deposit_id"`
	ReferenceCode string                `json:"reference_code"`
	Status        deposits.Status       `json:"status"`
	Amount        string                `json:"amount"`
	PaymentMethod deposits.Method       `json:"payment_method"`
	ChargeID      string                `json:"charge_id,omitempty"`
	ChargeStatus  string                `json:"charge_status,omitempty"`
	NewBalance    string                `json:"new_balance,omitempty"`
	ExpiresAt     time.Time             `json:"expires_at"`
	Instructions  *instructionsResponse `json:"instructions,omitempty"`
	Error         *errorBody            `json:"error,omitempty"`
}

func toDepositResponse(res deposit.Result) depositResponse {
	out := depositResponse{
		DepositID:     res.Deposit.ID,
		ReferenceCode: res.Deposit.ReferenceCode,
		Status:        res.Deposit.Status,
		Amount:        res.Deposit.Amount.StringFixed(2),
		PaymentMethod: res.Deposit.PaymentMethod,
		ChargeID:      res.ChargeID,
		ExpiresAt:     res.Deposit.ExpiresAt,
	}

	if res.ChargeStatus != 0 {
		out.ChargeStatus = res.ChargeStatus.String()
	}

	if res.Deposit.Status == deposits.StatusApproved {
		out.NewBalance = res.NewBalance.StringFixed(2)
	}

	if b := res.Instructions; b != nil {
		out.Instructions = &instructionsResponse{
			Bank:      b.Bank,
			CLABE:     b.CLABE,
			Agreement: b.Agreement,
			Name:      b.Name,
			Reference: b.Reference,
		}
	}

	if res.ErrorCode != "" {
		out.Error = &errorBody{Code: res.ErrorCode, Description: res.ErrorMessage}
	}

	return out
}

// depositStatus picks the response status for a deposit attempt: approved is
// 200, rejected is 402 and anything still pending is 202.
func depositStatus(res deposit.Result) int {
	switch res.Deposit.Status {
	case deposits.StatusApproved:
		return http.StatusOK
	case deposits.StatusRejected:
		return http.StatusPaymentRequired
	default:
		return http.StatusAccepted
	}
}

func (h *HandlerProvider) CardPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req cardPaymentRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	res, err := h.svcs.Deposits.ProcessCardPayment(r.Context(), deposit.CardPaymentRequest{
		UserID:          idFromContext(r.Context(), userIDKey),
		Amount:          req.Amount,
		Token:           req.Token,
		DeviceSessionID: req.DeviceSessionID,
		Contact:         req.Customer.toContact(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeDepositResult(w, res)
}

func (h *HandlerProvider) BankTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req bankTransferRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	res, err := h.svcs.Deposits.ProcessBankTransfer(r.Context(), deposit.BankTransferRequest{
		UserID:  idFromContext(r.Context(), userIDKey),
		Amount:  req.Amount,
		Contact: req.Customer.toContact(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeDepositResult(w, res)
}

// writeDepositResult handles a gateway refusal that happened before any
// deposit was created, which leaves the result without a deposit id.
func writeDepositResult(w http.ResponseWriter, res deposit.Result) {
	if res.Deposit.ID == "" {
		status := http.StatusBadGateway
		if res.ErrorCode == gateway.CodeInvalidRequest {
			status = http.StatusBadRequest
		}

		writeError(w, status, res.ErrorCode, res.ErrorMessage)

		return
	}

	writeJSON(w, depositStatus(res), toDepositResponse(res))
}

type paymentStatusResponse struct {
	DepositID      string          `json:"deposit_id"`
	ReferenceCode  string          `json:"reference_code"`
	Status         deposits.Status `json:"status"`
	Amount         string          `json:"amount"`
	PaymentMethod  deposits.Method `json:"payment_method"`
	ChargeID       string          `json:"charge_id,omitempty"`
	ExternalStatus string          `json:"external_status,omitempty"`
	ValidatedBy    string          `json:"validated_by,omitempty"`
	ValidatedAt    *time.Time      `json:"validated_at,omitempty"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
	Error          *errorBody      `json:"error,omitempty"`
}

func (h *HandlerProvider) PaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")
	if depositID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing depositId")
		return
	}

	view, err := h.svcs.Deposits.GetTransactionStatus(r.Context(), idFromContext(r.Context(), userIDKey), depositID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	d := view.Deposit
	resp := paymentStatusResponse{
		DepositID:      d.ID,
		ReferenceCode:  d.ReferenceCode,
		Status:         d.Status,
		Amount:         d.Amount.StringFixed(2),
		PaymentMethod:  d.PaymentMethod,
		ChargeID:       view.ChargeID,
		ExternalStatus: view.ExternalStatus,
		ValidatedBy:    d.ValidatedBy,
		ValidatedAt:    d.ValidatedAt,
		ExpiresAt:      d.ExpiresAt,
		CreatedAt:      d.CreatedAt,
	}

	if view.ErrorCode != "" {
		resp.Error = &errorBody{Code: view.ErrorCode, Description: view.ErrorMessage}
	}

	writeJSON(w, http.StatusOK, resp)
}
