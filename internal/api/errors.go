package api

import (
	"errors"
	"net/http"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
	"github.com/fastprodman/perlas-wallet/internal/services/transfer"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
)

// Stable error codes returned to clients.
const (
	codeInsufficientFunds = "INSUFFICIENT_FUNDS"
	codeWalletFrozen      = "WALLET_FROZEN"
	codeWalletInactive    = "WALLET_INACTIVE"
	codeWalletNotFound    = "WALLET_NOT_FOUND"
	codeUserNotFound      = "USER_NOT_FOUND"
	codeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	codeInvalidAmount     = "INVALID_AMOUNT"
	codeLimitExceeded     = "LIMIT_EXCEEDED"
	codeDepositExpired    = "DEPOSIT_EXPIRED"
	codeDepositNotFound   = "DEPOSIT_NOT_FOUND"
	codeDepositResolved   = "DEPOSIT_ALREADY_RESOLVED"
	codeInvalidRequest    = "INVALID_REQUEST"
	codeUnauthorized      = "UNAUTHORIZED"
	codeInternal          = "INTERNAL_ERROR"
)

type errorMapping struct {
	target      error
	status      int
	code        string
	description string
}

var errorMappings = []errorMapping{
	{wallets.ErrInsufficientFunds, http.StatusConflict, codeInsufficientFunds, "balance does not cover this operation"},
	{wallet.ErrWalletFrozen, http.StatusForbidden, codeWalletFrozen, "wallet is frozen"},
	{wallet.ErrWalletInactive, http.StatusForbidden, codeWalletInactive, "wallet is inactive"},
	{wallets.ErrWalletNotFound, http.StatusNotFound, codeWalletNotFound, "wallet not found"},
	{users.ErrUserNotFound, http.StatusNotFound, codeUserNotFound, "user not found"},
	{transfer.ErrRecipientNotFound, http.StatusNotFound, codeRecipientNotFound, "recipient not found"},
	{wallet.ErrSameWallet, http.StatusBadRequest, codeRecipientNotFound, "cannot transfer to yourself"},
	{wallet.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount, "amount must be positive with at most two decimals"},
	{deposit.ErrAmountOutOfRange, http.StatusBadRequest, codeInvalidAmount, "deposit amount is outside the allowed range"},
	{transfer.ErrAmountOutOfRange, http.StatusBadRequest, codeInvalidAmount, "transfer amount is outside the allowed range"},
	{wallet.ErrLimitExceeded, http.StatusUnprocessableEntity, codeLimitExceeded, "daily or monthly limit exceeded"},
	{deposit.ErrDepositExpired, http.StatusGone, codeDepositExpired, "deposit has expired"},
	{deposit.ErrDepositNotFound, http.StatusNotFound, codeDepositNotFound, "deposit not found"},
	{deposits.ErrDepositNotFound, http.StatusNotFound, codeDepositNotFound, "deposit not found"},
	{deposits.ErrDepositNotPending, http.StatusConflict, codeDepositResolved, "deposit was already resolved"},
	{deposit.ErrMissingToken, http.StatusBadRequest, codeInvalidRequest, "card token is required"},
}

// mapError returns the HTTP status, stable code and description for err.
// Unknown errors are internal and never described.
func mapError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.description
		}
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway, gwErr.Code, gwErr.Description
	}

	return http.StatusInternalServerError, codeInternal, "internal error"
}
