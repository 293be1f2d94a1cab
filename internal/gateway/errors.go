package gateway

import (
	"errors"
	"fmt"
)

// Stable codes surfaced to API clients.
const (
	CodeCardDeclined      = "CARD_DECLINED"
	CodeCardExpired       = "CARD_EXPIRED"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeFraudSuspected    = "FRAUD_SUSPECTED"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeGatewayError      = "GATEWAY_ERROR"
)

// Error is an adapter failure. Temporary errors say nothing about the charge
// itself (timeouts, 5xx) and must not be treated as a decline.
type Error struct {
	Code        string
	GatewayCode string
	Description string
	HTTPStatus  int
	Temporary   bool
	Err         error
}

func (e *Error) Error() string {
	if e.GatewayCode != "" {
		return fmt.Sprintf("gateway %s (%s): %s", e.Code, e.GatewayCode, e.Description)
	}

	return fmt.Sprintf("gateway %s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NetworkError(err error) *Error {
	return &Error{
		Code:        CodeNetworkError,
		Description: "payment provider is unreachable, try again later",
		Temporary:   true,
		Err:         err,
	}
}

// AsError extracts an *Error; anything else is reported as a temporary
// gateway failure since its effect on the charge is unknown.
func AsError(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	return &Error{
		Code:        CodeGatewayError,
		Description: "payment provider returned an unexpected error",
		Temporary:   true,
		Err:         err,
	}
}
