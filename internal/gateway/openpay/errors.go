package openpay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
)

type errorResp struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	HTTPCode    int    `json:"http_code"`
	ErrorCode   int    `json:"error_code"`
	RequestID   string `json:"request_id"`
}

// codeMap translates Openpay error codes into stable codes. Card problems
// are final for the charge; everything else is decided by HTTP status.
var codeMap = map[int]string{
	2004: gateway.CodeCardDeclined,
	2005: gateway.CodeCardExpired,
	3001: gateway.CodeCardDeclined,
	3002: gateway.CodeCardExpired,
	3003: gateway.CodeInsufficientFunds,
	3004: gateway.CodeFraudSuspected,
	3005: gateway.CodeFraudSuspected,
	3006: gateway.CodeCardDeclined,
	3009: gateway.CodeFraudSuspected,
	3010: gateway.CodeCardDeclined,
	3011: gateway.CodeCardDeclined,
	3012: gateway.CodeCardDeclined,
}

func decodeError(resp *http.Response) error {
	var body errorResp

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)

	e := &gateway.Error{
		GatewayCode: fmt.Sprint(body.ErrorCode),
		Description: body.Description,
		HTTPStatus:  resp.StatusCode,
	}

	if body.ErrorCode == 0 {
		e.GatewayCode = ""
	}

	if e.Description == "" {
		e.Description = http.StatusText(resp.StatusCode)
	}

	code, ok := codeMap[body.ErrorCode]

	switch {
	case ok:
		e.Code = code
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		e.Code = gateway.CodeGatewayError
		e.Temporary = true
	case resp.StatusCode == http.StatusPaymentRequired:
		e.Code = gateway.CodeCardDeclined
	default:
		e.Code = gateway.CodeInvalidRequest
	}

	return e
}
