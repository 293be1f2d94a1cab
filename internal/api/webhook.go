package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fastprodman/perlas-wallet/internal/services/webhook"
)

// WebhookHandler always answers 200 once an event is durably stored or
// known, so the gateway stops redelivering it. A bad signature is also
// answered with 200 and only logged.
func (h *HandlerProvider) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "unreadable body")
		return
	}

	err = h.svcs.Webhooks.HandleWebhook(r.Context(), body, r.Header.Get(HeaderSignature))

	switch {
	case err == nil, errors.Is(err, webhook.ErrInvalidSignature), errors.Is(err, webhook.ErrDuplicateWebhook):
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	case errors.Is(err, webhook.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed webhook payload")
	default:
		slog.ErrorContext(r.Context(), "webhook not stored", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
