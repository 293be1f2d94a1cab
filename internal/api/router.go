package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderAdminID   = "X-Admin-ID"
	HeaderSignature = "X-Gateway-Signature"
)

// NewRouter registers every endpoint. Identity headers are set by the
// upstream auth layer and trusted as is.
func NewRouter(svcs Services, allowedOrigins []string) http.Handler {
	h := NewHandler(svcs)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(40 * time.Second))

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderUserID, HeaderAdminID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The gateway authenticates with its signature, not identity headers.
	r.Post("/webhooks/gateway", h.WebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(requireID(HeaderUserID, userIDKey))

		r.Post("/payments/card", h.CardPaymentHandler)
		r.Post("/payments/bank-transfer", h.BankTransferHandler)
		r.Get("/payments/{depositId}", h.PaymentStatusHandler)

		r.Get("/wallet", h.GetWalletHandler)
		r.Get("/wallet/transactions", h.GetHistoryHandler)

		r.Post("/transfers", h.TransferHandler)
		r.Get("/users/{username}/verify", h.VerifyUsernameHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireID(HeaderAdminID, adminIDKey))

		r.Post("/wallets/{userId}/freeze", h.FreezeHandler)
		r.Post("/wallets/{userId}/unfreeze", h.UnfreezeHandler)
		r.Post("/wallets/{userId}/credit", h.AdminCreditHandler)
		r.Post("/deposits/{depositId}/review", h.ReviewDepositHandler)
	})

	return r
}
