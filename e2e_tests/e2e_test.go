package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// The suite runs against a live api started with GATEWAY_MODE=mock and the
// dev users seeded by the migrator (ana=2, beto=3, carla=4).
const (
	baseURLEnv = "PERLAS_E2E_URL"
	timeout    = 5 * time.Second
	waitReady  = 20 * time.Second

	anaID   = 2
	betoID  = 3
	carlaID = 4
)

var httpClient = &http.Client{Timeout: timeout}

func baseURL(t *testing.T) string {
	t.Helper()

	u := os.Getenv(baseURLEnv)
	if u == "" {
		t.Skipf("%s not set", baseURLEnv)
	}

	waitUntilReady(t, u)

	return u
}

func TestE2E_CardDepositThenTransfer(t *testing.T) {
	base := baseURL(t)

	anaStart := getBalance(t, base, anaID)
	betoStart := getBalance(t, base, betoID)

	t.Run("approved_card_deposit_credits_wallet", func(t *testing.T) {
		code, body := post(t, base, "/payments/card", anaID, map[string]any{
			"amount": "100.00",
			"token":  "tok_approved",
		})
		if code != http.StatusOK {
			t.Fatalf("card deposit: want 200, got %d (%s)", code, body)
		}

		got := getBalance(t, base, anaID)
		if want := anaStart.Add(decimal.NewFromInt(100)); !got.Equal(want) {
			t.Fatalf("after deposit: want %s, got %s", want, got)
		}
	})

	t.Run("declined_card_deposit_changes_nothing", func(t *testing.T) {
		before := getBalance(t, base, anaID)

		code, body := post(t, base, "/payments/card", anaID, map[string]any{
			"amount": "50.00",
			"token":  "tok_declined",
		})
		if code != http.StatusPaymentRequired {
			t.Fatalf("declined deposit: want 402, got %d (%s)", code, body)
		}

		if got := getBalance(t, base, anaID); !got.Equal(before) {
			t.Fatalf("declined deposit moved balance from %s to %s", before, got)
		}
	})

	t.Run("transfer_charges_commission", func(t *testing.T) {
		before := getBalance(t, base, anaID)

		code, body := post(t, base, "/transfers", anaID, map[string]any{
			"to_username": "beto",
			"amount":      "20.00",
		})
		if code != http.StatusOK {
			t.Fatalf("transfer: want 200, got %d (%s)", code, body)
		}

		// 5% commission on 20.00.
		if got, want := getBalance(t, base, anaID), before.Sub(decimal.RequireFromString("21.00")); !got.Equal(want) {
			t.Fatalf("sender: want %s, got %s", want, got)
		}

		if got, want := getBalance(t, base, betoID), betoStart.Add(decimal.NewFromInt(20)); !got.Equal(want) {
			t.Fatalf("receiver: want %s, got %s", want, got)
		}
	})
}

func TestE2E_RejectedRequests(t *testing.T) {
	base := baseURL(t)

	t.Run("transfer_over_balance_conflicts", func(t *testing.T) {
		bal := getBalance(t, base, carlaID)

		code, body := post(t, base, "/transfers", carlaID, map[string]any{
			"to_username": "beto",
			"amount":      bal.Add(decimal.NewFromInt(1)).StringFixed(2),
		})
		if code != http.StatusConflict && code != http.StatusBadRequest {
			t.Fatalf("over balance: want 409, got %d (%s)", code, body)
		}

		if got := getBalance(t, base, carlaID); !got.Equal(bal) {
			t.Fatalf("balance moved from %s to %s", bal, got)
		}
	})

	t.Run("three_decimal_amount", func(t *testing.T) {
		code, _ := post(t, base, "/payments/card", carlaID, map[string]any{"amount": "10.001", "token": "tok_approved"})
		if code != http.StatusBadRequest {
			t.Fatalf("bad precision: want 400, got %d", code)
		}
	})

	t.Run("unsigned_webhook_is_acknowledged", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, base+"/webhooks/gateway", bytes.NewReader([]byte(`{"type":"charge.succeeded"}`)))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("forged webhook: want 200, got %d", resp.StatusCode)
		}
	})

	t.Run("missing_identity", func(t *testing.T) {
		resp, err := httpClient.Get(base + "/wallet")
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("no identity: want 401, got %d", resp.StatusCode)
		}
	})
}

/* -------------------- helpers -------------------- */

func getBalance(t *testing.T, base string, userID uint64) decimal.Decimal {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, base+"/wallet", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	req.Header.Set("X-User-ID", fmt.Sprint(userID))

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET /wallet: want 200, got %d (%s)", resp.StatusCode, string(b))
	}

	var payload struct {
		UserID  uint64 `json:"user_id"`
		Balance string `json:"balance"`
	}

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}

	if payload.UserID != userID {
		t.Fatalf("user_id mismatch: want %d, got %d", userID, payload.UserID)
	}

	bal, err := decimal.NewFromString(payload.Balance)
	if err != nil || bal.StringFixed(2) != payload.Balance {
		t.Fatalf("invalid balance format %q", payload.Balance)
	}

	return bal
}

func post(t *testing.T, base, path string, userID uint64, body any) (int, string) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", fmt.Sprint(userID))

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

// waitUntilReady polls /healthz until it answers 200 or times out.
func waitUntilReady(t *testing.T, base string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", base, waitReady)
		case <-tick.C:
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz", nil)

			resp, err := httpClient.Do(req)
			if err != nil {
				continue
			}

			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}
