package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

type fakePayPal struct {
	mu         sync.Mutex
	tokenCalls int
	requestIDs []string
	captureAs  string
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.tokenCalls++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "A21", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A21" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		f.mu.Unlock()

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad create body: %v", err)
		}
		if req.Intent != "CAPTURE" || req.PurchaseUnits[0].Amount.Value != "42.10" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"name": "UNPROCESSABLE_ENTITY", "message": "bad amount",
				"details": []map[string]string{{"issue": "AMOUNT_MISMATCH"}}})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "5O190127TN364715T",
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://api/self", "rel": "self"},
				{"href": "https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T", "rel": "approve"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T/capture", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		status := f.captureAs
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "5O190127TN364715T",
			"status": status,
			"purchase_units": []map[string]any{{
				"payments": map[string]any{"captures": []map[string]any{{
					"id": "3C679366HH908993F", "status": status,
					"amount": map[string]string{"currency_code": "USD", "value": "42.10"},
				}}},
			}},
		})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakePayPal) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{ClientID: "client", Secret: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := (Unavailable{}).CreateOrder(context.Background(), decimal.NewFromInt(1), "USD", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured from stand-in, got %v", err)
	}
}

func TestCreateAndCapture(t *testing.T) {
	f := &fakePayPal{captureAs: StatusCompleted}
	c := newTestClient(t, f)
	ctx := context.Background()

	o, err := c.CreateOrder(ctx, decimal.RequireFromString("42.1"), "USD", "Pedido tienda")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID != "5O190127TN364715T" || o.Status != StatusCreated {
		t.Errorf("unexpected order %+v", o)
	}
	if o.ApproveURL == "" {
		t.Error("expected approve link")
	}
	if !o.Amount.Equal(decimal.RequireFromString("42.10")) {
		t.Errorf("expected amount to default to the requested total, got %s", o.Amount)
	}

	captured, err := c.CaptureOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !captured.Completed() || captured.CaptureID != "3C679366HH908993F" {
		t.Errorf("unexpected capture %+v", captured)
	}

	if f.tokenCalls != 1 {
		t.Errorf("expected token reuse, got %d token calls", f.tokenCalls)
	}
	if len(f.requestIDs) != 2 || f.requestIDs[0] == "" || f.requestIDs[0] == f.requestIDs[1] {
		t.Errorf("expected distinct request ids, got %v", f.requestIDs)
	}
}

func TestCaptureNotCompleted(t *testing.T) {
	f := &fakePayPal{captureAs: StatusDeclined}
	c := newTestClient(t, f)

	o, err := c.CaptureOrder(context.Background(), "5O190127TN364715T")
	if err != nil {
		t.Fatal(err)
	}
	if o.Completed() {
		t.Error("declined capture reported as completed")
	}
}

func TestProviderError(t *testing.T) {
	c := newTestClient(t, &fakePayPal{})

	_, err := c.CreateOrder(context.Background(), decimal.RequireFromString("1.00"), "USD", "x")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Status != http.StatusUnprocessableEntity || perr.Name != "UNPROCESSABLE_ENTITY" || perr.Details[0].Issue != "AMOUNT_MISMATCH" {
		t.Errorf("unexpected error %+v", perr)
	}
}
