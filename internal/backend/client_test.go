package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/backend/backendtest"
	"github.com/rogerio-castellano/storefront/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newClient(t *testing.T, srv *backendtest.Server, token string, onUnauthorized func(context.Context)) *backend.Client {
	t.Helper()
	c, err := backend.New(backend.Options{
		BaseURL:        srv.BaseURL(),
		Tokens:         staticToken(token),
		OnUnauthorized: onUnauthorized,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := backend.New(backend.Options{BaseURL: "not a url"}); err == nil {
		t.Error("expected error for invalid base url")
	}
}

func TestCartRoundTrip(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.AddProduct(backendtest.Product(1, "Camiseta", "19.99", 5))

	c := newClient(t, srv, srv.Token(), nil)
	ctx := context.Background()

	if err := c.AddToCart(ctx, 1, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	items, err := c.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(items))
	}
	if items[0].Quantity != 2 || items[0].Available != 5 || items[0].Name != "Camiseta" {
		t.Errorf("unexpected line: %+v", items[0])
	}
	if items[0].Price.String() != "19.99" {
		t.Errorf("expected price 19.99, got %s", items[0].Price)
	}

	if err := c.UpdateCartItem(ctx, items[0].ID, 9); !errors.Is(err, backend.ErrStockConflict) {
		t.Errorf("expected stock conflict, got %v", err)
	}
	if err := c.RemoveCartItem(ctx, items[0].ID); err != nil {
		t.Errorf("remove failed: %v", err)
	}
	if err := c.RemoveCartItem(ctx, items[0].ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected not found on second remove, got %v", err)
	}
}

func TestUnauthorizedTriggersHook(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			called := 0
			c := newClient(t, srv, srv.Token(), func(context.Context) { called++ })
			srv.FailNext(http.MethodGet, "/api/carrito/", status)

			_, err := c.GetCart(context.Background())
			if !errors.Is(err, backend.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			var apiErr *backend.APIError
			if !errors.As(err, &apiErr) || apiErr.Status != status {
				t.Errorf("expected APIError with status %d, got %v", status, err)
			}
			if called != 1 {
				t.Errorf("expected hook to run once, ran %d", called)
			}
		})
	}
}

func TestRejectedLoginKeepsSession(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			called := 0
			c := newClient(t, srv, srv.Token(), func(context.Context) { called++ })
			srv.FailNext(http.MethodPost, "/api/login/", status)

			_, err := c.Login(context.Background(), backend.Credentials{Username: "ana", Password: "wrong"})
			if !errors.Is(err, backend.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if called != 0 {
				t.Errorf("expected the session hook not to run, ran %d", called)
			}
		})
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	c := newClient(t, srv, "", nil)
	if _, err := c.GetCart(context.Background()); !errors.Is(err, backend.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStockVisible(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.AddProduct(backendtest.Product(3, "Jeans", "49.90", 7))

	c := newClient(t, srv, "", nil)
	n, err := c.StockVisible(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
	if _, err := c.StockVisible(context.Background(), 99); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestLoginSetsCSRFForRealtimeAuth(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	c := newClient(t, srv, srv.Token(), nil)
	ctx := context.Background()

	if _, err := c.RealtimeAuth(ctx, "/realtime/auth/", "stock-updates"); !errors.Is(err, backend.ErrUnauthorized) {
		t.Errorf("expected rejection without CSRF cookie, got %v", err)
	}

	res, err := c.Login(ctx, backend.Credentials{Username: backendtest.Username, Password: backendtest.Password})
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != srv.Token() || res.User.Username != backendtest.Username {
		t.Errorf("unexpected login result: %+v", res)
	}

	auth, err := c.RealtimeAuth(ctx, "/realtime/auth/", "stock-updates")
	if err != nil {
		t.Fatal(err)
	}
	if auth == "" {
		t.Error("expected realtime credential")
	}
}

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error key", `{"error": "Stock insuficiente"}`, "Stock insuficiente"},
		{"detail key", `{"detail": "No encontrado."}`, "No encontrado."},
		{"field errors", `{"cantidad_prod": ["debe ser positivo"]}`, "cantidad_prod: debe ser positivo"},
		{"plain text", `upstream exploded`, "upstream exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c, err := backend.New(backend.Options{BaseURL: ts.URL})
			if err != nil {
				t.Fatal(err)
			}
			err = c.ClearCart(context.Background())
			var apiErr *backend.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, apiErr.Message)
			}
		})
	}
}

func TestMalformedReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": 12}`))
	}))
	defer ts.Close()

	c, _ := backend.New(backend.Options{BaseURL: ts.URL})
	if _, err := c.GetCart(context.Background()); !errors.Is(err, backend.ErrMalformedReply) {
		t.Errorf("expected malformed reply, got %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, _ := backend.New(backend.Options{BaseURL: url})
	if _, err := c.ListProducts(context.Background()); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestOrders(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.AddProduct(backendtest.Product(1, "Camiseta", "10.00", 5))

	c := newClient(t, srv, srv.Token(), nil)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, models.OrderRequest{
		Lines: []models.OrderLine{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := c.UpdateOrderStatus(ctx, order.ID, models.OrderShipped)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.OrderShipped {
		t.Errorf("expected shipped, got %s", updated.Status)
	}
	orders, err := c.ListOrders(ctx)
	if err != nil || len(orders) != 1 {
		t.Errorf("expected 1 order, got %d (%v)", len(orders), err)
	}
}
