package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/alerts"
	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/backend/backendtest"
	"github.com/rogerio-castellano/storefront/internal/cart"
	"github.com/rogerio-castellano/storefront/internal/catalog"
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/config"
	handler "github.com/rogerio-castellano/storefront/internal/http/handlers"
	mw "github.com/rogerio-castellano/storefront/internal/http/middleware"
	"github.com/rogerio-castellano/storefront/internal/http/router"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/rogerio-castellano/storefront/internal/payment/paypal"
	"github.com/rogerio-castellano/storefront/internal/session"
	"github.com/rogerio-castellano/storefront/internal/stock"
	"github.com/rogerio-castellano/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetOutput(io.Discard)
}

type fakePayments struct {
	mu       sync.Mutex
	captures int
}

func (f *fakePayments) CreateOrder(_ context.Context, total decimal.Decimal, currency, _ string) (paypal.Order, error) {
	return paypal.Order{ID: "PAY-1", Status: paypal.StatusCreated, ApproveURL: "https://paypal.test/approve/PAY-1", Amount: total, Currency: currency}, nil
}

func (f *fakePayments) CaptureOrder(_ context.Context, id string) (paypal.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	return paypal.Order{ID: id, Status: paypal.StatusCompleted, CaptureID: "CAP-1"}, nil
}

type testEnv struct {
	srv      *backendtest.Server
	client   *backend.Client
	sess     *session.Session
	cart     *cart.Store
	feed     *notice.Feed
	payments *fakePayments
	router   http.Handler
}

// setupTestEnv wires every handler dependency against a fresh fake backend
// holding three products: Camiseta, Pantalón and an out-of-stock Gorra.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddProduct(backendtest.Product(1, "Camiseta", "10.50", 5))
	srv.AddProduct(backendtest.Product(2, "Pantalón", "25.00", 3))
	gorra := backendtest.Product(3, "Gorra", "8.00", 0)
	gorra.Category = "accesorios"
	srv.AddProduct(gorra)

	kv := storage.NewMemoryStore()
	sess := session.New(kv)
	client, err := backend.New(backend.Options{
		BaseURL:        srv.BaseURL(),
		Tokens:         sess,
		OnUnauthorized: func(ctx context.Context) { _ = sess.Clear(ctx) },
	})
	if err != nil {
		t.Fatal(err)
	}

	feed := notice.NewFeed(notice.DefaultFeedSize)
	c := cart.New(client, sess, cart.Options{ExpiryDelay: time.Hour, Notifier: feed})
	t.Cleanup(c.Close)

	pricer, err := checkout.NewPricer(config.CheckoutConfig{
		TaxRate:       "0.16",
		Currency:      "USD",
		ShippingTiers: config.DefaultShippingTiers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	payments := &fakePayments{}
	alerter := alerts.New(nil, nil)
	t.Cleanup(alerter.Wait)

	co := checkout.New(c, client, payments, alerter, checkout.NewDraftStore(kv), pricer)
	sess.OnLogout(func() {
		c.Reset()
		_ = co.Discard(context.Background())
	})

	handler.SetAuthenticator(client)
	handler.SetSession(sess)
	handler.SetCart(c)
	handler.SetCatalog(catalog.New(client))
	handler.SetStockFetcher(stock.NewFetcher(client))
	handler.SetCheckout(co)
	handler.SetAdmin(admin.New(client))
	handler.SetNotices(feed)
	mw.SetSession(sess)

	return &testEnv{
		srv:      srv,
		client:   client,
		sess:     sess,
		cart:     c,
		feed:     feed,
		payments: payments,
		router:   router.NewRouter(router.Options{AllowedOrigins: []string{"http://localhost:5173"}}),
	}
}

func (e *testEnv) do(method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) handler.SessionResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/login", handler.UserLogin{Username: backendtest.Username, Password: backendtest.Password})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var resp handler.SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("error decoding session: %v", err)
	}
	return resp
}

func (e *testEnv) loginStaff(t *testing.T) {
	t.Helper()
	e.srv.SetStaff(true)
	e.login(t)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("error decoding error response: %v", err)
	}
	return resp
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) handler.CartResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp handler.CartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("error decoding cart: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("error decoding response (%d): %v", w.Code, err)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func multipartCSV(csvContent string, filename string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, _ := writer.CreateFormFile("file", filename)
	part.Write([]byte(csvContent))

	writer.Close()
	return &buf, writer.FormDataContentType()
}

func (e *testEnv) importCSV(csvContent, mode string) *httptest.ResponseRecorder {
	body, contentType := multipartCSV(csvContent, "productos.csv")
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/products/import?mode=%s", mode), body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
