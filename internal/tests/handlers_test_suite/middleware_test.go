package handlers_test_suite

import (
	"net/http"
	"net/http/httptest"
	"testing"

	rl "github.com/rogerio-castellano/storefront/internal/http/rate_limiter"
	"github.com/rogerio-castellano/storefront/internal/http/router"
)

func TestRateLimit(t *testing.T) {
	setupTestEnv(t)
	rl.CleanupAllVisitors()
	rl.Configure(1, 2)
	t.Cleanup(func() {
		rl.Configure(5, 10)
		rl.CleanupAllVisitors()
	})
	r := router.NewRouter(router.Options{RateLimit: true})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.RemoteAddr = "10.0.0.7:4321"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected the burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 Too Many Requests, got %d", codes[2])
	}

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.RemoteAddr = "10.0.0.8:4321"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected another client to pass, got %d", w.Code)
	}
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		forwarded  []string
		wantLast   int
	}{
		{
			name:       "rotating header from one peer is still limited",
			trustProxy: false,
			remoteAddr: "10.0.0.9:4321",
			forwarded:  []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"},
			wantLast:   http.StatusTooManyRequests,
		},
		{
			name:       "trusted proxy distinguishes clients",
			trustProxy: true,
			remoteAddr: "10.0.0.1:4321",
			forwarded:  []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"},
			wantLast:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestEnv(t)
			rl.CleanupAllVisitors()
			rl.Configure(1, 2)
			t.Cleanup(func() {
				rl.Configure(5, 10)
				rl.CleanupAllVisitors()
			})
			r := router.NewRouter(router.Options{RateLimit: true, TrustProxy: tt.trustProxy})

			var last int
			for _, fwd := range tt.forwarded {
				req := httptest.NewRequest(http.MethodGet, "/session", nil)
				req.RemoteAddr = tt.remoteAddr
				req.Header.Set("X-Forwarded-For", fwd)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)
				last = w.Code
			}
			if last != tt.wantLast {
				t.Errorf("expected %d on the third request, got %d", tt.wantLast, last)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/cart/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected the UI origin to be allowed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}
}
