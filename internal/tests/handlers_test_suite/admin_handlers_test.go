package handlers_test_suite

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rogerio-castellano/storefront/internal/admin"
	handler "github.com/rogerio-castellano/storefront/internal/http/handlers"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func (e *testEnv) placeOrder(t *testing.T, productID, qty int, total string) models.Order {
	t.Helper()
	o, err := e.client.CreateOrder(context.Background(), models.OrderRequest{
		Lines:   []models.OrderLine{{ProductID: productID, Quantity: qty}},
		Address: models.Address{FullName: "Ana Pérez", Email: "ana@example.com", City: "Guadalajara"},
		Total:   decimal.RequireFromString(total),
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestCreateProductHandler_Valid(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)

	w := env.do(http.MethodPost, "/admin/products", models.Product{Name: "Sudadera", Price: decimal.RequireFromString("30"), Stock: 4, Threshold: 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	var p models.Product
	decodeBody(t, w, &p)
	if p.ID == 0 || p.Name != "Sudadera" {
		t.Errorf("unexpected product %+v", p)
	}

	w = env.do(http.MethodGet, "/admin/products/"+itoa(p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
}

func TestCreateProductHandler_Invalid(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)

	tests := []struct {
		name           string
		payload        models.Product
		expectedFields []string
	}{
		{
			name:           "Empty name and price",
			payload:        models.Product{},
			expectedFields: []string{"nombre", "precio"},
		},
		{
			name:           "Negative stock",
			payload:        models.Product{Name: "Gorro", Price: decimal.RequireFromString("5"), Stock: -1},
			expectedFields: []string{"stock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/admin/products", tt.payload)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 Bad Request, got %d", w.Code)
			}
			var resp struct {
				Kind   string             `json:"kind"`
				Fields []admin.FieldError `json:"fields"`
			}
			decodeBody(t, w, &resp)
			if resp.Kind != handler.KindValidation {
				t.Errorf("expected kind %q, got %q", handler.KindValidation, resp.Kind)
			}
			got := map[string]bool{}
			for _, f := range resp.Fields {
				got[f.Field] = true
			}
			for _, f := range tt.expectedFields {
				if !got[f] {
					t.Errorf("expected error on %q, got %+v", f, resp.Fields)
				}
			}
		})
	}
}

func TestUpdateAndDeleteProductHandlers(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)

	w := env.do(http.MethodPut, "/admin/products/1", models.Product{Name: "Camiseta básica", Price: decimal.RequireFromString("12"), Stock: 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodDelete, "/admin/products/3", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 No Content, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/admin/products/3", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/admin/products/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad id, got %d", w.Code)
	}
}

func TestAdjustStockHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)

	w := env.do(http.MethodPost, "/admin/products/2/adjust", handler.QuantityAdjustmentRequest{Delta: -2})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var p models.Product
	decodeBody(t, w, &p)
	if p.Stock != 1 {
		t.Errorf("expected stock 1, got %d", p.Stock)
	}

	if w := env.do(http.MethodPost, "/admin/products/2/adjust", handler.QuantityAdjustmentRequest{Delta: -5}); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for negative stock, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/admin/products/2/adjust", handler.QuantityAdjustmentRequest{Delta: 0}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a zero delta, got %d", w.Code)
	}
}

func TestImportProductsHandler(t *testing.T) {
	tests := []struct {
		name         string
		csv          string
		mode         string
		wantImported int
		wantUpdated  int
		wantErrors   int
	}{
		{
			name:         "New products",
			csv:          "nombre,precio,stock,stock_minimo\nSudadera,30.00,4,1\nBufanda,12.50,10,2",
			mode:         admin.ImportSkip,
			wantImported: 2,
		},
		{
			name:         "Existing product skipped",
			csv:          "name,price,quantity\nCamiseta,11.00,3\nBufanda,12.50,10",
			mode:         admin.ImportSkip,
			wantImported: 1,
			wantErrors:   1,
		},
		{
			name:        "Existing product updated",
			csv:         "name,price,quantity\ncamiseta,11.00,3\nBufanda,-1,10",
			mode:        admin.ImportUpdate,
			wantUpdated: 1,
			wantErrors:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			env.loginStaff(t)

			w := env.importCSV(tt.csv, tt.mode)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
			}
			var res admin.ImportResult
			decodeBody(t, w, &res)
			if res.Imported != tt.wantImported || res.Updated != tt.wantUpdated || len(res.Errors) != tt.wantErrors {
				t.Errorf("expected %d/%d/%d, got %d/%d/%+v", tt.wantImported, tt.wantUpdated, tt.wantErrors, res.Imported, res.Updated, res.Errors)
			}
		})
	}
}

func TestImportProductsHandler_BadRequest(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)

	if w := env.importCSV("sku,qty\nA,1", admin.ImportSkip); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad header, got %d", w.Code)
	}

	w := env.do(http.MethodPost, "/admin/products/import", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a file, got %d", w.Code)
	}
}

func TestOrdersHandlers(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)
	first := env.placeOrder(t, 1, 2, "21.00")
	env.placeOrder(t, 2, 1, "25.00")

	w := env.do(http.MethodPatch, "/admin/orders/"+itoa(first.ID), handler.OrderStatusRequest{Status: models.OrderShipped})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodPatch, "/admin/orders/"+itoa(first.ID), handler.OrderStatusRequest{Status: "perdido"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown status, got %d", w.Code)
	}

	var orders []models.Order
	decodeBody(t, env.do(http.MethodGet, "/admin/orders?estado="+models.OrderShipped, nil), &orders)
	if len(orders) != 1 || orders[0].ID != first.ID {
		t.Errorf("expected only the shipped order, got %+v", orders)
	}
}

func TestExportOrdersHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)
	env.placeOrder(t, 1, 2, "21.00")

	w := env.do(http.MethodGet, "/admin/orders/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("error reading csv: %v", err)
	}
	if len(records) != 2 || records[0][0] != "id" {
		t.Errorf("expected header and one row, got %v", records)
	}

	w = env.do(http.MethodGet, "/admin/orders/export?format=json", nil)
	var orders []models.Order
	if err := json.NewDecoder(w.Body).Decode(&orders); err != nil || len(orders) != 1 {
		t.Errorf("expected one exported order, got %v (%v)", orders, err)
	}

	w = env.do(http.MethodGet, "/admin/orders/export?format=xml", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown format, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("expected a JSON error body, got %q", w.Header().Get("Content-Type"))
	}
}

func TestDashboardMetricsHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.loginStaff(t)
	env.placeOrder(t, 1, 3, "31.50")
	cancelled := env.placeOrder(t, 2, 1, "25.00")
	env.do(http.MethodPatch, "/admin/orders/"+itoa(cancelled.ID), handler.OrderStatusRequest{Status: models.OrderCancelled})

	w := env.do(http.MethodGet, "/admin/metrics/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var m admin.Metrics
	decodeBody(t, w, &m)

	if m.TotalProducts != 3 {
		t.Errorf("expected 3 products, got %d", m.TotalProducts)
	}
	if m.OutOfStock != 1 {
		t.Errorf("expected 1 out of stock, got %d", m.OutOfStock)
	}
	if m.TotalOrders != 2 || m.OrdersByStatus[models.OrderCancelled] != 1 {
		t.Errorf("unexpected order counts %+v", m.OrdersByStatus)
	}
	if !m.Revenue.Equal(decimal.RequireFromString("31.50")) {
		t.Errorf("expected revenue 31.50, got %s", m.Revenue)
	}
	if m.TopProduct.ProductID != 1 || m.TopProduct.Units != 3 {
		t.Errorf("expected product 1 as top seller, got %+v", m.TopProduct)
	}
}
