package admin_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/backend/backendtest"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func setup(t *testing.T) (*backend.Client, *admin.Service) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddProduct(backendtest.Product(1, "Camiseta", "10.50", 5))
	srv.AddProduct(backendtest.Product(2, "Pantalón", "25.00", 1))
	srv.AddProduct(backendtest.Product(3, "Gorra", "8.00", 0))

	client, err := backend.New(backend.Options{BaseURL: srv.BaseURL(), Tokens: staticToken(srv.Token())})
	if err != nil {
		t.Fatal(err)
	}
	return client, admin.New(client)
}

func placeOrder(t *testing.T, c *backend.Client, productID int, name string, qty int, total string) models.Order {
	t.Helper()
	o, err := c.CreateOrder(context.Background(), models.OrderRequest{
		Lines:   []models.OrderLine{{ProductID: productID, Name: name, Quantity: qty}},
		Address: models.Address{FullName: "Ana Pérez", Email: "ana@example.com", City: "Guadalajara"},
		Total:   decimal.RequireFromString(total),
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestCreateProductValidation(t *testing.T) {
	_, svc := setup(t)

	_, err := svc.CreateProduct(context.Background(), models.Product{Name: " ", Price: decimal.Zero, Stock: -1})
	var verr *admin.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, admin.ErrInvalidProduct) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %+v", verr.Fields)
	}

	created, err := svc.CreateProduct(context.Background(), models.Product{Name: "Sudadera", Price: decimal.RequireFromString("30"), Stock: 4})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 {
		t.Error("expected backend id")
	}
}

func TestAdjustStock(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	if _, err := svc.AdjustStock(ctx, 1, 0); !errors.Is(err, admin.ErrZeroDelta) {
		t.Errorf("expected ErrZeroDelta, got %v", err)
	}
	p, err := svc.AdjustStock(ctx, 1, -3)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 2 {
		t.Errorf("expected stock 2, got %d", p.Stock)
	}
	if _, err := svc.AdjustStock(ctx, 1, -10); !errors.Is(err, backend.ErrStockConflict) {
		t.Errorf("expected stock conflict, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, 99, 1); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestOrdersAndStatus(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	first := placeOrder(t, client, 1, "Camiseta", 2, "21.00")
	placeOrder(t, client, 2, "Pantalón", 1, "25.00")

	if _, err := svc.UpdateOrderStatus(ctx, first.ID, "perdido"); !errors.Is(err, admin.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	o, err := svc.UpdateOrderStatus(ctx, first.ID, models.OrderShipped)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderShipped {
		t.Errorf("unexpected status %q", o.Status)
	}

	shipped, err := svc.Orders(ctx, models.OrderShipped)
	if err != nil {
		t.Fatal(err)
	}
	if len(shipped) != 1 || shipped[0].ID != first.ID {
		t.Errorf("unexpected filtered orders %+v", shipped)
	}
	all, _ := svc.Orders(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected 2 orders, got %d", len(all))
	}
}

func TestDashboard(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	placeOrder(t, client, 1, "Camiseta", 2, "21.00")
	placeOrder(t, client, 1, "Camiseta", 1, "10.50")
	cancelled := placeOrder(t, client, 2, "Pantalón", 1, "25.00")
	if _, err := svc.UpdateOrderStatus(ctx, cancelled.ID, models.OrderCancelled); err != nil {
		t.Fatal(err)
	}

	m, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalProducts != 3 {
		t.Errorf("expected 3 products, got %d", m.TotalProducts)
	}
	// orders decrement stock: Camiseta 5-3=2, Pantalón 1-1=0, Gorra 0; threshold 2
	if m.LowStockCount != 2 || m.OutOfStock != 2 {
		t.Errorf("unexpected stock figures low=%d out=%d", m.LowStockCount, m.OutOfStock)
	}
	if m.TotalOrders != 3 || m.OrdersByStatus[models.OrderPaid] != 2 || m.OrdersByStatus[models.OrderCancelled] != 1 {
		t.Errorf("unexpected order counts %+v", m.OrdersByStatus)
	}
	if !m.Revenue.Equal(decimal.RequireFromString("31.50")) {
		t.Errorf("expected revenue 31.50, got %s", m.Revenue)
	}
	if m.UnitsSold != 3 || m.TopProduct.ProductID != 1 || m.TopProduct.Units != 3 {
		t.Errorf("unexpected top product %+v (units sold %d)", m.TopProduct, m.UnitsSold)
	}
}

func TestImportProducts(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		imported int
		updated  int
		errors   int
	}{
		{name: "skip existing", mode: "", imported: 1, updated: 0, errors: 3},
		{name: "update existing", mode: admin.ImportUpdate, imported: 1, updated: 1, errors: 2},
	}

	const data = "nombre,precio,stock,stock_minimo,talla\n" +
		"Chaqueta,45.00,3,1,L\n" +
		"camiseta,12.00,9,2,M\n" +
		",5.00,1,0,S\n" +
		"Calcetines,abc,1,0,S\n"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := setup(t)
			res, err := svc.ImportProducts(context.Background(), strings.NewReader(data), tt.mode)
			if err != nil {
				t.Fatal(err)
			}
			if res.Imported != tt.imported || res.Updated != tt.updated || len(res.Errors) != tt.errors {
				t.Errorf("unexpected result %+v", res)
			}
		})
	}
}

func TestImportUpdatesExistingProduct(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	data := "name,price,quantity,threshold\nCamiseta,12.00,9,2\n"

	if _, err := svc.ImportProducts(ctx, strings.NewReader(data), admin.ImportUpdate); err != nil {
		t.Fatal(err)
	}
	p, err := client.GetProduct(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 9 || !p.Price.Equal(decimal.RequireFromString("12")) {
		t.Errorf("product not updated: %+v", p)
	}
}

func TestImportRejectsBadHeader(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.ImportProducts(context.Background(), strings.NewReader("foo,bar\n1,2\n"), admin.ImportSkip)
	if !errors.Is(err, admin.ErrInvalidCSV) {
		t.Errorf("expected ErrInvalidCSV, got %v", err)
	}
}

func TestExportOrders(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()
	placeOrder(t, client, 1, "Camiseta", 2, "21.00")

	var buf bytes.Buffer
	if err := svc.ExportOrders(ctx, &buf, "csv", ""); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0][0] != "id" || records[1][7] != "21.00" || records[1][6] != "2" {
		t.Errorf("unexpected csv %v", records)
	}

	buf.Reset()
	if err := svc.ExportOrders(ctx, &buf, "JSON", models.OrderPaid); err != nil {
		t.Fatal(err)
	}
	var orders []models.Order
	if err := json.Unmarshal(buf.Bytes(), &orders); err != nil || len(orders) != 1 {
		t.Errorf("unexpected json export %q (%v)", buf.String(), err)
	}

	if err := svc.ExportOrders(ctx, &buf, "xlsx", ""); !errors.Is(err, admin.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
