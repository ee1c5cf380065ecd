package handlers

import (
	"net/http"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/admin"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/sirupsen/logrus"
)

// AdminGetProductsHandler godoc
// @Summary List all products
// @Tags admin
// @Produce json
// @Success 200 {array} models.Product
// @Router /admin/products [get]
// @Security SessionAuth
func AdminGetProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := adminSvc.Products(r.Context())
	if err != nil {
		writeError(w, "Cargar productos", err)
		return
	}
	respond(w, http.StatusOK, products)
}

// AdminGetProductByIDHandler godoc
// @Summary Get product by ID
// @Tags admin
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /admin/products/{id} [get]
// @Security SessionAuth
func AdminGetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Cargar producto"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	p, err := adminSvc.Product(r.Context(), id)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, p)
}

// CreateProductHandler godoc
// @Summary Create a new product
// @Tags admin
// @Accept json
// @Produce json
// @Param product body models.Product true "Product to add"
// @Success 201 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Router /admin/products [post]
// @Security SessionAuth
func CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Crear producto"

	var p models.Product
	if err := readJSON(w, r, &p); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	created, err := adminSvc.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

// UpdateProductHandler godoc
// @Summary Update a product
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param product body models.Product true "Updated product"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/products/{id} [put]
// @Security SessionAuth
func UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Actualizar producto"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	var p models.Product
	if err := readJSON(w, r, &p); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	p.ID = id
	updated, err := adminSvc.UpdateProduct(r.Context(), p)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

// DeleteProductHandler godoc
// @Summary Delete a product
// @Tags admin
// @Param id path int true "Product ID"
// @Success 204 "Deleted successfully"
// @Failure 404 {object} ErrorResponse
// @Router /admin/products/{id} [delete]
// @Security SessionAuth
func DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Eliminar producto"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	if err := adminSvc.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, action, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustStockHandler godoc
// @Summary Adjust the stock of a product
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param adjustment body QuantityAdjustmentRequest true "Stock change"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Stock would become negative"
// @Router /admin/products/{id}/adjust [post]
// @Security SessionAuth
func AdjustStockHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Ajustar stock"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	var req QuantityAdjustmentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, action, "invalid input")
		return
	}

	p, err := adminSvc.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		writeError(w, action, err)
		return
	}
	if p.LowStock() {
		logrus.WithFields(logrus.Fields{"product_id": p.ID, "stock": p.Stock, "threshold": p.Threshold}).
			Warnf("⚠️ Product %s is below threshold", p.Name)
	}
	respond(w, http.StatusOK, p)
}

// ImportProductsHandler godoc
// @Summary Import products via CSV
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param mode query string false "Import mode (skip|update)"
// @Success 200 {object} admin.ImportResult
// @Failure 400 {object} ErrorResponse
// @Router /admin/products/import [post]
// @Security SessionAuth
func ImportProductsHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Importar productos"

	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, action, "missing file")
		return
	}
	defer file.Close()

	res, err := adminSvc.ImportProducts(r.Context(), file, strings.ToLower(r.URL.Query().Get("mode")))
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// GetOrdersHandler godoc
// @Summary List orders
// @Tags admin
// @Produce json
// @Param estado query string false "Only orders in this status"
// @Success 200 {array} models.Order
// @Failure 400 {object} ErrorResponse
// @Router /admin/orders [get]
// @Security SessionAuth
func GetOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := adminSvc.Orders(r.Context(), r.URL.Query().Get("estado"))
	if err != nil {
		writeError(w, "Cargar pedidos", err)
		return
	}
	respond(w, http.StatusOK, orders)
}

// UpdateOrderStatusHandler godoc
// @Summary Change the status of an order
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param status body OrderStatusRequest true "New status"
// @Success 200 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/orders/{id} [patch]
// @Security SessionAuth
func UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Actualizar pedido"

	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, action, err.Error())
		return
	}
	var req OrderStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	o, err := adminSvc.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// ExportOrdersHandler godoc
// @Summary Export orders as CSV or JSON
// @Tags admin
// @Produce text/csv
// @Produce json
// @Param format query string false "csv (default) or json"
// @Param estado query string false "Only orders in this status"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /admin/orders/export [get]
// @Security SessionAuth
func ExportOrdersHandler(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = admin.FormatCSV
	}
	status := r.URL.Query().Get("estado")

	// Checked before any byte of the export is written.
	if format != admin.FormatCSV && format != admin.FormatJSON {
		writeError(w, "Exportar pedidos", admin.ErrUnknownFormat)
		return
	}
	orders, err := adminSvc.Orders(r.Context(), status)
	if err != nil {
		writeError(w, "Exportar pedidos", err)
		return
	}

	if format == admin.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="pedidos.csv"`)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="pedidos.json"`)
	}
	if err := admin.WriteOrders(w, format, orders); err != nil {
		logrus.WithError(err).Warn("Failed to write order export")
	}
}

// GetDashboardMetricsHandler godoc
// @Summary Dashboard metrics for admin view
// @Tags admin
// @Produce json
// @Success 200 {object} admin.Metrics
// @Failure 503 {object} ErrorResponse
// @Router /admin/metrics/dashboard [get]
// @Security SessionAuth
func GetDashboardMetricsHandler(w http.ResponseWriter, r *http.Request) {
	m, err := adminSvc.Dashboard(r.Context())
	if err != nil {
		writeError(w, "Cargar métricas", err)
		return
	}
	respond(w, http.StatusOK, m)
}
