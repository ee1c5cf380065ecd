package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

func parseDecimalPtr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(s))
	return v
}

// GetProductsHandler godoc
// @Summary Filter and paginate the catalog
// @Tags products
// @Produce json
// @Param name query string false "Filter by name"
// @Param category query string false "Category"
// @Param size query string false "Size"
// @Param color query string false "Color"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param inStock query bool false "Only products with stock"
// @Param lowStock query bool false "Only products below their threshold"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} catalog.Page
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products [get]
func GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Cargar productos"
	q := r.URL.Query()

	filter := catalog.Filter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		Size:     q.Get("size"),
		Color:    q.Get("color"),
		MinPrice: parseDecimalPtr(q.Get("minPrice")),
		MaxPrice: parseDecimalPtr(q.Get("maxPrice")),
		InStock:  parseBool(q.Get("inStock")),
		LowStock: parseBool(q.Get("lowStock")),
		Offset:   parseIntPtr(q.Get("offset")),
		Limit:    parseIntPtr(q.Get("limit")),
	}

	if filter.Limit != nil && *filter.Limit <= 0 {
		badRequest(w, action, "limit must be greater than zero")
		return
	}
	if filter.Offset != nil && *filter.Offset < 0 {
		badRequest(w, action, "offset must be zero or positive")
		return
	}

	page, err := catalogSvc.List(r.Context(), filter)
	if err != nil {
		writeError(w, action, err)
		return
	}
	respond(w, http.StatusOK, page)
}

// GetFacetsHandler godoc
// @Summary Categories, sizes and colors on sale
// @Tags products
// @Produce json
// @Success 200 {object} catalog.Facets
// @Failure 503 {object} ErrorResponse
// @Router /products/facets [get]
func GetFacetsHandler(w http.ResponseWriter, r *http.Request) {
	facets, err := catalogSvc.Facets(r.Context())
	if err != nil {
		writeError(w, "Cargar filtros", err)
		return
	}
	respond(w, http.StatusOK, facets)
}

// GetProductStockHandler godoc
// @Summary Sellable-now stock of a product
// @Description known is false when the backend could not answer; the caller keeps its last known value
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} StockResponse
// @Router /products/{id}/stock [get]
func GetProductStockHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := stockFetcher.GetStockVisible(r.Context(), id)
	respond(w, http.StatusOK, StockResponse{ProductID: id, StockVisible: n, Known: ok})
}
