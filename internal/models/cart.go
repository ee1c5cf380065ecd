package models

import "github.com/shopspring/decimal"

// CartItem is one line of the shopper's cart. The backend owns every field
// except Headroom and OverRequested, which are derived on each load.
type CartItem struct {
	ID        int             `json:"id"`
	Product   int             `json:"producto"`
	ProductID int             `json:"producto_id,omitempty"`
	Name      string          `json:"producto_nombre"`
	Price     decimal.Decimal `json:"producto_precio"`
	Quantity  int             `json:"cantidad_prod"`
	Available int             `json:"stock_disponible"`

	Headroom      int  `json:"stock_Frontend"`
	OverRequested bool `json:"over_requested,omitempty"`
}

// ProductRef returns the referenced product id, whichever field the backend filled.
func (c CartItem) ProductRef() int {
	if c.ProductID != 0 {
		return c.ProductID
	}
	return c.Product
}

// Subtotal is price × quantity for the line.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Expiry reasons reported by the cart verification endpoint.
const (
	ExpiryReasonTime      = "expirado_por_tiempo"
	ExpiryReasonNoStock   = "sin_stock"
	ExpiryReasonNoProduct = "producto_no_existe"
	ExpiryReasonAdjusted  = "cantidad_ajustada"
)

type ExpiredItem struct {
	ID          int    `json:"id"`
	ProductID   int    `json:"producto_id"`
	ProductName string `json:"producto_nombre,omitempty"`
	Reason      string `json:"motivo"`
	OldQuantity int    `json:"cantidad_anterior,omitempty"`
	NewQuantity int    `json:"cantidad_nueva,omitempty"`
}

// Warns reports whether the reason deserves a user-facing warning.
func (e ExpiredItem) Warns() bool {
	switch e.Reason {
	case ExpiryReasonTime, ExpiryReasonNoStock, ExpiryReasonNoProduct:
		return true
	}
	return false
}

type ExpiryReport struct {
	Expired  []ExpiredItem `json:"items_expirados"`
	Adjusted []ExpiredItem `json:"items_ajustados,omitempty"`
}
