package models

import "github.com/shopspring/decimal"

// Product represents a product as served by the store backend.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion,omitempty"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Threshold   int             `json:"stock_minimo,omitempty"`
	Category    string          `json:"categoria,omitempty"`
	Size        string          `json:"talla,omitempty"`
	Color       string          `json:"color,omitempty"`
	ImageURL    string          `json:"imagen,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// LowStock reports whether the product sits below its restock threshold.
func (p Product) LowStock() bool {
	return p.Stock < p.Threshold
}
