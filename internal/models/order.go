package models

import "github.com/shopspring/decimal"

// Order statuses used by the admin panel.
const (
	OrderPending   = "pendiente"
	OrderPaid      = "pagado"
	OrderShipped   = "enviado"
	OrderDelivered = "entregado"
	OrderCancelled = "cancelado"
)

var OrderStatuses = []string{OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled}

type Address struct {
	FullName   string `json:"nombre_completo"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`
	Street     string `json:"direccion"`
	City       string `json:"ciudad"`
	State      string `json:"estado"`
	PostalCode string `json:"codigo_postal"`
	Country    string `json:"pais"`
}

type OrderLine struct {
	ProductID int             `json:"producto_id"`
	Name      string          `json:"producto_nombre,omitempty"`
	Quantity  int             `json:"cantidad"`
	Price     decimal.Decimal `json:"precio_unitario"`
}

type OrderRequest struct {
	Lines        []OrderLine     `json:"items"`
	Address      Address         `json:"direccion_envio"`
	ShippingTier string          `json:"metodo_envio"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"impuestos"`
	ShippingCost decimal.Decimal `json:"costo_envio"`
	Total        decimal.Decimal `json:"total"`
	PaymentID    string          `json:"paypal_order_id"`
	CaptureID    string          `json:"paypal_capture_id"`
}

type Order struct {
	ID           int             `json:"id"`
	User         int             `json:"usuario,omitempty"`
	Status       string          `json:"estado"`
	Lines        []OrderLine     `json:"items"`
	Address      Address         `json:"direccion_envio"`
	ShippingTier string          `json:"metodo_envio"`
	Total        decimal.Decimal `json:"total"`
	PaymentID    string          `json:"paypal_order_id,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
}
