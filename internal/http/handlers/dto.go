package handlers

import (
	"github.com/rogerio-castellano/storefront/internal/checkout"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/shopspring/decimal"
)

type UserLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	LoggedIn bool         `json:"logged_in"`
	Staff    bool         `json:"staff"`
	User     *models.User `json:"usuario,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
}

type RedirectRequest struct {
	Path string `json:"path"`
}

type StockResponse struct {
	ProductID    string `json:"producto_id"`
	StockVisible int    `json:"stock_visible"`
	Known        bool   `json:"known"`
}

type CartResponse struct {
	State         string            `json:"state"`
	Items         []models.CartItem `json:"items"`
	Total         decimal.Decimal   `json:"total"`
	Count         int               `json:"count"`
	ExpiryPending bool              `json:"expiry_pending"`
}

type AddToCartRequest struct {
	ProductID int `json:"producto_id"`
	Quantity  int `json:"cantidad"`
}

type QuantityRequest struct {
	Quantity int `json:"cantidad"`
}

type ShippingRequest struct {
	Tier string `json:"metodo_envio"`
}

type CheckoutResponse struct {
	Draft checkout.Draft  `json:"draft"`
	Tiers []checkout.Tier `json:"metodos_envio"`
}

type PaymentResponse struct {
	ProviderOrderID string `json:"paypal_order_id"`
	ApproveURL      string `json:"approve_url"`
}

type QuantityAdjustmentRequest struct {
	Delta int `json:"delta"` // can be positive or negative
}

type OrderStatusRequest struct {
	Status string `json:"estado"`
}

type NoticesResponse struct {
	Notices []notice.Notice `json:"notices"`
}

// ErrorResponse is the notice every failed request answers with. Kind lets
// the UI tell apart failures that need different treatment.
type ErrorResponse struct {
	Kind    string            `json:"kind"`
	Action  string            `json:"action"`
	Message string            `json:"message"`
	Fields  any               `json:"fields,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
