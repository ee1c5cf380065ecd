package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type addToCartRequest struct {
	ProductID int `json:"producto_id"`
	Quantity  int `json:"cantidad_prod"`
}

type updateCartRequest struct {
	Quantity int `json:"cantidad_prod"`
}

// cartItems accepts either a bare list or {"items": [...]}.
type cartItems []models.CartItem

func (ci *cartItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]models.CartItem)(ci))
	}
	var wrapped struct {
		Items []models.CartItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*ci = wrapped.Items
	return nil
}

func (c *Client) GetCart(ctx context.Context) ([]models.CartItem, error) {
	var items cartItems
	if err := c.do(ctx, http.MethodGet, "/carrito/", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return []models.CartItem{}, nil
	}
	return items, nil
}

func (c *Client) AddToCart(ctx context.Context, productID, quantity int) error {
	return c.do(ctx, http.MethodPost, "/carrito/agregar/", addToCartRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, lineID, quantity int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/carrito/%d/", lineID), updateCartRequest{Quantity: quantity}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, lineID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/carrito/%d/", lineID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/carrito/vaciar/", nil, nil)
}

func (c *Client) VerifyCartExpiry(ctx context.Context) (models.ExpiryReport, error) {
	var report models.ExpiryReport
	if err := c.do(ctx, http.MethodPost, "/carrito/verificar-expiracion/", nil, &report); err != nil {
		return models.ExpiryReport{}, err
	}
	return report, nil
}
