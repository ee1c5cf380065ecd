package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type orderStatusRequest struct {
	Status string `json:"estado"`
}

func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/pedidos/", req, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/pedidos/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int, status string) (models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/pedidos/%d/", id), orderStatusRequest{Status: status}, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}
