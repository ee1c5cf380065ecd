package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type stockVisibleResponse struct {
	ProductID    int  `json:"producto_id"`
	StockVisible *int `json:"stock_visible"`
}

type stockAdjustmentRequest struct {
	Delta int `json:"delta"`
}

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/productos/", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/productos/%d/", id), nil, &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// StockVisible returns the backend's sellable-now quantity for a product.
func (c *Client) StockVisible(ctx context.Context, id int) (int, error) {
	var res stockVisibleResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/productos/%d/stock-visible/", id), nil, &res); err != nil {
		return 0, err
	}
	if res.StockVisible == nil {
		return 0, fmt.Errorf("%w: stock_visible missing", ErrMalformedReply)
	}
	return *res.StockVisible, nil
}

func (c *Client) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var created models.Product
	if err := c.do(ctx, http.MethodPost, "/productos/", p, &created); err != nil {
		return models.Product{}, err
	}
	return created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var updated models.Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/productos/%d/", p.ID), p, &updated); err != nil {
		return models.Product{}, err
	}
	return updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/productos/%d/", id), nil, nil)
}

// AdjustStock adds delta (positive or negative) to the product's stock.
func (c *Client) AdjustStock(ctx context.Context, id, delta int) (models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/productos/%d/ajustar-stock/", id), stockAdjustmentRequest{Delta: delta}, &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}
