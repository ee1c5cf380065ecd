// Package admin implements the staff panel: product maintenance, stock
// adjustment, order management, imports, exports and dashboard metrics.
// Every change goes to the backend; nothing here is a store of record.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrZeroDelta      = errors.New("stock adjustment must not be zero")
)

type Backend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, id int) error
	AdjustStock(ctx context.Context, id, delta int) (models.Product, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int, status string) (models.Order, error)
}

type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Description
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidProduct
}

func validateProduct(p models.Product) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, FieldError{Field: "nombre", Description: "Name is required"})
	}
	if !p.Price.IsPositive() {
		errs = append(errs, FieldError{Field: "precio", Description: "Price must be greater than zero"})
	}
	if p.Stock < 0 {
		errs = append(errs, FieldError{Field: "stock", Description: "Stock cannot be negative"})
	}
	if p.Threshold < 0 {
		errs = append(errs, FieldError{Field: "stock_minimo", Description: "Threshold cannot be negative"})
	}
	return errs
}

type Service struct {
	backend Backend
}

func New(b Backend) *Service {
	return &Service{backend: b}
}

func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	return s.backend.ListProducts(ctx)
}

func (s *Service) Product(ctx context.Context, id int) (models.Product, error) {
	return s.backend.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if fields := validateProduct(p); len(fields) > 0 {
		return models.Product{}, &ValidationError{Fields: fields}
	}
	p.ID = 0
	created, err := s.backend.CreateProduct(ctx, p)
	if err != nil {
		return models.Product{}, fmt.Errorf("could not create product: %w", err)
	}
	logrus.WithFields(logrus.Fields{"product_id": created.ID, "name": created.Name}).Info("Product created")
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if fields := validateProduct(p); len(fields) > 0 {
		return models.Product{}, &ValidationError{Fields: fields}
	}
	updated, err := s.backend.UpdateProduct(ctx, p)
	if err != nil {
		return models.Product{}, fmt.Errorf("could not update product: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("could not delete product: %w", err)
	}
	logrus.WithField("product_id", id).Info("Product deleted")
	return nil
}

// AdjustStock adds delta to the product's stock. The backend refuses a
// result below zero with a stock conflict.
func (s *Service) AdjustStock(ctx context.Context, id, delta int) (models.Product, error) {
	if delta == 0 {
		return models.Product{}, ErrZeroDelta
	}
	p, err := s.backend.AdjustStock(ctx, id, delta)
	if err != nil {
		return models.Product{}, fmt.Errorf("could not adjust stock: %w", err)
	}
	logrus.WithFields(logrus.Fields{"product_id": id, "delta": delta, "stock": p.Stock}).Info("Stock adjusted")
	return p, nil
}

// Orders lists orders, optionally only those in status.
func (s *Service) Orders(ctx context.Context, status string) ([]models.Order, error) {
	if status != "" && !slices.Contains(models.OrderStatuses, status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	orders, err := s.backend.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return orders, nil
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id int, status string) (models.Order, error) {
	if !slices.Contains(models.OrderStatuses, status) {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	o, err := s.backend.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return models.Order{}, fmt.Errorf("could not update order %d: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{"order": id, "status": status}).Info("Order status updated")
	return o, nil
}

// revenueStatuses are the statuses whose totals count as collected money.
var revenueStatuses = []string{models.OrderPaid, models.OrderShipped, models.OrderDelivered}

func countsAsRevenue(status string) bool {
	return slices.Contains(revenueStatuses, status)
}

func orderUnits(o models.Order) int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
