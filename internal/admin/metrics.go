package admin

import (
	"context"

	"github.com/shopspring/decimal"
)

type TopProduct struct {
	ProductID int    `json:"producto_id"`
	Name      string `json:"nombre"`
	Units     int    `json:"unidades"`
}

type Metrics struct {
	TotalProducts  int             `json:"total_productos"`
	LowStockCount  int             `json:"stock_bajo"`
	OutOfStock     int             `json:"sin_stock"`
	TotalOrders    int             `json:"total_pedidos"`
	OrdersByStatus map[string]int  `json:"pedidos_por_estado"`
	Revenue        decimal.Decimal `json:"ingresos"`
	UnitsSold      int             `json:"unidades_vendidas"`
	TopProduct     TopProduct      `json:"producto_mas_vendido"`
}

// Dashboard aggregates the figures of the admin dashboard from the current
// product and order lists.
func (s *Service) Dashboard(ctx context.Context) (Metrics, error) {
	m := Metrics{OrdersByStatus: map[string]int{}, Revenue: decimal.Zero}

	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		return m, err
	}
	orders, err := s.backend.ListOrders(ctx)
	if err != nil {
		return m, err
	}

	m.TotalProducts = len(products)
	for _, p := range products {
		if p.Stock == 0 {
			m.OutOfStock++
		}
		if p.LowStock() {
			m.LowStockCount++
		}
	}

	sold := map[int]*TopProduct{}
	m.TotalOrders = len(orders)
	for _, o := range orders {
		m.OrdersByStatus[o.Status]++
		if !countsAsRevenue(o.Status) {
			continue
		}
		m.Revenue = m.Revenue.Add(o.Total)
		m.UnitsSold += orderUnits(o)
		for _, l := range o.Lines {
			tp, ok := sold[l.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: l.ProductID, Name: l.Name}
				sold[l.ProductID] = tp
			}
			tp.Units += l.Quantity
		}
	}

	for _, tp := range sold {
		if tp.Units > m.TopProduct.Units || (tp.Units == m.TopProduct.Units && tp.ProductID < m.TopProduct.ProductID) {
			m.TopProduct = *tp
		}
	}
	if m.TopProduct.ProductID != 0 && m.TopProduct.Name == "" {
		for _, p := range products {
			if p.ID == m.TopProduct.ProductID {
				m.TopProduct.Name = p.Name
			}
		}
	}

	return m, nil
}
