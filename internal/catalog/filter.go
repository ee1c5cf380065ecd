package catalog

import (
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type Filter struct {
	Name     string
	Category string
	Size     string
	Color    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	LowStock bool
	Offset   *int
	Limit    *int
}

func matchesFilter(p models.Product, f Filter) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Size != "" && !strings.EqualFold(p.Size, f.Size) {
		return false
	}
	if f.Color != "" && !strings.EqualFold(p.Color, f.Color) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	if f.LowStock && !p.LowStock() {
		return false
	}
	return true
}

// Apply filters products and pages the result. total counts every match.
func Apply(products []models.Product, f Filter) (page []models.Product, total int) {
	var filtered []models.Product
	for _, p := range products {
		if matchesFilter(p, f) {
			filtered = append(filtered, p)
		}
	}

	if f.Offset != nil && *f.Offset > len(filtered) {
		return []models.Product{}, len(filtered)
	}

	start := 0
	if f.Offset != nil {
		start = clamp(*f.Offset, 0, len(filtered))
	}

	end := len(filtered)
	if f.Limit != nil && *f.Limit > 0 {
		end = clamp(start+*f.Limit, start, len(filtered))
	}

	if filtered == nil {
		return []models.Product{}, 0
	}
	return filtered[start:end], len(filtered)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
