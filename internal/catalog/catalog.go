// Package catalog lists backend products with client-side filtering.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type Source interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type Page struct {
	Products []models.Product `json:"productos"`
	Total    int              `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
}

type Catalog struct {
	src Source
}

func New(src Source) *Catalog {
	return &Catalog{src: src}
}

func (c *Catalog) List(ctx context.Context, f Filter) (Page, error) {
	products, err := c.src.ListProducts(ctx)
	if err != nil {
		return Page{}, err
	}
	items, total := Apply(products, f)

	p := Page{Products: items, Total: total}
	if f.Offset != nil {
		p.Offset = *f.Offset
	}
	if f.Limit != nil {
		p.Limit = *f.Limit
	}
	return p, nil
}

// Facets lists the distinct categories, sizes and colors on sale.
type Facets struct {
	Categories []string `json:"categorias"`
	Sizes      []string `json:"tallas"`
	Colors     []string `json:"colores"`
}

func (c *Catalog) Facets(ctx context.Context) (Facets, error) {
	products, err := c.src.ListProducts(ctx)
	if err != nil {
		return Facets{}, err
	}
	return Facets{
		Categories: distinct(products, func(p models.Product) string { return p.Category }),
		Sizes:      distinct(products, func(p models.Product) string { return p.Size }),
		Colors:     distinct(products, func(p models.Product) string { return p.Color }),
	}, nil
}

func distinct(products []models.Product, field func(models.Product) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range products {
		v := strings.TrimSpace(field(p))
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
