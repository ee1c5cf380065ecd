// Package stock answers "how many of this product can be sold right now".
package stock

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source is the backend call behind the fetcher.
type Source interface {
	StockVisible(ctx context.Context, productID int) (int, error)
}

type Fetcher struct {
	src Source
}

func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src}
}

// GetStockVisible returns the sellable stock of product id. ok is false when
// the id is not numeric or the lookup failed; callers then keep their last
// known value and must not read it as zero.
func (f *Fetcher) GetStockVisible(ctx context.Context, id string) (stock int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return 0, false
	}

	stock, err = f.src.StockVisible(ctx, n)
	if err != nil {
		logrus.WithField("product_id", n).WithError(err).Warn("Stock visibility unavailable")
		return 0, false
	}
	return stock, true
}
