package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/config"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var ErrUnknownTier = errors.New("unknown shipping method")

type Tier struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Cost  decimal.Decimal `json:"costo"`
}

type Pricer struct {
	taxRate  decimal.Decimal
	currency string
	tiers    []Tier
}

func NewPricer(cfg config.CheckoutConfig) (*Pricer, error) {
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil || rate.IsNegative() {
		return nil, fmt.Errorf("invalid checkout.tax_rate %q", cfg.TaxRate)
	}

	src := cfg.ShippingTiers
	if len(src) == 0 {
		src = config.DefaultShippingTiers()
	}
	tiers := make([]Tier, 0, len(src))
	for _, t := range src {
		cost, err := decimal.NewFromString(t.Cost)
		if err != nil || cost.IsNegative() {
			return nil, fmt.Errorf("invalid cost %q for shipping tier %s", t.Cost, t.ID)
		}
		tiers = append(tiers, Tier{ID: t.ID, Label: t.Label, Cost: cost})
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &Pricer{taxRate: rate, currency: currency, tiers: tiers}, nil
}

func (p *Pricer) Currency() string {
	return p.currency
}

func (p *Pricer) Tiers() []Tier {
	return append([]Tier(nil), p.tiers...)
}

func (p *Pricer) Tier(id string) (Tier, bool) {
	for _, t := range p.tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}

// Quote computes total = subtotal + tax + shipping, each rounded to cents.
func (p *Pricer) Quote(lines []models.OrderLine, tierID string) (Pricing, error) {
	tier, ok := p.Tier(tierID)
	if !ok {
		return Pricing{}, fmt.Errorf("%w: %q", ErrUnknownTier, tierID)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.taxRate).Round(2)
	shipping := tier.Cost.Round(2)

	return Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
		Currency: p.currency,
	}, nil
}
