package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/rogerio-castellano/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DraftVersion is the only draft schema this build reads.
const DraftVersion = 1

type PaymentState string

const (
	PaymentNone      PaymentState = ""
	PaymentPending   PaymentState = "pending"
	PaymentCaptured  PaymentState = "payment_captured"
	PaymentCompleted PaymentState = "completed"
)

type Payment struct {
	State           PaymentState  `json:"state,omitempty"`
	ProviderOrderID string        `json:"provider_order_id,omitempty"`
	ApproveURL      string        `json:"approve_url,omitempty"`
	CaptureID       string        `json:"capture_id,omitempty"`
	Order           *models.Order `json:"order,omitempty"`
}

type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"impuestos"`
	Shipping decimal.Decimal `json:"costo_envio"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"moneda"`
}

// Draft is the checkout state carried between steps.
type Draft struct {
	Version      int                `json:"version"`
	ID           string             `json:"id"`
	Lines        []models.OrderLine `json:"items"`
	Address      models.Address     `json:"direccion"`
	ShippingTier string             `json:"metodo_envio,omitempty"`
	Pricing      *Pricing           `json:"pricing,omitempty"`
	Payment      Payment            `json:"payment"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func newDraft(now time.Time) Draft {
	return Draft{
		Version:   DraftVersion,
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Units is the number of items in the draft.
func (d Draft) Units() int {
	n := 0
	for _, l := range d.Lines {
		n += l.Quantity
	}
	return n
}

// DraftStore persists the single in-progress draft under storage.KeyClientInfo.
type DraftStore struct {
	store storage.Store
}

func NewDraftStore(store storage.Store) *DraftStore {
	return &DraftStore{store: store}
}

// Load returns the stored draft. Drafts that cannot be read or carry another
// schema version are deleted and reported as absent.
func (s *DraftStore) Load(ctx context.Context) (Draft, bool, error) {
	var d Draft
	err := storage.GetJSON(ctx, s.store, storage.KeyClientInfo, &d)
	if errors.Is(err, storage.ErrNotFound) {
		return Draft{}, false, nil
	}
	if err == nil && d.Version == DraftVersion && d.ID != "" {
		return d, true, nil
	}

	log := logrus.WithField("version", d.Version)
	if err != nil {
		log = log.WithError(err)
	}
	log.Warn("Discarding unreadable checkout draft")
	if derr := s.Delete(ctx); derr != nil {
		return Draft{}, false, derr
	}
	return Draft{}, false, nil
}

func (s *DraftStore) Save(ctx context.Context, d Draft) error {
	return storage.SetJSON(ctx, s.store, storage.KeyClientInfo, d)
}

func (s *DraftStore) Delete(ctx context.Context) error {
	err := s.store.Delete(ctx, storage.KeyClientInfo)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
