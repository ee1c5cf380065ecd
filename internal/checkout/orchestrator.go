// Package checkout sequences cart → address → shipping → payment → order.
// Every step reads and writes one versioned draft through DraftStore, so a
// restart resumes where the shopper left off.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rogerio-castellano/storefront/internal/alerts"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/rogerio-castellano/storefront/internal/payment/paypal"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoDraft              = errors.New("no checkout in progress")
	ErrEmptyCart            = errors.New("the cart is empty")
	ErrCartNeedsAttention   = errors.New("some cart quantities exceed available stock")
	ErrInvalidAddress       = errors.New("invalid shipping address")
	ErrNoShipping           = errors.New("choose a shipping method first")
	ErrPaymentNotStarted    = errors.New("payment has not been started")
	ErrPaymentMismatch      = errors.New("payment does not belong to this checkout")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrReconciliationLocked = errors.New("payment already captured; the order is awaiting reconciliation")
)

// PaymentError is a failure at the payment provider, before any backend
// order exists.
type PaymentError struct {
	Stage string
	Err   error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment %s failed: %v", e.Stage, e.Err)
}

func (e *PaymentError) Unwrap() []error {
	return []error{ErrPaymentFailed, e.Err}
}

// OrderNotRecordedError means the money was captured but the backend did not
// record the order. The draft is kept for reconciliation.
type OrderNotRecordedError struct {
	DraftID         string
	ProviderOrderID string
	CaptureID       string
	Total           decimal.Decimal
	Err             error
}

func (e *OrderNotRecordedError) Error() string {
	return fmt.Sprintf("payment %s captured but the order was not recorded: %v", e.CaptureID, e.Err)
}

func (e *OrderNotRecordedError) Unwrap() error {
	return e.Err
}

type Cart interface {
	Items() []models.CartItem
	Load(ctx context.Context) error
	Drain(ctx context.Context) error
}

type Orders interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
}

type Payments interface {
	CreateOrder(ctx context.Context, total decimal.Decimal, currency, description string) (paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (paypal.Order, error)
}

type Alerter interface {
	Raise(ctx context.Context, a alerts.Alert)
}

type Orchestrator struct {
	cart     Cart
	orders   Orders
	payments Payments
	alerter  Alerter
	drafts   *DraftStore
	pricer   *Pricer
	now      func() time.Time

	mu sync.Mutex
}

func New(cart Cart, orders Orders, payments Payments, alerter Alerter, drafts *DraftStore, pricer *Pricer) *Orchestrator {
	return &Orchestrator{
		cart:     cart,
		orders:   orders,
		payments: payments,
		alerter:  alerter,
		drafts:   drafts,
		pricer:   pricer,
		now:      time.Now,
	}
}

func (o *Orchestrator) Tiers() []Tier {
	return o.pricer.Tiers()
}

// current returns the draft still open for editing. A draft whose order is
// already recorded only waits to be deleted.
func (o *Orchestrator) current(ctx context.Context) (Draft, error) {
	d, ok, err := o.drafts.Load(ctx)
	if err != nil {
		return Draft{}, err
	}
	if !ok || d.Payment.State == PaymentCompleted {
		return Draft{}, ErrNoDraft
	}
	return d, nil
}

func (o *Orchestrator) save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = o.now()
	return o.drafts.Save(ctx, *d)
}

// Current returns the draft in progress.
func (o *Orchestrator) Current(ctx context.Context) (Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current(ctx)
}

// Begin snapshots the cart into a draft. A previous draft's address and
// shipping method carry over; pricing and payment start fresh.
func (o *Orchestrator) Begin(ctx context.Context) (Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev, hasPrev, err := o.drafts.Load(ctx)
	if err != nil {
		return Draft{}, err
	}
	if hasPrev && prev.Payment.State == PaymentCaptured {
		return prev, ErrReconciliationLocked
	}

	if err := o.cart.Load(ctx); err != nil {
		return Draft{}, err
	}
	items := o.cart.Items()
	if len(items) == 0 {
		return Draft{}, ErrEmptyCart
	}

	d := newDraft(o.now())
	for _, it := range items {
		if it.OverRequested {
			return Draft{}, fmt.Errorf("%w: %s", ErrCartNeedsAttention, it.Name)
		}
		d.Lines = append(d.Lines, models.OrderLine{
			ProductID: it.ProductRef(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	if hasPrev {
		d.Address = prev.Address
		d.ShippingTier = prev.ShippingTier
	}

	if err := o.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	logrus.WithFields(logrus.Fields{"draft": d.ID, "units": d.Units()}).Info("Checkout started")
	return d, nil
}

// UpdateAddress stores the address as typed so far. It is not validated
// until a shipping method is chosen.
func (o *Orchestrator) UpdateAddress(ctx context.Context, addr models.Address) (Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, err := o.current(ctx)
	if err != nil {
		return Draft{}, err
	}
	if d.Payment.State == PaymentCaptured {
		return d, ErrReconciliationLocked
	}

	d.Address = addr
	d.Payment = Payment{}
	if err := o.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// SelectShipping validates the address and prices the draft with tierID.
func (o *Orchestrator) SelectShipping(ctx context.Context, tierID string) (Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, err := o.current(ctx)
	if err != nil {
		return Draft{}, err
	}
	if d.Payment.State == PaymentCaptured {
		return d, ErrReconciliationLocked
	}
	if fields := validateAddress(d.Address); len(fields) > 0 {
		return d, &ValidationError{Fields: fields}
	}

	pricing, err := o.pricer.Quote(d.Lines, tierID)
	if err != nil {
		return d, err
	}
	d.ShippingTier = tierID
	d.Pricing = &pricing
	d.Payment = Payment{}
	if err := o.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// StartPayment opens a provider order for the draft total. The shopper
// approves it at Payment.ApproveURL.
func (o *Orchestrator) StartPayment(ctx context.Context) (Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, err := o.current(ctx)
	if err != nil {
		return Draft{}, err
	}
	if d.Payment.State == PaymentCaptured {
		return d, ErrReconciliationLocked
	}
	if d.Pricing == nil {
		return d, ErrNoShipping
	}

	desc := fmt.Sprintf("Pedido %s (%d artículos)", d.ID, d.Units())
	po, err := o.payments.CreateOrder(ctx, d.Pricing.Total, d.Pricing.Currency, desc)
	if err != nil {
		return d, &PaymentError{Stage: "create", Err: err}
	}

	d.Payment = Payment{State: PaymentPending, ProviderOrderID: po.ID, ApproveURL: po.ApproveURL}
	if err := o.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// CompletePayment captures the approved provider order and, only when the
// capture completed, records the order with the backend. The cart is then
// drained line by line and the draft deleted. Calling it again on a draft
// whose capture succeeded but whose order failed retries the order only, and
// on a draft whose order was recorded returns that order.
func (o *Orchestrator) CompletePayment(ctx context.Context, providerOrderID string) (models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, ok, err := o.drafts.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, ErrNoDraft
	}
	if d.Payment.State == PaymentNone || d.Pricing == nil {
		return models.Order{}, ErrPaymentNotStarted
	}
	if d.Payment.ProviderOrderID != providerOrderID {
		return models.Order{}, ErrPaymentMismatch
	}

	log := logrus.WithFields(logrus.Fields{"draft": d.ID, "paypal_order": providerOrderID})

	if d.Payment.State == PaymentCompleted && d.Payment.Order != nil {
		log.WithField("order", d.Payment.Order.ID).Info("Order already recorded")
		if err := o.drafts.Delete(ctx); err != nil {
			log.WithError(err).Warn("Could not delete finished checkout draft")
		}
		return *d.Payment.Order, nil
	}

	if d.Payment.State != PaymentCaptured {
		captured, err := o.payments.CaptureOrder(ctx, providerOrderID)
		if err != nil {
			return models.Order{}, &PaymentError{Stage: "capture", Err: err}
		}
		if !captured.Completed() {
			return models.Order{}, &PaymentError{Stage: "capture", Err: fmt.Errorf("provider reported status %s", captured.Status)}
		}

		d.Payment.State = PaymentCaptured
		d.Payment.CaptureID = captured.CaptureID
		log = log.WithField("capture", captured.CaptureID)
		log.Info("Payment captured")

		// Without a stored capture a retry would charge again.
		if err := o.save(ctx, &d); err != nil {
			o.raise(ctx, alerts.KindOrderNotRecorded, "Payment captured but could not be saved", d, err)
			log.WithError(err).Error("Could not persist captured payment")
			return models.Order{}, notRecorded(d, err)
		}
	}

	order, err := o.orders.CreateOrder(ctx, o.orderRequest(d))
	if err != nil {
		o.raise(ctx, alerts.KindOrderNotRecorded, "Payment captured but order not recorded", d, err)
		log.WithError(err).Error("Order creation failed after payment capture")
		return models.Order{}, notRecorded(d, err)
	}

	d.Payment.State = PaymentCompleted
	d.Payment.Order = &order
	log = log.WithField("order", order.ID)
	log.Info("Order recorded")
	saveErr := o.save(ctx, &d)
	if saveErr != nil {
		log.WithError(saveErr).Error("Could not persist the recorded order")
	}

	if err := o.cart.Drain(ctx); err != nil {
		o.raise(ctx, alerts.KindCartDrainFailed, "Order recorded but cart lines were not all released", d, err)
	}
	if err := o.drafts.Delete(ctx); err != nil {
		log.WithError(err).Warn("Could not delete finished checkout draft")
		if saveErr != nil {
			o.raise(ctx, alerts.KindDraftNotCleared, "Order recorded but the draft still shows a pending capture", d, errors.Join(saveErr, err))
		}
	}
	return order, nil
}

func notRecorded(d Draft, err error) *OrderNotRecordedError {
	return &OrderNotRecordedError{
		DraftID:         d.ID,
		ProviderOrderID: d.Payment.ProviderOrderID,
		CaptureID:       d.Payment.CaptureID,
		Total:           d.Pricing.Total,
		Err:             err,
	}
}

// Discard drops the draft when the session ends, so the next shopper does not
// inherit its address. A captured payment is kept for reconciliation. It does
// not take the step lock: the step in flight may be the one ending the session.
func (o *Orchestrator) Discard(ctx context.Context) error {
	d, ok, err := o.drafts.Load(ctx)
	if err != nil || !ok {
		return err
	}
	if d.Payment.State == PaymentCaptured {
		logrus.WithField("draft", d.ID).Warn("Keeping captured checkout draft after logout")
		return nil
	}
	logrus.WithField("draft", d.ID).Info("Checkout draft discarded with the session")
	return o.drafts.Delete(ctx)
}

// Abandon drops the draft. A captured payment cannot be abandoned.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, ok, err := o.drafts.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if d.Payment.State == PaymentCaptured {
		return ErrReconciliationLocked
	}
	logrus.WithField("draft", d.ID).Info("Checkout abandoned")
	return o.drafts.Delete(ctx)
}

func (o *Orchestrator) orderRequest(d Draft) models.OrderRequest {
	return models.OrderRequest{
		Lines:        d.Lines,
		Address:      d.Address,
		ShippingTier: d.ShippingTier,
		Subtotal:     d.Pricing.Subtotal,
		Tax:          d.Pricing.Tax,
		ShippingCost: d.Pricing.Shipping,
		Total:        d.Pricing.Total,
		PaymentID:    d.Payment.ProviderOrderID,
		CaptureID:    d.Payment.CaptureID,
	}
}

func (o *Orchestrator) raise(ctx context.Context, kind, subject string, d Draft, cause error) {
	if o.alerter == nil {
		return
	}
	o.alerter.Raise(ctx, alerts.Alert{
		Kind:    kind,
		Subject: subject,
		Fields: map[string]string{
			"draft":          d.ID,
			"paypal_order":   d.Payment.ProviderOrderID,
			"paypal_capture": d.Payment.CaptureID,
			"total":          d.Pricing.Total.StringFixed(2) + " " + d.Pricing.Currency,
			"email":          d.Address.Email,
			"cause":          cause.Error(),
		},
	})
}
