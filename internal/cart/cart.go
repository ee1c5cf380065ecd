// Package cart keeps the local view of the shopper's cart in step with the
// backend. The backend is authoritative: every mutation ends in a full
// reload, and a reload only lands if no newer one was issued after it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/rogerio-castellano/storefront/internal/notice"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateError         State = "error"
)

const DefaultExpiryDelay = 2 * time.Second

var (
	ErrAuthRequired    = errors.New("you need to log in to use the cart")
	ErrSessionExpired  = errors.New("your session expired, log in again")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrClosed          = errors.New("cart store closed")
)

// Backend is the subset of the backend client the store needs.
type Backend interface {
	GetCart(ctx context.Context) ([]models.CartItem, error)
	AddToCart(ctx context.Context, productID, quantity int) error
	UpdateCartItem(ctx context.Context, lineID, quantity int) error
	RemoveCartItem(ctx context.Context, lineID int) error
	ClearCart(ctx context.Context) error
	VerifyCartExpiry(ctx context.Context) (models.ExpiryReport, error)
}

// Auth is the session the store reads the token from and resets on 401/403.
type Auth interface {
	Token() string
	Clear(ctx context.Context) error
}

// Stopper is anything the store must stop when it closes, typically the
// stock feed updater.
type Stopper interface {
	Stop()
}

type Options struct {
	ExpiryDelay time.Duration
	Notifier    notice.Notifier
	// RequestTimeout bounds reloads the store starts on its own.
	RequestTimeout time.Duration
}

type Store struct {
	backend     Backend
	auth        Auth
	notify      notice.Notifier
	expiryDelay time.Duration
	timeout     time.Duration

	mu       sync.Mutex
	state    State
	items    []models.CartItem
	err      error
	gen      uint64
	closed   bool
	timer    *time.Timer
	timerSeq uint64
	watched  []Stopper
}

func New(b Backend, auth Auth, opts Options) *Store {
	if opts.ExpiryDelay <= 0 {
		opts.ExpiryDelay = DefaultExpiryDelay
	}
	if opts.Notifier == nil {
		opts.Notifier = notice.Discard
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Store{
		backend:     b,
		auth:        auth,
		notify:      opts.Notifier,
		expiryDelay: opts.ExpiryDelay,
		timeout:     opts.RequestTimeout,
		state:       StateUninitialized,
		items:       []models.CartItem{},
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the failure that put the store in StateError.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Items returns a copy of the current lines.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.items...)
}

// Total is the sum of price × quantity over the current lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Watch ties the lifetime of st to the store: Close stops it.
func (s *Store) Watch(st Stopper) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		st.Stop()
		return
	}
	s.watched = append(s.watched, st)
	s.mu.Unlock()
}

// Close discards every result still in flight, cancels the pending expiry
// check and stops the watched updaters. In-flight requests are not aborted.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	watched := s.watched
	s.watched = nil
	s.mu.Unlock()

	for _, st := range watched {
		st.Stop()
	}
}

// Reset forgets the current user's cart. Results still in flight are
// discarded and the next read goes back to the backend.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateUninitialized
	s.err = nil
	s.items = []models.CartItem{}
	s.stopTimerLocked()
}

// Load replaces the local cart with the backend's.
func (s *Store) Load(ctx context.Context) error {
	return s.reload(ctx, true)
}

// reload fetches the cart under a fresh generation. arm schedules the expiry
// check when the result is a non-empty ready cart.
func (s *Store) reload(ctx context.Context, arm bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.mu.Unlock()

	items, err := s.backend.GetCart(ctx)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		logrus.WithField("generation", gen).Debug("Discarding stale cart reload")
		return err
	}

	if err != nil {
		s.state = StateError
		s.err = err
		s.items = []models.CartItem{}
		s.stopTimerLocked()
		s.mu.Unlock()

		if errors.Is(err, backend.ErrUnauthorized) {
			s.expireSession(ctx)
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		logrus.WithError(err).Warn("Cart load failed")
		return err
	}

	over := reconcile(items)
	s.items = items
	s.state = StateReady
	s.err = nil
	if len(items) == 0 {
		s.stopTimerLocked()
	} else if arm {
		s.armTimerLocked()
	}
	s.mu.Unlock()

	for _, it := range over {
		s.notify.Notify(notice.Notice{
			Level:  notice.Warning,
			Action: "cart.load",
			Message: fmt.Sprintf("Only %d of %q are available; the quantity (%d) will be adjusted",
				it.Available, it.Name, it.Quantity),
		})
	}
	return nil
}

// reconcile fills the derived fields and returns the over-requested lines.
func reconcile(items []models.CartItem) []models.CartItem {
	var over []models.CartItem
	for i := range items {
		it := &items[i]
		it.Headroom = it.Available - it.Quantity
		it.OverRequested = it.Quantity > it.Available
		if it.OverRequested {
			over = append(over, *it)
		}
	}
	return over
}

func (s *Store) expireSession(ctx context.Context) {
	if s.auth == nil {
		return
	}
	if err := s.auth.Clear(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to clear expired session")
	}
}

func (s *Store) requireAuth() error {
	if s.auth == nil || s.auth.Token() == "" {
		return ErrAuthRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) findLine(lineID int) (models.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == lineID {
			return it, true
		}
	}
	return models.CartItem{}, false
}

func (s *Store) setLoading() {
	s.mu.Lock()
	if !s.closed {
		s.state = StateLoading
	}
	s.mu.Unlock()
}

// settle finishes a mutation: it reloads and maps the mutation error.
func (s *Store) settle(ctx context.Context, action string, err error) error {
	switch {
	case err == nil:
		return s.reload(ctx, true)

	case errors.Is(err, backend.ErrUnauthorized):
		s.mu.Lock()
		s.state = StateError
		s.err = ErrSessionExpired
		s.items = []models.CartItem{}
		s.stopTimerLocked()
		s.mu.Unlock()
		s.expireSession(ctx)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)

	case errors.Is(err, backend.ErrStockConflict):
		s.notify.Notify(notice.Notice{
			Level:   notice.Warning,
			Action:  action,
			Message: "Not enough stock for that quantity; the cart was refreshed with current availability",
		})
		if rerr := s.reload(ctx, true); rerr != nil {
			return rerr
		}
		return s.clampOver(ctx, action, 0)
	}

	if rerr := s.reload(ctx, true); rerr != nil {
		logrus.WithError(rerr).Warn("Reload after failed cart mutation failed")
	}
	return err
}

// clampOver brings over-requested lines down to their available stock,
// removing those with none left. skip excludes the line the caller is
// already changing.
func (s *Store) clampOver(ctx context.Context, action string, skip int) error {
	var over []models.CartItem
	s.mu.Lock()
	for _, it := range s.items {
		if it.OverRequested && it.ID != skip {
			over = append(over, it)
		}
	}
	s.mu.Unlock()
	if len(over) == 0 {
		return nil
	}

	for _, it := range over {
		var err error
		var msg string
		if it.Available <= 0 {
			err = s.backend.RemoveCartItem(ctx, it.ID)
			msg = fmt.Sprintf("%q is out of stock and was removed from the cart", it.Name)
		} else {
			err = s.backend.UpdateCartItem(ctx, it.ID, it.Available)
			msg = fmt.Sprintf("Quantity of %q adjusted from %d to %d", it.Name, it.Quantity, it.Available)
		}
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				return s.settle(ctx, action, err)
			}
			logrus.WithField("line", it.ID).WithError(err).Warn("Could not adjust over-requested cart line")
			continue
		}
		s.notify.Notify(notice.Notice{Level: notice.Warning, Action: action, Message: msg})
	}
	return s.reload(ctx, true)
}

// Add puts quantity units of productID in the cart.
func (s *Store) Add(ctx context.Context, productID, quantity int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.clampOver(ctx, "cart.add", 0); err != nil {
		return err
	}

	s.setLoading()
	addErr := s.backend.AddToCart(ctx, productID, quantity)
	if err := s.settle(ctx, "cart.add", addErr); err != nil {
		return err
	}
	if addErr == nil {
		s.notify.Notify(notice.Notice{Level: notice.Success, Action: "cart.add", Message: "Product added to the cart"})
	}
	return nil
}

// UpdateQuantity sets the quantity of a line. Requests above the last known
// stock are clamped to it, and a line with no stock left is removed.
func (s *Store) UpdateQuantity(ctx context.Context, lineID, quantity int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	line, ok := s.findLine(lineID)
	if !ok {
		return ErrLineNotFound
	}

	if quantity > line.Available {
		if line.Available <= 0 {
			return s.Remove(ctx, lineID)
		}
		s.notify.Notify(notice.Notice{
			Level:   notice.Warning,
			Action:  "cart.update",
			Message: fmt.Sprintf("Only %d of %q are available", line.Available, line.Name),
		})
		quantity = line.Available
	}
	if err := s.clampOver(ctx, "cart.update", lineID); err != nil {
		return err
	}

	s.setLoading()
	return s.settle(ctx, "cart.update", s.backend.UpdateCartItem(ctx, lineID, quantity))
}

// Remove drops a line locally right away, then on the backend; the cart is
// reloaded either way so a failed delete never leaves the line missing.
func (s *Store) Remove(ctx context.Context, lineID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	s.mu.Lock()
	idx := -1
	for i, it := range s.items {
		if it.ID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrLineNotFound
	}
	name := s.items[idx].Name
	s.items = append(append([]models.CartItem{}, s.items[:idx]...), s.items[idx+1:]...)
	s.gen++
	if len(s.items) == 0 {
		s.stopTimerLocked()
	}
	s.mu.Unlock()

	err := s.backend.RemoveCartItem(ctx, lineID)
	if errors.Is(err, backend.ErrNotFound) {
		err = nil
	}
	if err == nil {
		s.notify.Notify(notice.Notice{
			Level:   notice.Success,
			Action:  "cart.remove",
			Message: fmt.Sprintf("%q removed from the cart", name),
		})
		if cerr := s.clampOver(ctx, "cart.remove", lineID); cerr != nil {
			return cerr
		}
	}
	return s.settle(ctx, "cart.remove", err)
}

// Clear empties the cart with the backend's bulk endpoint.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	s.setLoading()
	if err := s.backend.ClearCart(ctx); err != nil {
		return s.settle(ctx, "cart.clear", err)
	}

	s.mu.Lock()
	if !s.closed {
		s.gen++
		s.items = []models.CartItem{}
		s.state = StateReady
		s.err = nil
		s.stopTimerLocked()
	}
	s.mu.Unlock()
	return nil
}

// Drain removes every line one by one so the backend releases stock per
// line, then reloads.
func (s *Store) Drain(ctx context.Context) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	lines, err := s.backend.GetCart(ctx)
	if err != nil {
		lines = s.Items()
	}

	var errs []error
	for _, it := range lines {
		err := s.backend.RemoveCartItem(ctx, it.ID)
		if err == nil || errors.Is(err, backend.ErrNotFound) {
			continue
		}
		if errors.Is(err, backend.ErrUnauthorized) {
			return s.settle(ctx, "cart.drain", err)
		}
		logrus.WithField("line", it.ID).WithError(err).Warn("Could not remove cart line while draining")
		errs = append(errs, fmt.Errorf("line %d: %w", it.ID, err))
	}

	if rerr := s.reload(ctx, false); rerr != nil && !errors.Is(rerr, ErrClosed) {
		errs = append(errs, rerr)
	}
	return errors.Join(errs...)
}

// CheckExpiry asks the backend to sweep expired lines, warns about lines
// that vanished and reloads. The reload does not schedule another check.
func (s *Store) CheckExpiry(ctx context.Context) (models.ExpiryReport, error) {
	if err := s.requireAuth(); err != nil {
		return models.ExpiryReport{}, err
	}

	report, err := s.backend.VerifyCartExpiry(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return models.ExpiryReport{}, s.settle(ctx, "cart.expiry", err)
		}
		logrus.WithError(err).Warn("Cart expiry check failed")
		return models.ExpiryReport{}, err
	}

	var warned []string
	for _, it := range append(append([]models.ExpiredItem{}, report.Expired...), report.Adjusted...) {
		if it.Warns() {
			name := it.ProductName
			if name == "" {
				name = fmt.Sprintf("product %d", it.ProductID)
			}
			warned = append(warned, name)
		}
	}
	if len(warned) > 0 {
		s.notify.Notify(notice.Notice{
			Level:   notice.Warning,
			Action:  "cart.expiry",
			Message: fmt.Sprintf("Some items left your cart because they expired or ran out of stock: %v", warned),
		})
	}

	if err := s.reload(ctx, false); err != nil {
		return report, err
	}
	return report, nil
}

// OnStockChange reloads the cart in the background. It is the stock feed
// callback, so it must not block.
func (s *Store) OnStockChange(productID, newStock int) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	logrus.WithFields(logrus.Fields{"product_id": productID, "stock": newStock}).Debug("Stock changed, reloading cart")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if s.auth != nil && s.auth.Token() == "" {
			return
		}
		if err := s.Load(ctx); err != nil && !errors.Is(err, ErrClosed) {
			logrus.WithError(err).Warn("Cart reload after stock change failed")
		}
	}()
}

// armTimerLocked (re)starts the debounced expiry check.
func (s *Store) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = time.AfterFunc(s.expiryDelay, func() { s.expiryDue(seq) })
}

func (s *Store) stopTimerLocked() {
	s.timerSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ExpiryPending reports whether an expiry check is scheduled.
func (s *Store) ExpiryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Store) expiryDue(seq uint64) {
	s.mu.Lock()
	if seq != s.timerSeq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	skip := s.closed || len(s.items) == 0 || s.state != StateReady
	s.mu.Unlock()
	if skip {
		return
	}
	if s.auth != nil && s.auth.Token() == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.CheckExpiry(ctx); err != nil && !errors.Is(err, ErrClosed) {
		logrus.WithError(err).Warn("Scheduled cart expiry check failed")
	}
}
