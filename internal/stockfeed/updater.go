// Package stockfeed turns realtime stock events into StockChange callbacks.
package stockfeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rogerio-castellano/storefront/internal/realtime"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChannel        = "stock-updates"
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 2 * time.Second
)

var errStopped = errors.New("updater stopped")

type Options struct {
	Channel string
	// MaxRetries caps the connection attempts, the first one included.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Updater subscribes to the stock channel on the shared connection and calls
// onChange for every stock event. It never touches state of its own accord.
type Updater struct {
	manager  *realtime.Manager
	opts     Options
	onChange func(StockChange)

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lease    *realtime.Lease
	attempts int
	ready    bool
}

func NewUpdater(m *realtime.Manager, opts Options, onChange func(StockChange)) *Updater {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return &Updater{manager: m, opts: opts, onChange: onChange}
}

// Start connects in the background. Calling it again is a no-op.
func (u *Updater) Start(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started || u.stopped {
		return
	}
	u.started = true

	ctx, u.cancel = context.WithCancel(ctx)
	u.done = make(chan struct{})
	go u.run(ctx)
}

func (u *Updater) run(ctx context.Context) {
	defer close(u.done)
	log := logrus.WithField("channel", u.opts.Channel)

	for attempt := 1; ; attempt++ {
		err := u.connect(ctx)
		if err == nil {
			log.Info("Listening for stock updates")
			return
		}
		if ctx.Err() != nil || errors.Is(err, errStopped) {
			return
		}
		if attempt >= u.opts.MaxRetries {
			log.WithError(err).Warnf("Giving up on stock updates after %d attempts", attempt)
			return
		}

		delay := time.Duration(attempt) * u.opts.RetryBaseDelay
		log.WithError(err).Warnf("Stock updates unavailable, retrying in %s", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (u *Updater) connect(ctx context.Context) error {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return errStopped
	}
	u.attempts++
	lease := u.manager.Acquire()
	u.lease = lease
	u.mu.Unlock()

	fail := func(err error) error {
		u.mu.Lock()
		if u.lease == lease {
			u.lease = nil
		}
		u.mu.Unlock()
		lease.Release()
		return err
	}

	if err := lease.Wait(ctx); err != nil {
		return fail(err)
	}
	h, err := lease.Subscribe(ctx, u.opts.Channel)
	if err != nil {
		return fail(err)
	}
	for _, name := range Events {
		h.Bind(name, u.handler(name))
	}

	u.mu.Lock()
	u.ready = !u.stopped
	u.mu.Unlock()
	return nil
}

func (u *Updater) handler(name string) func(json.RawMessage) {
	return func(data json.RawMessage) {
		ev, err := Decode(name, data)
		if err != nil {
			logrus.WithField("event", name).WithError(err).Warn("Ignoring stock event")
			return
		}
		u.onChange(ev.Change())
	}
}

// Stop unbinds the handlers and releases the shared connection. It is safe to
// call before Start, during setup, and more than once.
func (u *Updater) Stop() {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return
	}
	u.stopped = true
	u.ready = false
	cancel, done, lease := u.cancel, u.done, u.lease
	u.lease = nil
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if lease != nil {
		lease.Release()
	}
	if done != nil {
		<-done
	}
}

// Attempts is the number of connection attempts made so far.
func (u *Updater) Attempts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.attempts
}

// Ready reports whether the handlers are bound.
func (u *Updater) Ready() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ready
}
