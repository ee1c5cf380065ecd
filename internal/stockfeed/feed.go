package stockfeed

import (
	"context"
	"sync"

	"github.com/rogerio-castellano/storefront/internal/realtime"
)

// Feed runs at most one Updater at a time and, unlike an Updater, can be
// started again after Stop. It follows the session: started on login,
// stopped on logout.
type Feed struct {
	ctx      context.Context
	manager  *realtime.Manager
	opts     Options
	onChange func(StockChange)

	mu      sync.Mutex
	current *Updater
}

func NewFeed(ctx context.Context, m *realtime.Manager, opts Options, onChange func(StockChange)) *Feed {
	return &Feed{ctx: ctx, manager: m, opts: opts, onChange: onChange}
}

// Start launches an updater unless one is already running.
func (f *Feed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		return
	}
	f.current = NewUpdater(f.manager, f.opts, f.onChange)
	f.current.Start(f.ctx)
}

// Stop stops the running updater, if any.
func (f *Feed) Stop() {
	f.mu.Lock()
	u := f.current
	f.current = nil
	f.mu.Unlock()
	if u != nil {
		u.Stop()
	}
}

func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != nil
}

// Ready reports whether the running updater is subscribed.
func (f *Feed) Ready() bool {
	f.mu.Lock()
	u := f.current
	f.mu.Unlock()
	return u != nil && u.Ready()
}
