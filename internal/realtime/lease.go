package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// Lease is one subscriber's hold on the shared connection.
type Lease struct {
	m       *Manager
	attempt *dialAttempt

	mu       sync.Mutex
	released bool
	handles  []*Handle
}

// Wait blocks until the connection attempt this lease joined succeeds or
// fails, or ctx is done.
func (l *Lease) Wait(ctx context.Context) error {
	select {
	case <-l.attempt.done:
		return l.attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns this lease's view of channel name.
func (l *Lease) Subscribe(ctx context.Context, name string) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil, ErrReleased
	}
	ch, err := l.m.subscribe(ctx, name)
	if err != nil {
		return nil, err
	}
	h := &Handle{lease: l, ch: ch}
	l.handles = append(l.handles, h)
	return h, nil
}

// Release drops the lease's bindings and its hold on the connection. It is
// safe to call more than once and before Wait returned.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	handles := l.handles
	l.handles = nil
	l.mu.Unlock()

	for _, h := range handles {
		h.Unsubscribe()
	}
	l.m.release()
}

// Handle is a lease-scoped set of bindings on a shared channel.
type Handle struct {
	lease *Lease
	ch    *channel

	once    sync.Once
	dropped bool // guarded by ch.mu
}

func (h *Handle) Channel() string {
	return h.ch.name
}

// Bind adds a handler for event. It does nothing once the handle has been
// unsubscribed.
func (h *Handle) Bind(event string, fn func(data json.RawMessage)) {
	h.ch.bind(h, event, fn)
}

// Unbind removes this handle's handlers for event, or for every event when
// event is empty.
func (h *Handle) Unbind(event string) {
	h.ch.unbind(h, event)
}

// Unsubscribe unbinds everything and lets go of the channel. Other handles on
// the same channel keep receiving.
func (h *Handle) Unsubscribe() {
	h.once.Do(func() {
		h.ch.drop(h)
		h.lease.m.dropChannel(h.ch)
	})
}
