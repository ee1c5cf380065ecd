package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

type binding struct {
	owner *Handle
	event string
	fn    func(json.RawMessage)
}

// channel is the connection-level subscription shared by every handle.
type channel struct {
	name    string
	sub     Subscription
	holders int

	mu       sync.RWMutex
	bindings []binding
	closed   bool
}

func newChannel(name string, sub Subscription) *channel {
	ch := &channel{name: name, sub: sub}
	go ch.pump()
	return ch
}

func (c *channel) pump() {
	for payload := range c.sub.Messages() {
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logrus.WithField("channel", c.name).WithError(err).Warn("Dropping malformed realtime message")
			continue
		}
		c.dispatch(env)
	}
}

func (c *channel) dispatch(env Envelope) {
	c.mu.RLock()
	var targets []func(json.RawMessage)
	for _, b := range c.bindings {
		if b.event == env.Event {
			targets = append(targets, b.fn)
		}
	}
	c.mu.RUnlock()

	for _, fn := range targets {
		fn(env.Data)
	}
}

func (c *channel) bind(owner *Handle, event string, fn func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || owner.dropped {
		return
	}
	c.bindings = append(c.bindings, binding{owner: owner, event: event, fn: fn})
}

// drop removes owner's bindings and refuses the ones it adds later.
func (c *channel) drop(owner *Handle) {
	c.mu.Lock()
	owner.dropped = true
	c.mu.Unlock()
	c.unbind(owner, "")
}

func (c *channel) unbind(owner *Handle, event string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.bindings[:0]
	for _, b := range c.bindings {
		if b.owner == owner && (event == "" || b.event == event) {
			continue
		}
		kept = append(kept, b)
	}
	c.bindings = kept
}

func (c *channel) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.bindings = nil
	c.mu.Unlock()

	if err := c.sub.Close(); err != nil {
		logrus.WithField("channel", c.name).WithError(err).Debug("Closing subscription")
	}
}
