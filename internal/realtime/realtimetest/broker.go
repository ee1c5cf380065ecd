// Package realtimetest provides an in-process pub/sub broker implementing
// realtime.Transport for tests.
package realtimetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rogerio-castellano/storefront/internal/realtime"
)

var ErrDialRefused = errors.New("realtimetest: dial refused")

type Broker struct {
	mu        sync.Mutex
	dials     int
	failDials int
	open      int
	subs      map[string][]*subscription
	lastCreds realtime.Credentials
	gate      chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string][]*subscription{}}
}

// FailDials makes the next n dials fail.
func (b *Broker) FailDials(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDials = n
}

// Hold blocks dials until the returned function is called.
func (b *Broker) Hold() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// OpenConns is the number of connections not yet closed.
func (b *Broker) OpenConns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Broker) LastCredentials() realtime.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCreds
}

func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// Publish delivers event with data marshalled to JSON to every subscriber of
// channel.
func (b *Broker) Publish(channel, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(realtime.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return b.PublishRaw(channel, payload)
}

func (b *Broker) PublishRaw(channel string, payload []byte) error {
	b.mu.Lock()
	targets := append([]*subscription(nil), b.subs[channel]...)
	b.mu.Unlock()

	for _, s := range targets {
		s.deliver(payload)
	}
	return nil
}

func (b *Broker) Dial(ctx context.Context, creds realtime.Credentials) (realtime.Conn, error) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	b.lastCreds = creds
	if b.failDials > 0 {
		b.failDials--
		return nil, ErrDialRefused
	}
	b.open++
	return &conn{b: b}, nil
}

type conn struct {
	b      *Broker
	mu     sync.Mutex
	closed bool
}

func (c *conn) Subscribe(_ context.Context, channel string) (realtime.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("realtimetest: connection closed")
	}

	s := &subscription{b: c.b, channel: channel, out: make(chan []byte, 16)}
	c.b.mu.Lock()
	c.b.subs[channel] = append(c.b.subs[channel], s)
	c.b.mu.Unlock()
	return s, nil
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.b.mu.Lock()
	c.b.open--
	c.b.mu.Unlock()
	return nil
}

type subscription struct {
	b       *Broker
	channel string

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

func (s *subscription) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.out <- payload
}

func (s *subscription) Messages() <-chan []byte {
	return s.out
}

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.out)
	s.mu.Unlock()

	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	list := s.b.subs[s.channel]
	for i, other := range list {
		if other == s {
			s.b.subs[s.channel] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.b.subs[s.channel]) == 0 {
		delete(s.b.subs, s.channel)
	}
	return nil
}
