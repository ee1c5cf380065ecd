// Package realtime owns the single shared connection to the pub/sub service.
// Subscribers acquire a lease, wait for the connection and bind handlers on
// channels; the connection lives exactly as long as at least one lease does.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

var (
	ErrReleased     = errors.New("lease already released")
	ErrNotConnected = errors.New("realtime connection not established")
)

type dialAttempt struct {
	done chan struct{}
	err  error
}

type Manager struct {
	transport Transport
	auth      Authorizer

	mu       sync.Mutex
	refs     int
	state    State
	conn     Conn
	attempt  *dialAttempt
	cancel   context.CancelFunc
	channels map[string]*channel
}

func NewManager(transport Transport, auth Authorizer) *Manager {
	return &Manager{
		transport: transport,
		auth:      auth,
		channels:  map[string]*channel{},
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Refs is the number of live leases.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Acquire registers interest in the shared connection, dialing it if no
// connection exists or the previous attempt failed.
func (m *Manager) Acquire() *Lease {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs++
	if m.state == StateIdle || m.state == StateFailed {
		m.dialLocked()
	}
	return &Lease{m: m, attempt: m.attempt}
}

func (m *Manager) dialLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	att := &dialAttempt{done: make(chan struct{})}
	m.attempt = att
	m.cancel = cancel
	m.state = StateConnecting

	go func() {
		conn, err := m.dial(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		defer close(att.done)

		if m.attempt != att {
			// Superseded: every lease was released while dialing.
			if conn != nil {
				conn.Close()
			}
			if err == nil {
				err = ErrNotConnected
			}
			att.err = err
			return
		}
		if err != nil {
			att.err = err
			m.state = StateFailed
			logrus.WithError(err).Warn("Realtime connection failed")
			return
		}
		m.conn = conn
		m.state = StateConnected
		logrus.Info("Realtime connection established")
	}()
}

func (m *Manager) dial(ctx context.Context) (Conn, error) {
	var creds Credentials
	if m.auth != nil {
		c, err := m.auth.Authorize(ctx)
		if err != nil {
			return nil, err
		}
		creds = c
	}
	return m.transport.Dial(ctx, creds)
}

func (m *Manager) subscribe(ctx context.Context, name string) (*channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return nil, ErrNotConnected
	}
	if ch, ok := m.channels[name]; ok {
		ch.holders++
		return ch, nil
	}

	sub, err := m.conn.Subscribe(ctx, name)
	if err != nil {
		return nil, err
	}
	ch := newChannel(name, sub)
	ch.holders = 1
	m.channels[name] = ch
	logrus.WithField("channel", name).Debug("Subscribed to realtime channel")
	return ch, nil
}

// dropChannel unsubscribes name once its last holder leaves.
func (m *Manager) dropChannel(ch *channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch.holders--
	if ch.holders > 0 {
		return
	}
	if m.channels[ch.name] == ch {
		delete(m.channels, ch.name)
	}
	ch.close()
	logrus.WithField("channel", ch.name).Debug("Unsubscribed from realtime channel")
}

func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs--
	if m.refs > 0 {
		return
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for name, ch := range m.channels {
		ch.close()
		delete(m.channels, name)
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		logrus.Info("Realtime connection closed, no subscribers left")
	}
	m.attempt = nil
	m.state = StateIdle
}
