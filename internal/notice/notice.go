// Package notice carries user-facing notifications from the stores to the
// UI-facing API.
package notice

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	Info     Level = "info"
	Success  Level = "success"
	Warning  Level = "warning"
	Error    Level = "error"
	Critical Level = "critical"
)

type Notice struct {
	Level   Level     `json:"level"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Notifier interface {
	Notify(n Notice)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice) {}

const DefaultFeedSize = 50

// Feed keeps the most recent notices until they are drained.
type Feed struct {
	mu    sync.Mutex
	limit int
	items []Notice
	now   func() time.Time
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Notify(n Notice) {
	if n.Time.IsZero() {
		n.Time = f.now()
	}

	entry := logrus.WithFields(logrus.Fields{"action": n.Action, "level": n.Level})
	switch n.Level {
	case Error, Critical:
		entry.Error(n.Message)
	case Warning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notice(nil), f.items[over:]...)
	}
}

// Drain returns pending notices oldest first and forgets them.
func (f *Feed) Drain() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Recorder collects notices for tests and for callers that inspect them.
type Recorder struct {
	mu      sync.Mutex
	Notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, n)
}

func (r *Recorder) Snapshot() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.Notices...)
}

// Count returns how many recorded notices have level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.Notices {
		if x.Level == level {
			n++
		}
	}
	return n
}
