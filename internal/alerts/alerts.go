// Package alerts tells operators about inconsistencies a shopper cannot fix,
// such as a captured payment with no recorded order.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/storefront/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	KindOrderNotRecorded = "order_not_recorded"
	KindCartDrainFailed  = "cart_drain_failed"
	KindDraftNotCleared  = "draft_not_cleared"
)

type Alert struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Fields  map[string]string `json:"fields,omitempty"`
	Time    time.Time         `json:"time"`
}

func (a Alert) body() string {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Kind: %s\n", a.Kind)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, a.Fields[k])
	}
	fmt.Fprintf(&sb, "Time: %s", a.Time.Format(time.RFC3339))
	return sb.String()
}

type Mailer interface {
	Send(subject, contentType, body string) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.AlertsConfig
}

// NewSMTPMailer reports false when no relay or recipient is configured.
func NewSMTPMailer(cfg config.AlertsConfig) (*SMTPMailer, bool) {
	if cfg.SMTPServer == "" || cfg.To == "" {
		return nil, false
	}
	return &SMTPMailer{cfg: cfg}, true
}

func (m *SMTPMailer) Send(subject, contentType, body string) error {
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: " + contentType + "; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPServer, m.cfg.SMTPPort)
	var auth smtp.Auth
	if !m.cfg.AuthDisabled {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPServer)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, strings.Split(m.cfg.To, ","), []byte(msg))
}

// Log keeps raised alerts until the daily summary drains them.
type Log interface {
	Append(ctx context.Context, a Alert) error
	Drain(ctx context.Context) ([]Alert, error)
}

type RedisLog struct {
	rdb *redis.Client
	key string
}

func NewRedisLog(rdb *redis.Client, key string) *RedisLog {
	return &RedisLog{rdb: rdb, key: key}
}

func (l *RedisLog) Append(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return l.rdb.RPush(ctx, l.key, data).Err()
}

func (l *RedisLog) Drain(ctx context.Context) ([]Alert, error) {
	var entries *redis.StringSliceCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		entries = p.LRange(ctx, l.key, 0, -1)
		p.Del(ctx, l.key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Alert, 0, len(entries.Val()))
	for _, item := range entries.Val() {
		var a Alert
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			logrus.WithError(err).Warn("Skipping unreadable alert log entry")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type MemoryLog struct {
	mu      sync.Mutex
	entries []Alert
}

func (l *MemoryLog) Append(_ context.Context, a Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, a)
	return nil
}

func (l *MemoryLog) Drain(context.Context) ([]Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	return out, nil
}
