package alerts

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Alerter logs, records and mails alerts. A nil mailer keeps alerts in the
// log only.
type Alerter struct {
	mailer Mailer
	log    Log
	now    func() time.Time

	wg sync.WaitGroup
}

func New(mailer Mailer, log Log) *Alerter {
	if log == nil {
		log = &MemoryLog{}
	}
	return &Alerter{mailer: mailer, log: log, now: time.Now}
}

// Raise records a and mails it in the background.
func (a *Alerter) Raise(ctx context.Context, alert Alert) {
	if alert.Time.IsZero() {
		alert.Time = a.now()
	}

	fields := logrus.Fields{"kind": alert.Kind}
	for k, v := range alert.Fields {
		fields[k] = v
	}
	logrus.WithFields(fields).Error("🚨 " + alert.Subject)

	if err := a.log.Append(ctx, alert); err != nil {
		logrus.WithError(err).Warn("Failed to record alert")
	}

	if a.mailer == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.mailer.Send("🚨 "+alert.Subject, "text/plain", alert.body()); err != nil {
			logrus.WithError(err).Error("Failed to send alert email")
		}
	}()
}

// Wait blocks until every alert email in flight has been handed off.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

// SendDailySummary mails every alert recorded since the last summary and
// clears the log. Nothing is sent when the log is empty.
func (a *Alerter) SendDailySummary(ctx context.Context) error {
	entries, err := a.log.Drain(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	body := summaryHTML(entries)
	if a.mailer == nil {
		logrus.WithField("alerts", len(entries)).Info("Daily alert summary (no mailer configured)")
		return nil
	}
	if err := a.mailer.Send("📊 Daily Alert Report", "text/html", body); err != nil {
		return fmt.Errorf("failed to send daily summary: %w", err)
	}
	logrus.WithField("alerts", len(entries)).Info("📬 Daily alert summary sent via SMTP")
	return nil
}

func summaryHTML(entries []Alert) string {
	kinds := map[string]int{}
	for _, e := range entries {
		kinds[e.Kind]++
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("<h2>📊 Daily Alert Summary</h2>")
	fmt.Fprintf(&sb, "<p>Total alerts: <strong>%d</strong></p>", len(entries))

	sb.WriteString("<h3>By kind</h3><ul>")
	for _, k := range names {
		fmt.Fprintf(&sb, "<li><code>%s</code>: %d</li>", html.EscapeString(k), kinds[k])
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h3>📋 Full log</h3><ul>")
	for _, e := range entries {
		fmt.Fprintf(&sb, "<li><b>%s</b> (%s) at %s<pre>%s</pre></li>",
			html.EscapeString(e.Subject), html.EscapeString(e.Kind), e.Time.Format(time.RFC822), html.EscapeString(e.body()))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

// StartDailySummary sends the summary every day at 23:59 until ctx is done.
func (a *Alerter) StartDailySummary(ctx context.Context) {
	for {
		now := a.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())
		if !now.Before(next) {
			next = next.AddDate(0, 0, 1)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := a.SendDailySummary(ctx); err != nil {
			logrus.WithError(err).Error("❌ Daily alert summary failed")
		}
	}
}
