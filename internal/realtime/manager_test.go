package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rogerio-castellano/storefront/internal/realtime"
	"github.com/rogerio-castellano/storefront/internal/realtime/realtimetest"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLeasesShareOneConnection(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	a := m.Acquire()
	b := m.Acquire()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("wait a: %v", err)
	}
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("wait b: %v", err)
	}
	if broker.Dials() != 1 {
		t.Errorf("expected 1 dial, got %d", broker.Dials())
	}
	if m.State() != realtime.StateConnected {
		t.Errorf("expected connected, got %s", m.State())
	}

	a.Release()
	if broker.OpenConns() != 1 {
		t.Errorf("connection closed while a lease is still held")
	}
	b.Release()
	if broker.OpenConns() != 0 {
		t.Errorf("connection still open after last release")
	}
	if m.State() != realtime.StateIdle {
		t.Errorf("expected idle, got %s", m.State())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)

	a := m.Acquire()
	b := m.Acquire()
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.Release()
	a.Release()
	if m.Refs() != 1 {
		t.Errorf("expected 1 ref, got %d", m.Refs())
	}
	b.Release()
}

func TestReleaseDropsOnlyOwnBindings(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	a := m.Acquire()
	b := m.Acquire()
	if err := a.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	ha, err := a.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	hb, err := b.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	if broker.Subscribers("stock-updates") != 1 {
		t.Errorf("expected one shared subscription, got %d", broker.Subscribers("stock-updates"))
	}

	gotA := make(chan string, 4)
	gotB := make(chan string, 4)
	ha.Bind("stock-updated", func(data json.RawMessage) { gotA <- string(data) })
	hb.Bind("stock-updated", func(data json.RawMessage) { gotB <- string(data) })

	a.Release()

	if err := broker.Publish("stock-updates", "stock-updated", map[string]int{"producto_id": 1}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-gotB:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber did not receive the event")
	}
	select {
	case msg := <-gotA:
		t.Errorf("released lease still received %s", msg)
	default:
	}
	if broker.Subscribers("stock-updates") != 1 {
		t.Errorf("channel unsubscribed while another handle holds it")
	}

	b.Release()
	if broker.Subscribers("stock-updates") != 0 {
		t.Errorf("channel still subscribed after the last holder left")
	}
}

func TestBindAfterUnsubscribeIsIgnored(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	a := m.Acquire()
	b := m.Acquire()
	defer b.Release()
	if err := a.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	ha, err := a.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatal(err)
	}

	gotA := make(chan string, 4)
	gotB := make(chan string, 4)

	// The other holder keeps the channel open while a late Bind arrives.
	a.Release()
	ha.Bind("stock-updated", func(json.RawMessage) { gotA <- "a" })
	hb.Bind("stock-updated", func(json.RawMessage) { gotB <- "b" })

	if err := broker.Publish("stock-updates", "stock-updated", map[string]int{"producto_id": 1}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-gotB:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber did not receive the event")
	}
	select {
	case <-gotA:
		t.Error("handler bound after unsubscribe received the event")
	default:
	}
}

func TestUnbindByEvent(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	l := m.Acquire()
	defer l.Release()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	h, err := l.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan string, 4)
	h.Bind("a", func(json.RawMessage) { got <- "a" })
	h.Bind("b", func(json.RawMessage) { got <- "b" })
	h.Unbind("a")

	broker.Publish("stock-updates", "a", nil)
	broker.Publish("stock-updates", "b", nil)

	select {
	case ev := <-got:
		if ev != "b" {
			t.Errorf("expected only b, got %s", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	l := m.Acquire()
	defer l.Release()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	h, err := l.Subscribe(ctx, "stock-updates")
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan struct{}, 1)
	h.Bind("ok", func(json.RawMessage) { got <- struct{}{} })

	broker.PublishRaw("stock-updates", []byte("not json"))
	broker.Publish("stock-updates", "ok", map[string]int{})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("valid message after a malformed one was not delivered")
	}
}

func TestDialFailureAndRetry(t *testing.T) {
	broker := realtimetest.NewBroker()
	broker.FailDials(1)
	m := realtime.NewManager(broker, nil)
	ctx := context.Background()

	l := m.Acquire()
	if err := l.Wait(ctx); !errors.Is(err, realtimetest.ErrDialRefused) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if m.State() != realtime.StateFailed {
		t.Errorf("expected failed, got %s", m.State())
	}
	if _, err := l.Subscribe(ctx, "x"); !errors.Is(err, realtime.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	l.Release()

	again := m.Acquire()
	defer again.Release()
	if err := again.Wait(ctx); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if broker.Dials() != 2 {
		t.Errorf("expected 2 dials, got %d", broker.Dials())
	}
}

func TestReleaseWhileConnecting(t *testing.T) {
	broker := realtimetest.NewBroker()
	release := broker.Hold()
	m := realtime.NewManager(broker, nil)

	l := m.Acquire()
	l.Release()
	release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("expected superseded attempt to report an error")
	}
	waitFor(t, func() bool { return broker.OpenConns() == 0 })
	if m.State() != realtime.StateIdle {
		t.Errorf("expected idle, got %s", m.State())
	}
}

func TestWaitHonoursContext(t *testing.T) {
	broker := realtimetest.NewBroker()
	release := broker.Hold()
	defer release()
	m := realtime.NewManager(broker, nil)

	l := m.Acquire()
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAuthorizerCredentialsAreUsed(t *testing.T) {
	broker := realtimetest.NewBroker()
	auth := realtime.AuthorizerFunc(func(context.Context) (realtime.Credentials, error) {
		return realtime.Credentials{Username: "storefront", Password: "issued"}, nil
	})
	m := realtime.NewManager(broker, auth)

	l := m.Acquire()
	defer l.Release()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := broker.LastCredentials(); got.Password != "issued" {
		t.Errorf("expected issued credential, got %+v", got)
	}
}

func TestAuthorizerFailureFailsTheAttempt(t *testing.T) {
	broker := realtimetest.NewBroker()
	boom := errors.New("auth endpoint down")
	m := realtime.NewManager(broker, realtime.AuthorizerFunc(func(context.Context) (realtime.Credentials, error) {
		return realtime.Credentials{}, boom
	}))

	l := m.Acquire()
	defer l.Release()
	if err := l.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected auth error, got %v", err)
	}
	if broker.Dials() != 0 {
		t.Errorf("dialed without credentials")
	}
}
