package stockfeed_test

import (
	"context"
	"testing"

	"github.com/rogerio-castellano/storefront/internal/realtime"
	"github.com/rogerio-castellano/storefront/internal/realtime/realtimetest"
	"github.com/rogerio-castellano/storefront/internal/stockfeed"
)

func TestFeedRestartsAfterStop(t *testing.T) {
	broker := realtimetest.NewBroker()
	m := realtime.NewManager(broker, nil)
	var got collector

	f := stockfeed.NewFeed(context.Background(), m, fastOptions(), got.add)
	f.Start()
	f.Start()
	eventually(t, f.Ready)
	if broker.Dials() != 1 {
		t.Fatalf("expected one dial, got %d", broker.Dials())
	}

	f.Stop()
	if f.Running() || m.Refs() != 0 {
		t.Fatalf("feed still holds the connection (refs %d)", m.Refs())
	}
	broker.Publish(stockfeed.DefaultChannel, "stock-updated", map[string]int{"producto_id": 1, "stock_actual": 2})

	f.Start()
	defer f.Stop()
	eventually(t, f.Ready)
	broker.Publish(stockfeed.DefaultChannel, "stock-updated", map[string]int{"producto_id": 5, "stock_actual": 1})
	eventually(t, func() bool { return len(got.snapshot()) == 1 })
	if c := got.snapshot()[0]; c.ProductID != 5 {
		t.Errorf("received change published while stopped: %+v", c)
	}
	if broker.Dials() != 2 {
		t.Errorf("expected a fresh dial after restart, got %d", broker.Dials())
	}
}
