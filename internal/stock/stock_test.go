package stock

import (
	"context"
	"errors"
	"testing"
)

type fakeSource struct {
	calls int
	stock map[int]int
	err   error
}

func (f *fakeSource) StockVisible(_ context.Context, id int) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	s, ok := f.stock[id]
	if !ok {
		return 0, errors.New("not found")
	}
	return s, nil
}

func TestGetStockVisible(t *testing.T) {
	src := &fakeSource{stock: map[int]int{3: 0, 4: 12}}
	f := NewFetcher(src)
	ctx := context.Background()

	if s, ok := f.GetStockVisible(ctx, "4"); !ok || s != 12 {
		t.Errorf("expected (12, true), got (%d, %v)", s, ok)
	}
	if s, ok := f.GetStockVisible(ctx, " 3 "); !ok || s != 0 {
		t.Errorf("expected a known zero, got (%d, %v)", s, ok)
	}
	if _, ok := f.GetStockVisible(ctx, "99"); ok {
		t.Error("expected unknown for a failed lookup")
	}
}

func TestGetStockVisible_NonNumericSkipsNetwork(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src)

	for _, id := range []string{"abc", "", "4x", "-1", "0", "1.5"} {
		if _, ok := f.GetStockVisible(context.Background(), id); ok {
			t.Errorf("id %q: expected unknown", id)
		}
	}
	if src.calls != 0 {
		t.Errorf("expected no backend calls, got %d", src.calls)
	}
}

func TestGetStockVisible_BackendDown(t *testing.T) {
	f := NewFetcher(&fakeSource{err: errors.New("connection refused")})
	if s, ok := f.GetStockVisible(context.Background(), "1"); ok || s != 0 {
		t.Errorf("expected (0, false), got (%d, %v)", s, ok)
	}
}
