package pricefeed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitmax/internal/cache"
)

type countingSource struct {
	price decimal.Decimal
	calls int
}

func (s *countingSource) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	s.calls++
	return s.price, nil
}

func (s *countingSource) HistoricalPrices(context.Context, string, int) ([]PricePoint, error) {
	return nil, nil
}

func TestCachedSource_ReadThrough(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(42)}
	cs := &CachedSource{Source: src, Store: cache.NewMemoryStore(), TTL: time.Minute}

	for i := 0; i < 3; i++ {
		got, err := cs.CurrentPrice(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if !got.Equal(decimal.NewFromInt(42)) {
			t.Fatalf("price=%s want=42", got)
		}
	}
	if src.calls != 1 {
		t.Fatalf("source calls=%d want=1", src.calls)
	}
}

func TestCachedSource_NoTTLBypassesCache(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(7)}
	cs := &CachedSource{Source: src, Store: cache.NewMemoryStore()}
	_, _ = cs.CurrentPrice(context.Background(), "eth")
	_, _ = cs.CurrentPrice(context.Background(), "eth")
	if src.calls != 2 {
		t.Fatalf("source calls=%d want=2", src.calls)
	}
}
