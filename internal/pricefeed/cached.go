package pricefeed

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bitmax/internal/cache"
)

// CachedSource serves current prices from Store for TTL before asking Source.
// Cache failures degrade to a direct lookup.
type CachedSource struct {
	Source Source
	Store  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (s *CachedSource) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.Store == nil || s.TTL <= 0 {
		return s.Source.CurrentPrice(ctx, symbol)
	}
	key := "price:" + strings.ToLower(strings.TrimSpace(symbol))
	raw, found, err := s.Store.Get(ctx, key)
	if err != nil && s.Logger != nil {
		s.Logger.Warn("price cache get failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		if price, perr := decimal.NewFromString(string(raw)); perr == nil && price.IsPositive() {
			return price, nil
		}
	}
	price, err := s.Source.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.Store.Set(ctx, key, []byte(price.String()), s.TTL); err != nil && s.Logger != nil {
		s.Logger.Warn("price cache set failed", zap.String("key", key), zap.Error(err))
	}
	return price, nil
}

func (s *CachedSource) HistoricalPrices(ctx context.Context, symbol string, hours int) ([]PricePoint, error) {
	return s.Source.HistoricalPrices(ctx, symbol, hours)
}
