package pricefeed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable marks a transient failure to obtain a price.
var ErrPriceUnavailable = errors.New("price unavailable")

type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// Source is the price capability consumed by the engine.
type Source interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	HistoricalPrices(ctx context.Context, symbol string, hours int) ([]PricePoint, error)
}
