package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

const (
	StatusOK       = "ok"
	StatusNoTrades = "no_trades"
	StatusSkipped  = "skipped"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// IntentFailure is an intent the ledger refused.
type IntentFailure struct {
	Side   string
	Price  decimal.Decimal
	Qty    decimal.Decimal
	Reason string
}

// StrategyResult is the outcome of one strategy within a tick.
type StrategyResult struct {
	StrategyID uint64
	Owner      string
	Variant    string
	Symbol     string

	Status   string
	Reason   string
	Price    decimal.Decimal
	Intents  int
	Trades   []models.Trade
	Failures []IntentFailure
}

type TickResult struct {
	TickID     uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Strategies []StrategyResult
}

func (r *TickResult) TradeCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, s := range r.Strategies {
		n += len(s.Trades)
	}
	return n
}

// CountByStatus tallies strategies per status.
func (r *TickResult) CountByStatus() map[string]int {
	out := map[string]int{}
	if r == nil {
		return out
	}
	for _, s := range r.Strategies {
		out[s.Status]++
	}
	return out
}
