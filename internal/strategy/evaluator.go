package strategy

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidParameters = errors.New("invalid strategy parameters")
	ErrUnknownVariant    = errors.New("unknown strategy variant")
)

const (
	VariantGrid      = "grid"
	VariantDCA       = "dca"
	VariantRebalance = "rebalance"
	VariantArbitrage = "arbitrage"
)

// Intent is a proposed ledger mutation. Evaluators never apply them.
type Intent struct {
	Side  string
	Price decimal.Decimal
	Qty   decimal.Decimal
	Meta  map[string]any
}

// PriceLookup resolves the current price of an asset other than the traded symbol.
type PriceLookup func(ctx context.Context, symbol string) (decimal.Decimal, error)

type Input struct {
	Symbol    string
	BaseAsset string
	Price     decimal.Decimal
	Params    json.RawMessage

	// Holdings is nil when the owner has no portfolio yet.
	Holdings map[string]decimal.Decimal
	Prices   PriceLookup
}

type StrategyEvaluator interface {
	Name() string
	DefaultParams() json.RawMessage
	// NeedsPortfolio reports whether Evaluate reads Input.Holdings.
	NeedsPortfolio() bool
	Evaluate(ctx context.Context, in Input) ([]Intent, error)
}
