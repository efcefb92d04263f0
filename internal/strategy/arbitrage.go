package strategy

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

var (
	defaultArbitrageThreshold = decimal.RequireFromString("0.02")
	defaultArbitrageAmount    = decimal.NewFromInt(100)
)

type ArbitrageParams struct {
	ArbitrageThreshold *decimal.Decimal
	ArbitrageAmount    *decimal.Decimal
}

func ParseArbitrageParams(raw json.RawMessage) (ArbitrageParams, error) {
	var out ArbitrageParams
	p, err := parseParams(raw)
	if err != nil {
		return out, err
	}
	if out.ArbitrageThreshold, err = p.number("arbitrage_threshold"); err != nil {
		return out, err
	}
	out.ArbitrageAmount, err = p.number("arbitrage_amount")
	return out, err
}

// ArbitrageStrategy is a simulation. No second venue is queried: the "other"
// quote is the real price shifted up by half the threshold, so with a positive
// threshold the gap never exceeds it and nothing fires. Intents it does emit
// are tagged "simulated": true.
type ArbitrageStrategy struct{}

func (s *ArbitrageStrategy) Name() string { return VariantArbitrage }

func (s *ArbitrageStrategy) NeedsPortfolio() bool { return false }

func (s *ArbitrageStrategy) DefaultParams() json.RawMessage {
	return json.RawMessage(`{"arbitrage_threshold":0.02,"arbitrage_amount":100}`)
}

func (s *ArbitrageStrategy) Evaluate(_ context.Context, in Input) ([]Intent, error) {
	if !in.Price.IsPositive() {
		return nil, nil
	}
	p, err := ParseArbitrageParams(in.Params)
	if err != nil {
		return nil, err
	}
	threshold := decimalOr(p.ArbitrageThreshold, defaultArbitrageThreshold)
	amount := decimalOr(p.ArbitrageAmount, defaultArbitrageAmount)
	if !amount.IsPositive() {
		return nil, invalidf("arbitrage_amount must be positive, got %s", amount)
	}

	other := SimulatedQuote(in.Price, threshold)
	gap := other.Sub(in.Price).Abs().Div(in.Price)
	if !gap.GreaterThan(threshold) {
		return nil, nil
	}
	qty := amount.Div(in.Price)
	return []Intent{
		{
			Side:  models.SideBuy,
			Price: in.Price,
			Qty:   qty,
			Meta: map[string]any{
				"bot":                 VariantArbitrage,
				"type":                "buy",
				"other_price":         other,
				"arbitrage_threshold": threshold,
				"simulated":           true,
			},
		},
		{
			Side:  models.SideSell,
			Price: other,
			Qty:   qty,
			Meta: map[string]any{
				"bot":                 VariantArbitrage,
				"type":                "sell",
				"original_price":      in.Price,
				"arbitrage_threshold": threshold,
				"simulated":           true,
			},
		},
	}, nil
}

// SimulatedQuote is the stand-in second-venue price: price * (1 + threshold/2).
func SimulatedQuote(price, threshold decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(threshold.Div(decimal.NewFromInt(2))))
}
