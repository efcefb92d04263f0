package strategy

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

var defaultDCAAmount = decimal.NewFromInt(100)

type DCAParams struct {
	AmountUSD *decimal.Decimal
}

func ParseDCAParams(raw json.RawMessage) (DCAParams, error) {
	var out DCAParams
	p, err := parseParams(raw)
	if err != nil {
		return out, err
	}
	out.AmountUSD, err = p.number("amount_usd")
	return out, err
}

// DCAStrategy buys a fixed quote amount every tick.
type DCAStrategy struct{}

func (s *DCAStrategy) Name() string { return VariantDCA }

func (s *DCAStrategy) NeedsPortfolio() bool { return false }

func (s *DCAStrategy) DefaultParams() json.RawMessage {
	return json.RawMessage(`{"amount_usd":100}`)
}

func (s *DCAStrategy) Evaluate(_ context.Context, in Input) ([]Intent, error) {
	if !in.Price.IsPositive() {
		return nil, nil
	}
	p, err := ParseDCAParams(in.Params)
	if err != nil {
		return nil, err
	}
	amount := decimalOr(p.AmountUSD, defaultDCAAmount)
	if !amount.IsPositive() {
		return nil, invalidf("amount_usd must be positive, got %s", amount)
	}
	return []Intent{{
		Side:  models.SideBuy,
		Price: in.Price,
		Qty:   amount.Div(in.Price),
		Meta: map[string]any{
			"bot":        VariantDCA,
			"amount_usd": amount,
		},
	}}, nil
}
