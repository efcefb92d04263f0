package strategy

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

var (
	gridBandPct          = decimal.RequireFromString("0.1")
	defaultGridCount     = 10
	defaultGridOrderSize = decimal.NewFromInt(100)
)

// GridParams are the grid knobs; nil fields take their defaults.
// Lower and Upper default to 10% below and above the current price.
type GridParams struct {
	Lower     *decimal.Decimal
	Upper     *decimal.Decimal
	GridCount *int
	OrderSize *decimal.Decimal
}

func ParseGridParams(raw json.RawMessage) (GridParams, error) {
	var out GridParams
	p, err := parseParams(raw)
	if err != nil {
		return out, err
	}
	if out.Lower, err = p.number("lower"); err != nil {
		return out, err
	}
	if out.Upper, err = p.number("upper"); err != nil {
		return out, err
	}
	if out.GridCount, err = p.integer("grid_count"); err != nil {
		return out, err
	}
	if out.OrderSize, err = p.number("order_size"); err != nil {
		return out, err
	}
	return out, nil
}

// GridStrategy buys in the lower half of a price band and sells in the upper half.
type GridStrategy struct{}

func (s *GridStrategy) Name() string { return VariantGrid }

func (s *GridStrategy) NeedsPortfolio() bool { return false }

func (s *GridStrategy) DefaultParams() json.RawMessage {
	return json.RawMessage(`{"grid_count":10,"order_size":100}`)
}

func (s *GridStrategy) Evaluate(_ context.Context, in Input) ([]Intent, error) {
	if !in.Price.IsPositive() {
		return nil, nil
	}
	p, err := ParseGridParams(in.Params)
	if err != nil {
		return nil, err
	}
	lower := decimalOr(p.Lower, in.Price.Mul(decimal.NewFromInt(1).Sub(gridBandPct)))
	upper := decimalOr(p.Upper, in.Price.Mul(decimal.NewFromInt(1).Add(gridBandPct)))
	count := defaultGridCount
	if p.GridCount != nil {
		count = *p.GridCount
	}
	size := decimalOr(p.OrderSize, defaultGridOrderSize)
	switch {
	case count <= 0:
		return nil, invalidf("grid_count must be positive, got %d", count)
	case !lower.IsPositive():
		return nil, invalidf("lower must be positive, got %s", lower)
	case upper.LessThanOrEqual(lower):
		return nil, invalidf("upper %s must exceed lower %s", upper, lower)
	case !size.IsPositive():
		return nil, invalidf("order_size must be positive, got %s", size)
	}

	levels := gridLevels(lower, upper, count)
	idx := gridInterval(levels, in.Price)
	if idx < 0 {
		return nil, nil
	}
	mid := count / 2
	var side string
	switch {
	case idx < mid:
		side = models.SideBuy
	case idx > mid:
		side = models.SideSell
	default:
		return nil, nil
	}
	level := levels[idx]
	return []Intent{{
		Side:  side,
		Price: level,
		Qty:   size.Div(level),
		Meta: map[string]any{
			"bot":        VariantGrid,
			"grid_level": idx,
			"grid_count": count,
			"lower":      lower,
			"upper":      upper,
			"order_size": size,
		},
	}}, nil
}

// gridLevels returns count+1 boundaries; the last one is exactly upper.
func gridLevels(lower, upper decimal.Decimal, count int) []decimal.Decimal {
	step := upper.Sub(lower).Div(decimal.NewFromInt(int64(count)))
	levels := make([]decimal.Decimal, count+1)
	for i := 0; i < count; i++ {
		levels[i] = lower.Add(step.Mul(decimal.NewFromInt(int64(i))))
	}
	levels[count] = upper
	return levels
}

// gridInterval finds i with levels[i] <= price < levels[i+1]. The last
// interval also includes its upper bound. -1 means outside the band.
func gridInterval(levels []decimal.Decimal, price decimal.Decimal) int {
	last := len(levels) - 2
	for i := 0; i <= last; i++ {
		if price.LessThan(levels[i]) {
			continue
		}
		if price.LessThan(levels[i+1]) || (i == last && price.Equal(levels[i+1])) {
			return i
		}
	}
	return -1
}
