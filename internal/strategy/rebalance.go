package strategy

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

var (
	defaultTargetAllocation   = decimal.RequireFromString("0.5")
	defaultRebalanceThreshold = decimal.RequireFromString("0.05")
)

type RebalanceParams struct {
	TargetAllocation   *decimal.Decimal
	RebalanceThreshold *decimal.Decimal
}

func ParseRebalanceParams(raw json.RawMessage) (RebalanceParams, error) {
	var out RebalanceParams
	p, err := parseParams(raw)
	if err != nil {
		return out, err
	}
	if out.TargetAllocation, err = p.number("target_allocation"); err != nil {
		return out, err
	}
	out.RebalanceThreshold, err = p.number("rebalance_threshold")
	return out, err
}

// RebalanceStrategy keeps the traded symbol at a target share of portfolio value.
//
// Assets whose price cannot be looked up are left out of the total rather than
// valued at zero, which shifts the allocation baseline while a feed is down.
type RebalanceStrategy struct{}

func (s *RebalanceStrategy) Name() string { return VariantRebalance }

func (s *RebalanceStrategy) NeedsPortfolio() bool { return true }

func (s *RebalanceStrategy) DefaultParams() json.RawMessage {
	return json.RawMessage(`{"target_allocation":0.5,"rebalance_threshold":0.05}`)
}

func (s *RebalanceStrategy) Evaluate(ctx context.Context, in Input) ([]Intent, error) {
	if in.Holdings == nil || !in.Price.IsPositive() {
		return nil, nil
	}
	p, err := ParseRebalanceParams(in.Params)
	if err != nil {
		return nil, err
	}
	target := decimalOr(p.TargetAllocation, defaultTargetAllocation)
	threshold := decimalOr(p.RebalanceThreshold, defaultRebalanceThreshold)
	if target.IsNegative() || target.GreaterThan(decimal.NewFromInt(1)) {
		return nil, invalidf("target_allocation must be within [0,1], got %s", target)
	}
	if threshold.IsNegative() {
		return nil, invalidf("rebalance_threshold must not be negative, got %s", threshold)
	}

	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	total, unpriced := portfolioValue(ctx, in, symbol)
	if !total.IsPositive() {
		return nil, nil
	}
	current := in.Holdings[symbol].Mul(in.Price)
	allocation := current.Div(total)
	if allocation.Sub(target).Abs().LessThanOrEqual(threshold) {
		return nil, nil
	}
	diff := total.Mul(target).Sub(current)
	side := models.SideBuy
	if diff.IsNegative() {
		side = models.SideSell
	}
	meta := map[string]any{
		"bot":                 VariantRebalance,
		"target_allocation":   target,
		"rebalance_threshold": threshold,
		"current_allocation":  allocation,
		"portfolio_value":     total,
	}
	if len(unpriced) > 0 {
		meta["unpriced_assets"] = unpriced
	}
	return []Intent{{
		Side:  side,
		Price: in.Price,
		Qty:   diff.Abs().Div(in.Price),
		Meta:  meta,
	}}, nil
}

// portfolioValue sums holdings in base-asset terms. The traded symbol uses the
// tick price; other assets go through Input.Prices.
func portfolioValue(ctx context.Context, in Input, symbol string) (decimal.Decimal, []string) {
	assets := make([]string, 0, len(in.Holdings))
	for asset := range in.Holdings {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	total := decimal.Zero
	var unpriced []string
	for _, asset := range assets {
		amount := in.Holdings[asset]
		switch {
		case asset == in.BaseAsset:
			total = total.Add(amount)
		case asset == symbol:
			total = total.Add(amount.Mul(in.Price))
		case amount.IsZero():
		default:
			if in.Prices == nil {
				unpriced = append(unpriced, asset)
				continue
			}
			price, err := in.Prices(ctx, strings.ToLower(asset))
			if err != nil || !price.IsPositive() {
				unpriced = append(unpriced, asset)
				continue
			}
			total = total.Add(amount.Mul(price))
		}
	}
	return total, unpriced
}
