package handler

import (
	"encoding/json"
	"sort"
	"time"

	"bitmax/internal/engine"
	"bitmax/internal/models"
)

type strategyDTO struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Owner     string          `json:"owner"`
	BotType   string          `json:"bot_type"`
	Symbol    string          `json:"symbol"`
	BaseAsset string          `json:"base_asset"`
	Params    json.RawMessage `json:"params"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toStrategyDTO(s models.Strategy) strategyDTO {
	params := json.RawMessage(s.Params)
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return strategyDTO{
		ID:        s.ID,
		Name:      s.Name,
		Owner:     s.Owner,
		BotType:   s.BotType,
		Symbol:    s.Symbol,
		BaseAsset: s.BaseAsset,
		Params:    params,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type portfolioDTO struct {
	Owner     string             `json:"owner"`
	Holdings  map[string]float64 `json:"holdings"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toPortfolioDTO(p models.Portfolio) portfolioDTO {
	balances := p.Balances()
	holdings := make(map[string]float64, len(balances))
	for asset, amount := range balances {
		holdings[asset] = amount.InexactFloat64()
	}
	return portfolioDTO{Owner: p.Owner, Holdings: holdings, UpdatedAt: p.UpdatedAt}
}

type tradeDTO struct {
	ID         uint64          `json:"id"`
	Owner      string          `json:"owner"`
	StrategyID uint64          `json:"strategy_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Price      float64         `json:"price"`
	Qty        float64         `json:"qty"`
	Notional   float64         `json:"notional"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toTradeDTO(t models.Trade) tradeDTO {
	return tradeDTO{
		ID:         t.ID,
		Owner:      t.Owner,
		StrategyID: t.StrategyID,
		Symbol:     t.Symbol,
		Side:       t.Side,
		Price:      t.Price.InexactFloat64(),
		Qty:        t.Qty.InexactFloat64(),
		Notional:   t.Notional.InexactFloat64(),
		Meta:       json.RawMessage(t.Meta),
		CreatedAt:  t.CreatedAt,
	}
}

func toTradeDTOs(items []models.Trade) []tradeDTO {
	out := make([]tradeDTO, 0, len(items))
	for _, t := range items {
		out = append(out, toTradeDTO(t))
	}
	return out
}

type intentFailureDTO struct {
	Side   string  `json:"side"`
	Price  float64 `json:"price"`
	Qty    float64 `json:"qty"`
	Reason string  `json:"reason"`
}

type strategyResultDTO struct {
	StrategyID uint64             `json:"strategy_id"`
	Owner      string             `json:"owner"`
	Variant    string             `json:"bot_type"`
	Symbol     string             `json:"symbol"`
	Success    bool               `json:"success"`
	Status     string             `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	Price      float64            `json:"price,omitempty"`
	Intents    int                `json:"intents"`
	Trades     []tradeDTO         `json:"trades"`
	Failures   []intentFailureDTO `json:"failures,omitempty"`
}

type tickDTO struct {
	TickID     string              `json:"tick_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Trades     int                 `json:"trades"`
	Counts     map[string]int      `json:"counts"`
	Strategies []strategyResultDTO `json:"strategies"`
}

func toTickDTO(r *engine.TickResult) tickDTO {
	out := tickDTO{
		TickID:     r.TickID.String(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Trades:     r.TradeCount(),
		Counts:     r.CountByStatus(),
		Strategies: make([]strategyResultDTO, 0, len(r.Strategies)),
	}
	for _, s := range r.Strategies {
		item := strategyResultDTO{
			StrategyID: s.StrategyID,
			Owner:      s.Owner,
			Variant:    s.Variant,
			Symbol:     s.Symbol,
			Success:    s.Status == engine.StatusOK || s.Status == engine.StatusNoTrades,
			Status:     s.Status,
			Reason:     s.Reason,
			Price:      s.Price.InexactFloat64(),
			Intents:    s.Intents,
			Trades:     toTradeDTOs(s.Trades),
		}
		for _, f := range s.Failures {
			item.Failures = append(item.Failures, intentFailureDTO{
				Side:   f.Side,
				Price:  f.Price.InexactFloat64(),
				Qty:    f.Qty.InexactFloat64(),
				Reason: f.Reason,
			})
		}
		out.Strategies = append(out.Strategies, item)
	}
	sort.SliceStable(out.Strategies, func(i, j int) bool {
		return out.Strategies[i].StrategyID < out.Strategies[j].StrategyID
	})
	return out
}
