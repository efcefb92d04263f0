package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"bitmax/internal/ledger"
	"bitmax/internal/models"
	"bitmax/internal/pricefeed"
	"bitmax/internal/strategy"
)

var ErrTickInProgress = errors.New("tick already in progress")

const defaultPriceTimeout = 10 * time.Second

// Store is the read side the engine needs. repository.Repository satisfies it.
type Store interface {
	ListLiveStrategies(ctx context.Context) ([]models.Strategy, error)
	GetPortfolio(ctx context.Context, owner string) (*models.Portfolio, error)
}

type Ledger interface {
	Apply(ctx context.Context, o ledger.Order) (*models.Trade, error)
}

// TradeNotifier receives every trade the engine executes.
type TradeNotifier interface {
	Publish(trade models.Trade)
}

// Engine runs one evaluation pass over all live strategies per tick.
type Engine struct {
	Repo     Store
	Prices   pricefeed.Source
	Ledger   Ledger
	Registry *strategy.Registry
	Logger   *zap.Logger
	Notifier TradeNotifier
	Tracer   trace.Tracer

	// PriceTimeout bounds each price lookup; a timeout skips the strategy.
	PriceTimeout time.Duration
	// Workers bounds how many strategies are evaluated at once. Ledger writes
	// for one owner stay serialized by the executor.
	Workers int

	running atomic.Bool
}

// Tick is the scheduler entry point. It never returns or panics on failure.
func (e *Engine) Tick(ctx context.Context) {
	if e == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger().Error("tick panicked", zap.Any("panic", r))
		}
	}()
	if _, err := e.RunTick(ctx); err != nil {
		if errors.Is(err, ErrTickInProgress) {
			e.logger().Info("tick skipped, previous tick still running")
			return
		}
		e.logger().Error("tick failed", zap.Error(err))
	}
}

func (e *Engine) Running() bool {
	return e != nil && e.running.Load()
}

// RunTick evaluates every live strategy once. Only loading the strategy list
// can fail the tick as a whole; per-strategy failures land in the result.
func (e *Engine) RunTick(ctx context.Context) (*TickResult, error) {
	if e == nil || e.Repo == nil || e.Registry == nil || e.Ledger == nil || e.Prices == nil {
		return nil, errors.New("engine not configured")
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrTickInProgress
	}
	defer e.running.Store(false)

	res := &TickResult{TickID: uuid.New(), StartedAt: time.Now().UTC()}
	ctx, span := e.tracer().Start(ctx, "engine.tick",
		trace.WithAttributes(attribute.String("tick.id", res.TickID.String())))
	defer span.End()
	log := e.logger().With(zap.String("tick_id", res.TickID.String()))

	items, err := e.Repo.ListLiveStrategies(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list live strategies")
		res.FinishedAt = time.Now().UTC()
		return res, fmt.Errorf("list live strategies: %w", err)
	}

	results := make([]StrategyResult, len(items))
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers)
	for i := range items {
		i := i
		p.Go(func() {
			results[i] = e.runStrategy(ctx, log, items[i])
		})
	}
	p.Wait()

	res.Strategies = results
	res.FinishedAt = time.Now().UTC()
	counts := res.CountByStatus()
	span.SetAttributes(
		attribute.Int("tick.strategies", len(items)),
		attribute.Int("tick.trades", res.TradeCount()),
	)
	log.Info("tick finished",
		zap.Int("strategies", len(items)),
		zap.Int("trades", res.TradeCount()),
		zap.Int("ok", counts[StatusOK]),
		zap.Int("no_trades", counts[StatusNoTrades]),
		zap.Int("skipped", counts[StatusSkipped]),
		zap.Int("partial", counts[StatusPartial]),
		zap.Int("failed", counts[StatusFailed]),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

func (e *Engine) runStrategy(ctx context.Context, tickLog *zap.Logger, s models.Strategy) (out StrategyResult) {
	out = StrategyResult{
		StrategyID: s.ID,
		Owner:      s.Owner,
		Variant:    s.BotType,
		Symbol:     s.Symbol,
	}
	log := tickLog.With(
		zap.Uint64("strategy_id", s.ID),
		zap.String("owner", s.Owner),
		zap.String("variant", s.BotType),
		zap.String("symbol", s.Symbol),
	)
	ctx, span := e.tracer().Start(ctx, "engine.strategy", trace.WithAttributes(
		attribute.Int64("strategy.id", int64(s.ID)),
		attribute.String("strategy.variant", s.BotType),
		attribute.String("strategy.symbol", s.Symbol),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Reason = fmt.Sprintf("panic: %v", r)
			span.SetStatus(codes.Error, out.Reason)
			log.Error("strategy panicked", zap.Any("panic", r))
		}
	}()

	ev, err := e.Registry.Get(s.BotType)
	if err != nil {
		log.Warn("strategy skipped", zap.Error(err))
		return skip(out, err.Error())
	}
	params, malformed := e.Registry.Params(ev, s.Params)
	if malformed {
		log.Warn("strategy params malformed, using defaults")
	}

	price, err := e.currentPrice(ctx, s.Symbol)
	if err != nil {
		log.Warn("strategy skipped, price unavailable", zap.Error(err))
		span.RecordError(err)
		return skip(out, err.Error())
	}
	out.Price = price

	baseAsset := strings.TrimSpace(s.BaseAsset)
	if baseAsset == "" {
		baseAsset = ledger.DefaultBaseAsset
	}
	in := strategy.Input{
		Symbol:    s.Symbol,
		BaseAsset: baseAsset,
		Price:     price,
		Params:    params,
		Prices:    e.currentPrice,
	}
	if ev.NeedsPortfolio() {
		p, err := e.Repo.GetPortfolio(ctx, s.Owner)
		if err != nil {
			log.Warn("strategy skipped, portfolio unavailable", zap.Error(err))
			return skip(out, err.Error())
		}
		if p != nil {
			in.Holdings = p.Balances()
		}
	}

	intents, err := ev.Evaluate(ctx, in)
	if err != nil {
		log.Warn("strategy evaluate failed", zap.Error(err))
		span.RecordError(err)
		if errors.Is(err, strategy.ErrInvalidParameters) {
			return skip(out, err.Error())
		}
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out
	}
	out.Intents = len(intents)
	if len(intents) == 0 {
		out.Status = StatusNoTrades
		return out
	}

	for _, it := range intents {
		trade, err := e.Ledger.Apply(ctx, ledger.Order{
			Owner:      s.Owner,
			StrategyID: s.ID,
			Symbol:     s.Symbol,
			Side:       it.Side,
			Price:      it.Price,
			Qty:        it.Qty,
			BaseAsset:  baseAsset,
			Meta:       it.Meta,
		})
		if err != nil {
			reason := err.Error()
			var ib *ledger.InsufficientBalanceError
			if errors.As(err, &ib) {
				reason = ib.Reason()
			}
			out.Failures = append(out.Failures, IntentFailure{
				Side:   it.Side,
				Price:  it.Price,
				Qty:    it.Qty,
				Reason: reason,
			})
			log.Warn("intent rejected",
				zap.String("side", it.Side),
				zap.String("price", it.Price.String()),
				zap.String("qty", it.Qty.String()),
				zap.String("reason", reason),
			)
			continue
		}
		out.Trades = append(out.Trades, *trade)
		if e.Notifier != nil {
			e.Notifier.Publish(*trade)
		}
	}

	switch {
	case len(out.Failures) == 0:
		out.Status = StatusOK
	case len(out.Trades) == 0:
		out.Status = StatusFailed
		out.Reason = out.Failures[0].Reason
	default:
		out.Status = StatusPartial
		out.Reason = out.Failures[0].Reason
	}
	span.SetAttributes(attribute.Int("strategy.trades", len(out.Trades)))
	return out
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

// currentPrice bounds the lookup by PriceTimeout, even for sources that ignore ctx.
func (e *Engine) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	timeout := e.PriceTimeout
	if timeout <= 0 {
		timeout = defaultPriceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan priceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- priceResult{err: fmt.Errorf("%w: %s: panic: %v", pricefeed.ErrPriceUnavailable, symbol, r)}
			}
		}()
		price, err := e.Prices.CurrentPrice(ctx, symbol)
		ch <- priceResult{price: price, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return decimal.Zero, r.err
		}
		if !r.price.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: non-positive price %s for %s", pricefeed.ErrPriceUnavailable, r.price, symbol)
		}
		return r.price, nil
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("%w: %s: %v", pricefeed.ErrPriceUnavailable, symbol, ctx.Err())
	}
}

func skip(out StrategyResult, reason string) StrategyResult {
	out.Status = StatusSkipped
	out.Reason = reason
	return out
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer == nil {
		return noop.NewTracerProvider().Tracer("bitmax/engine")
	}
	return e.Tracer
}
