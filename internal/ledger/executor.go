package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bitmax/internal/models"
	"bitmax/internal/repository"
)

const DefaultBaseAsset = "USDC"

// Order is one intent bound to an owner and strategy.
type Order struct {
	Owner      string
	StrategyID uint64
	Symbol     string
	Side       string
	Price      decimal.Decimal
	Qty        decimal.Decimal
	BaseAsset  string
	Meta       map[string]any
}

// TxRunner opens a ledger transaction. repository.Repository satisfies it.
type TxRunner interface {
	InLedgerTx(ctx context.Context, fn func(tx repository.LedgerStore) error) error
}

// Executor is the only writer of portfolio balances. Applications for one
// owner are serialized in-process and by a row lock in the store.
type Executor struct {
	Store  TxRunner
	Logger *zap.Logger

	locks ownerLocks
}

func NewExecutor(store TxRunner, logger *zap.Logger) *Executor {
	return &Executor{Store: store, Logger: logger}
}

// Apply checks the owner's balance, moves funds and records the trade.
// Once the owner lock is held the mutation ignores ctx cancellation: it
// either commits fully or not at all.
func (e *Executor) Apply(ctx context.Context, o Order) (*models.Trade, error) {
	if e == nil || e.Store == nil {
		return nil, errors.New("ledger executor not configured")
	}
	o, err := normalizeOrder(o)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(o.Meta)
	if err != nil {
		return nil, fmt.Errorf("%w: meta: %v", ErrInvalidOrder, err)
	}

	unlock, err := e.locks.acquire(ctx, o.Owner)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txCtx := context.WithoutCancel(ctx)
	var trade *models.Trade
	err = e.Store.InLedgerTx(txCtx, func(tx repository.LedgerStore) error {
		p, err := tx.LockPortfolio(txCtx, o.Owner)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("portfolio for %q not found", o.Owner)
		}
		balances := p.Balances()
		if err := move(balances, o); err != nil {
			return err
		}
		if err := p.SetBalances(balances); err != nil {
			return err
		}
		if err := tx.SavePortfolio(txCtx, p); err != nil {
			return err
		}
		trade = &models.Trade{
			Owner:      o.Owner,
			StrategyID: o.StrategyID,
			Symbol:     o.Symbol,
			Side:       o.Side,
			Price:      o.Price,
			Qty:        o.Qty,
			Notional:   o.Price.Mul(o.Qty),
			Meta:       datatypes.JSON(meta),
			CreatedAt:  time.Now().UTC(),
		}
		return tx.InsertTrade(txCtx, trade)
	})
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.Info("trade applied",
			zap.String("owner", trade.Owner),
			zap.Uint64("strategy_id", trade.StrategyID),
			zap.Uint64("trade_id", trade.ID),
			zap.String("symbol", trade.Symbol),
			zap.String("side", trade.Side),
			zap.String("price", trade.Price.String()),
			zap.String("qty", trade.Qty.String()),
		)
	}
	return trade, nil
}

// SetHoldings replaces an owner's balances wholesale under the same owner
// lock as Apply. Negative balances are rejected.
func (e *Executor) SetHoldings(ctx context.Context, owner string, balances map[string]decimal.Decimal) (*models.Portfolio, error) {
	if e == nil || e.Store == nil {
		return nil, errors.New("ledger executor not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidHoldings)
	}
	clean := make(map[string]decimal.Decimal, len(balances))
	for asset, amount := range balances {
		asset = strings.TrimSpace(asset)
		if asset == "" {
			return nil, fmt.Errorf("%w: empty asset", ErrInvalidHoldings)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s balance %s is negative", ErrInvalidHoldings, asset, amount)
		}
		clean[asset] = amount
	}

	unlock, err := e.locks.acquire(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txCtx := context.WithoutCancel(ctx)
	var out *models.Portfolio
	err = e.Store.InLedgerTx(txCtx, func(tx repository.LedgerStore) error {
		p, err := tx.LockPortfolio(txCtx, owner)
		if err != nil {
			return err
		}
		if p == nil {
			p = &models.Portfolio{Owner: owner}
		}
		if err := p.SetBalances(clean); err != nil {
			return err
		}
		if err := tx.SavePortfolio(txCtx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.Info("holdings replaced", zap.String("owner", owner), zap.Int("assets", len(clean)))
	}
	return out, nil
}

// move applies o to balances in place, or returns an error leaving them untouched.
func move(balances map[string]decimal.Decimal, o Order) error {
	notional := o.Price.Mul(o.Qty)
	switch o.Side {
	case models.SideBuy:
		have := balances[o.BaseAsset]
		if have.LessThan(notional) {
			return &InsufficientBalanceError{Asset: o.BaseAsset, Have: have, Need: notional}
		}
		balances[o.BaseAsset] = have.Sub(notional)
		balances[o.Symbol] = balances[o.Symbol].Add(o.Qty)
	case models.SideSell:
		have := balances[o.Symbol]
		if have.LessThan(o.Qty) {
			return &InsufficientBalanceError{Asset: o.Symbol, Have: have, Need: o.Qty}
		}
		balances[o.Symbol] = have.Sub(o.Qty)
		balances[o.BaseAsset] = balances[o.BaseAsset].Add(notional)
	}
	return nil
}

func normalizeOrder(o Order) (Order, error) {
	o.Owner = strings.TrimSpace(o.Owner)
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	o.Side = strings.ToLower(strings.TrimSpace(o.Side))
	o.BaseAsset = strings.TrimSpace(o.BaseAsset)
	if o.BaseAsset == "" {
		o.BaseAsset = DefaultBaseAsset
	}
	switch {
	case o.Owner == "":
		return o, fmt.Errorf("%w: owner is required", ErrInvalidOrder)
	case o.Symbol == "":
		return o, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case o.Symbol == o.BaseAsset:
		return o, fmt.Errorf("%w: symbol %s equals base asset", ErrInvalidOrder, o.Symbol)
	case o.Side != models.SideBuy && o.Side != models.SideSell:
		return o, fmt.Errorf("%w: side %q", ErrInvalidOrder, o.Side)
	case !o.Price.IsPositive():
		return o, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidOrder, o.Price)
	case !o.Qty.IsPositive():
		return o, fmt.Errorf("%w: qty must be positive, got %s", ErrInvalidOrder, o.Qty)
	}
	return o, nil
}
