package ledger

import (
	"context"
	"runtime"
	"sync"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
	"bitmax/internal/repository"
)

// memLedger is an in-memory store with commit-on-success transactions.
// It takes no lock across a transaction, so any serialization comes from the executor.
type memLedger struct {
	mu         sync.Mutex
	portfolios map[string]models.Portfolio
	trades     []models.Trade
	nextID     uint64
	saves      int

	// onLock runs after a portfolio is read inside a transaction.
	onLock func()
}

func newMemLedger(seed map[string]map[string]decimal.Decimal) *memLedger {
	m := &memLedger{portfolios: map[string]models.Portfolio{}}
	for owner, balances := range seed {
		p := models.Portfolio{Owner: owner}
		_ = p.SetBalances(balances)
		m.portfolios[owner] = p
	}
	return m
}

func (m *memLedger) InLedgerTx(ctx context.Context, fn func(tx repository.LedgerStore) error) error {
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range tx.saved {
		m.portfolios[p.Owner] = p
		m.saves++
	}
	for _, t := range tx.trades {
		m.trades = append(m.trades, t)
	}
	return nil
}

func (m *memLedger) portfolio(owner string) models.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolios[owner]
}

type memTx struct {
	m      *memLedger
	saved  []models.Portfolio
	trades []models.Trade
}

func (t *memTx) LockPortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	t.m.mu.Lock()
	p, ok := t.m.portfolios[owner]
	if !ok {
		p = models.Portfolio{Owner: owner}
		_ = p.SetBalances(map[string]decimal.Decimal{"USDC": decimal.NewFromInt(10000)})
		t.m.portfolios[owner] = p
	}
	hook := t.m.onLock
	t.m.mu.Unlock()
	if hook != nil {
		hook()
	}
	// Widen the read-modify-write window.
	runtime.Gosched()
	cp := p
	cp.Holdings = append([]byte(nil), p.Holdings...)
	return &cp, nil
}

func (t *memTx) SavePortfolio(ctx context.Context, item *models.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.saved = append(t.saved, *item)
	return nil
}

func (t *memTx) InsertTrade(ctx context.Context, item *models.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.m.mu.Lock()
	t.m.nextID++
	item.ID = t.m.nextID
	t.m.mu.Unlock()
	t.trades = append(t.trades, *item)
	return nil
}
