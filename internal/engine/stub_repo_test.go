package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
	"bitmax/internal/pricefeed"
	"bitmax/internal/repository"
)

// stubRepo is a test-only in-memory store covering the engine and ledger reads/writes.
type stubRepo struct {
	mu         sync.Mutex
	strategies []models.Strategy
	portfolios map[string]models.Portfolio
	trades     []models.Trade
	listErr    error
}

func newStubRepo(strategies ...models.Strategy) *stubRepo {
	return &stubRepo{strategies: strategies, portfolios: map[string]models.Portfolio{}}
}

func (s *stubRepo) setBalances(owner string, balances map[string]decimal.Decimal) {
	p := models.Portfolio{Owner: owner}
	_ = p.SetBalances(balances)
	s.mu.Lock()
	s.portfolios[owner] = p
	s.mu.Unlock()
}

func (s *stubRepo) balance(owner, asset string) decimal.Decimal {
	s.mu.Lock()
	p := s.portfolios[owner]
	s.mu.Unlock()
	return p.Balance(asset)
}

func (s *stubRepo) ListLiveStrategies(ctx context.Context) ([]models.Strategy, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Strategy
	for _, st := range s.strategies {
		if st.Status == models.StrategyStatusLive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubRepo) GetPortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.portfolios[owner]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *stubRepo) InLedgerTx(ctx context.Context, fn func(tx repository.LedgerStore) error) error {
	tx := &stubTx{repo: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range tx.saved {
		s.portfolios[p.Owner] = p
	}
	s.trades = append(s.trades, tx.trades...)
	return nil
}

type stubTx struct {
	repo   *stubRepo
	saved  []models.Portfolio
	trades []models.Trade
}

func (t *stubTx) LockPortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	p, ok := t.repo.portfolios[owner]
	if !ok {
		p = models.Portfolio{Owner: owner}
		_ = p.SetBalances(map[string]decimal.Decimal{"USDC": decimal.NewFromInt(10000)})
		t.repo.portfolios[owner] = p
	}
	cp := p
	return &cp, nil
}

func (t *stubTx) SavePortfolio(ctx context.Context, item *models.Portfolio) error {
	t.saved = append(t.saved, *item)
	return nil
}

func (t *stubTx) InsertTrade(ctx context.Context, item *models.Trade) error {
	t.repo.mu.Lock()
	item.ID = uint64(len(t.repo.trades) + len(t.trades) + 1)
	t.repo.mu.Unlock()
	t.trades = append(t.trades, *item)
	return nil
}

// stubPrices serves fixed prices; unknown symbols are unavailable.
type stubPrices struct {
	prices map[string]decimal.Decimal

	// block, when set, is waited on before answering; entered is signalled first.
	block   chan struct{}
	entered chan struct{}
}

func (p *stubPrices) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if p.entered != nil {
		select {
		case p.entered <- struct{}{}:
		default:
		}
	}
	if p.block != nil {
		<-p.block
	}
	price, ok := p.prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, errors.Join(pricefeed.ErrPriceUnavailable, errors.New("no quote for "+symbol))
	}
	return price, nil
}

func (p *stubPrices) HistoricalPrices(ctx context.Context, symbol string, hours int) ([]pricefeed.PricePoint, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	trades []models.Trade
}

func (n *recordingNotifier) Publish(trade models.Trade) {
	n.mu.Lock()
	n.trades = append(n.trades, trade)
	n.mu.Unlock()
}
