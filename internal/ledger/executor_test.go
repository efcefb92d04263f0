package ledger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"bitmax/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seeded(owner string, balances map[string]decimal.Decimal) *memLedger {
	return newMemLedger(map[string]map[string]decimal.Decimal{owner: balances})
}

func TestExecutor_Buy(t *testing.T) {
	store := seeded("alice", map[string]decimal.Decimal{"USDC": d("10000")})
	ex := NewExecutor(store, nil)

	trade, err := ex.Apply(context.Background(), Order{
		Owner: "alice", StrategyID: 7, Symbol: "btc", Side: "buy",
		Price: d("100"), Qty: d("2.5"), BaseAsset: "USDC",
		Meta: map[string]any{"bot": "dca"},
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if trade.Symbol != "BTC" || trade.Side != models.SideBuy || !trade.Notional.Equal(d("250")) {
		t.Fatalf("trade=%+v", trade)
	}
	if trade.ID == 0 || trade.StrategyID != 7 {
		t.Fatalf("trade id=%d strategy=%d", trade.ID, trade.StrategyID)
	}
	p := store.portfolio("alice")
	if !p.Balance("USDC").Equal(d("9750")) || !p.Balance("BTC").Equal(d("2.5")) {
		t.Fatalf("balances=%v", p.Balances())
	}
}

func TestExecutor_Sell(t *testing.T) {
	store := seeded("bob", map[string]decimal.Decimal{"USDC": d("0"), "ETH": d("3")})
	ex := NewExecutor(store, nil)

	if _, err := ex.Apply(context.Background(), Order{
		Owner: "bob", Symbol: "ETH", Side: "sell", Price: d("2000"), Qty: d("1"),
	}); err != nil {
		t.Fatalf("err=%v", err)
	}
	p := store.portfolio("bob")
	if !p.Balance("USDC").Equal(d("2000")) || !p.Balance("ETH").Equal(d("2")) {
		t.Fatalf("balances=%v", p.Balances())
	}
}

func TestExecutor_InsufficientLeavesPortfolioUnchanged(t *testing.T) {
	store := seeded("carol", map[string]decimal.Decimal{"USDC": d("50"), "BTC": d("0.1")})
	ex := NewExecutor(store, nil)
	before := append([]byte(nil), store.portfolio("carol").Holdings...)

	_, err := ex.Apply(context.Background(), Order{Owner: "carol", Symbol: "BTC", Side: "buy", Price: d("100"), Qty: d("1")})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err=%v want ErrInsufficientBalance", err)
	}
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) || ib.Reason() != "Insufficient USDC" {
		t.Fatalf("err=%v want reason Insufficient USDC", err)
	}

	_, err = ex.Apply(context.Background(), Order{Owner: "carol", Symbol: "BTC", Side: "sell", Price: d("100"), Qty: d("0.2")})
	if !errors.As(err, &ib) || ib.Reason() != "Insufficient BTC" {
		t.Fatalf("err=%v want reason Insufficient BTC", err)
	}

	if after := store.portfolio("carol").Holdings; !bytes.Equal(before, after) {
		t.Fatalf("holdings changed: %s -> %s", before, after)
	}
	if store.saves != 0 || len(store.trades) != 0 {
		t.Fatalf("saves=%d trades=%d want 0", store.saves, len(store.trades))
	}
}

func TestExecutor_InvalidOrder(t *testing.T) {
	ex := NewExecutor(newMemLedger(nil), nil)
	cases := []Order{
		{Owner: "", Symbol: "BTC", Side: "buy", Price: d("1"), Qty: d("1")},
		{Owner: "a", Symbol: "", Side: "buy", Price: d("1"), Qty: d("1")},
		{Owner: "a", Symbol: "BTC", Side: "hold", Price: d("1"), Qty: d("1")},
		{Owner: "a", Symbol: "BTC", Side: "buy", Price: d("0"), Qty: d("1")},
		{Owner: "a", Symbol: "BTC", Side: "buy", Price: d("1"), Qty: d("-1")},
		{Owner: "a", Symbol: "usdc", Side: "buy", Price: d("1"), Qty: d("1")},
	}
	for i, o := range cases {
		if _, err := ex.Apply(context.Background(), o); !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("case %d err=%v want ErrInvalidOrder", i, err)
		}
	}
}

func TestExecutor_SeedsUnknownOwner(t *testing.T) {
	store := newMemLedger(nil)
	ex := NewExecutor(store, nil)
	if _, err := ex.Apply(context.Background(), Order{Owner: "new", Symbol: "SOL", Side: "buy", Price: d("10"), Qty: d("1")}); err != nil {
		t.Fatalf("err=%v", err)
	}
	newPf := store.portfolio("new")
	if got := newPf.Balance("USDC"); !got.Equal(d("9990")) {
		t.Fatalf("USDC=%s want=9990", got)
	}
}

func TestExecutor_RoundTripIsExact(t *testing.T) {
	store := seeded("dave", map[string]decimal.Decimal{"USDC": d("10000")})
	ex := NewExecutor(store, nil)
	price, qty := d("0.1"), d("0.3")
	for _, side := range []string{"buy", "sell"} {
		if _, err := ex.Apply(context.Background(), Order{Owner: "dave", Symbol: "DOGE", Side: side, Price: price, Qty: qty}); err != nil {
			t.Fatalf("%s err=%v", side, err)
		}
	}
	p := store.portfolio("dave")
	if !p.Balance("USDC").Equal(d("10000")) || !p.Balance("DOGE").IsZero() {
		t.Fatalf("balances=%v want USDC 10000 DOGE 0", p.Balances())
	}
}

func TestExecutor_ConcurrentSameOwner(t *testing.T) {
	store := seeded("erin", map[string]decimal.Decimal{"USDC": d("10000")})
	ex := NewExecutor(store, nil)

	const n = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ex.Apply(context.Background(), Order{Owner: "erin", Symbol: "BTC", Side: "buy", Price: d("100"), Qty: d("10")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected err=%v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || rejected != 10 {
		t.Fatalf("ok=%d rejected=%d want 10/10", ok, rejected)
	}
	p := store.portfolio("erin")
	if !p.Balance("USDC").IsZero() || !p.Balance("BTC").Equal(d("100")) {
		t.Fatalf("balances=%v want USDC 0 BTC 100", p.Balances())
	}
	if len(store.trades) != 10 {
		t.Fatalf("trades=%d want=10", len(store.trades))
	}
}

func TestExecutor_CancelledBeforeStartDoesNothing(t *testing.T) {
	store := seeded("frank", map[string]decimal.Decimal{"USDC": d("100")})
	ex := NewExecutor(store, nil)

	// Hold the owner lock so Apply has to wait.
	unlock, err := ex.locks.acquire(context.Background(), "frank")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.Apply(ctx, Order{Owner: "frank", Symbol: "BTC", Side: "buy", Price: d("1"), Qty: d("1")})
	unlock()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if store.saves != 0 {
		t.Fatalf("saves=%d want=0", store.saves)
	}
}

func TestExecutor_CancelAfterCheckStillCommits(t *testing.T) {
	store := seeded("gina", map[string]decimal.Decimal{"USDC": d("100")})
	ex := NewExecutor(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onLock = cancel

	if _, err := ex.Apply(ctx, Order{Owner: "gina", Symbol: "BTC", Side: "buy", Price: d("1"), Qty: d("1")}); err != nil {
		t.Fatalf("err=%v", err)
	}
	p := store.portfolio("gina")
	if !p.Balance("USDC").Equal(d("99")) || !p.Balance("BTC").Equal(d("1")) {
		t.Fatalf("balances=%v want USDC 99 BTC 1", p.Balances())
	}
}

func TestOwnerLocks_Cleanup(t *testing.T) {
	var l ownerLocks
	unlock, err := l.acquire(context.Background(), "x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	unlock()
	unlock()
	if len(l.locks) != 0 {
		t.Fatalf("locks=%d want=0", len(l.locks))
	}
}

func TestExecutor_SetHoldings(t *testing.T) {
	store := newMemLedger(nil)
	ex := NewExecutor(store, nil)

	p, err := ex.SetHoldings(context.Background(), "hank", map[string]decimal.Decimal{"USDC": d("5"), "BTC": d("1")})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !p.Balance("BTC").Equal(d("1")) {
		t.Fatalf("balances=%v", p.Balances())
	}
	hankPf := store.portfolio("hank")
	if got := hankPf.Balance("USDC"); !got.Equal(d("5")) {
		t.Fatalf("USDC=%s want=5", got)
	}

	_, err = ex.SetHoldings(context.Background(), "hank", map[string]decimal.Decimal{"USDC": d("-1")})
	if !errors.Is(err, ErrInvalidHoldings) {
		t.Fatalf("err=%v want ErrInvalidHoldings", err)
	}
	hankPf = store.portfolio("hank")
	if got := hankPf.Balance("USDC"); !got.Equal(d("5")) {
		t.Fatalf("USDC=%s want unchanged 5", got)
	}
}
