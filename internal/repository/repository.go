package repository

import (
	"context"

	"bitmax/internal/models"
)

type StrategyRepository interface {
	InsertStrategy(ctx context.Context, item *models.Strategy) error
	GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error)
	ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.Strategy, error)
	CountStrategies(ctx context.Context, params ListStrategiesParams) (int64, error)
	ListLiveStrategies(ctx context.Context) ([]models.Strategy, error)
	UpdateStrategy(ctx context.Context, item *models.Strategy) error
	SetStrategyStatus(ctx context.Context, id uint64, status string) error
	DeleteStrategy(ctx context.Context, id uint64) error
}

type PortfolioRepository interface {
	// GetPortfolio returns nil when the owner has never been referenced.
	GetPortfolio(ctx context.Context, owner string) (*models.Portfolio, error)
	// GetOrCreatePortfolio seeds the ledger on first reference.
	GetOrCreatePortfolio(ctx context.Context, owner string) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, item *models.Portfolio) error
	ListPortfolios(ctx context.Context, limit, offset int) ([]models.Portfolio, error)
}

type TradeRepository interface {
	InsertTrade(ctx context.Context, item *models.Trade) error
	GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
}

// LedgerStore is the transactional view handed to InLedgerTx callbacks.
type LedgerStore interface {
	// LockPortfolio returns the owner's portfolio, seeding it if absent, and
	// holds a row lock on it until the transaction ends.
	LockPortfolio(ctx context.Context, owner string) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, item *models.Portfolio) error
	InsertTrade(ctx context.Context, item *models.Trade) error
}

type Repository interface {
	StrategyRepository
	PortfolioRepository
	TradeRepository

	InLedgerTx(ctx context.Context, fn func(tx LedgerStore) error) error
}

type ListStrategiesParams struct {
	Limit   int
	Offset  int
	Owner   *string
	Status  *string
	BotType *string
	OrderBy string
	Asc     *bool
}

type ListTradesParams struct {
	Limit      int
	Offset     int
	Owner      *string
	StrategyID *uint64
	Symbol     *string
	Side       *string
	OrderBy    string
	Asc        *bool
}
