package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitmax/internal/models"
	"bitmax/internal/repository"
)

var defaultSeed = map[string]decimal.Decimal{
	"USDC": decimal.NewFromInt(10000),
}

type Store struct {
	db *gorm.DB

	// Seed is the holdings a portfolio starts with on first reference.
	Seed map[string]decimal.Decimal
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithSeed sets the initial holdings for new portfolios.
func (s *Store) WithSeed(asset string, balance decimal.Decimal) *Store {
	if s == nil || strings.TrimSpace(asset) == "" {
		return s
	}
	s.Seed = map[string]decimal.Decimal{strings.TrimSpace(asset): balance}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) InLedgerTx(ctx context.Context, fn func(tx repository.LedgerStore) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, Seed: s.Seed})
	})
}

// --- strategies --------------------------------------------------------------

func (s *Store) InsertStrategy(ctx context.Context, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := strategyFilters(s.db.WithContext(ctx).Model(&models.Strategy{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "id")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Strategy
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountStrategies(ctx context.Context, params repository.ListStrategiesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := strategyFilters(s.db.WithContext(ctx).Model(&models.Strategy{}), params).Count(&count).Error
	return count, err
}

func strategyFilters(query *gorm.DB, params repository.ListStrategiesParams) *gorm.DB {
	if params.Owner != nil && strings.TrimSpace(*params.Owner) != "" {
		query = query.Where("owner = ?", strings.TrimSpace(*params.Owner))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.BotType != nil && strings.TrimSpace(*params.BotType) != "" {
		query = query.Where("bot_type = ?", strings.TrimSpace(*params.BotType))
	}
	return query
}

func (s *Store) ListLiveStrategies(ctx context.Context) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Strategy
	if err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("status = ?", models.StrategyStatusLive).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateStrategy(ctx context.Context, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":       item.Name,
			"bot_type":   item.BotType,
			"symbol":     item.Symbol,
			"base_asset": item.BaseAsset,
			"params":     item.Params,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) SetStrategyStatus(ctx context.Context, id uint64, status string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) DeleteStrategy(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Strategy{}).Error
}

// --- portfolios --------------------------------------------------------------

func (s *Store) GetPortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	if s == nil || s.db == nil || strings.TrimSpace(owner) == "" {
		return nil, nil
	}
	var item models.Portfolio
	err := s.db.WithContext(ctx).Where("owner = ?", owner).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOrCreatePortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	if s == nil || s.db == nil || strings.TrimSpace(owner) == "" {
		return nil, nil
	}
	if err := s.ensurePortfolio(ctx, owner); err != nil {
		return nil, err
	}
	return s.GetPortfolio(ctx, owner)
}

// LockPortfolio must run inside InLedgerTx for the row lock to mean anything.
func (s *Store) LockPortfolio(ctx context.Context, owner string) (*models.Portfolio, error) {
	if s == nil || s.db == nil || strings.TrimSpace(owner) == "" {
		return nil, nil
	}
	if err := s.ensurePortfolio(ctx, owner); err != nil {
		return nil, err
	}
	var item models.Portfolio
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner = ?", owner).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ensurePortfolio(ctx context.Context, owner string) error {
	seed := s.Seed
	if len(seed) == 0 {
		seed = defaultSeed
	}
	item := &models.Portfolio{Owner: owner}
	if err := item.SetBalances(seed); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}},
			DoNothing: true,
		}).
		Create(item).Error
}

func (s *Store) SavePortfolio(ctx context.Context, item *models.Portfolio) error {
	if s == nil || s.db == nil || item == nil || strings.TrimSpace(item.Owner) == "" {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoUpdates: clause.AssignmentColumns([]string{"holdings", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) ListPortfolios(ctx context.Context, limit, offset int) ([]models.Portfolio, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Portfolio
	if err := s.db.WithContext(ctx).
		Model(&models.Portfolio{}).
		Order("owner asc").
		Limit(normalizeLimit(limit, 100)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- trades ------------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := tradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	// Ties on created_at fall back to insertion order.
	query = query.Order("id desc")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := tradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params).Count(&count).Error
	return count, err
}

func tradeFilters(query *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	if params.Owner != nil && strings.TrimSpace(*params.Owner) != "" {
		query = query.Where("owner = ?", strings.TrimSpace(*params.Owner))
	}
	if params.StrategyID != nil && *params.StrategyID > 0 {
		query = query.Where("strategy_id = ?", *params.StrategyID)
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Side != nil && strings.TrimSpace(*params.Side) != "" {
		query = query.Where("side = ?", strings.ToLower(strings.TrimSpace(*params.Side)))
	}
	return query
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
