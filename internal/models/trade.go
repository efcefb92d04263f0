package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is an executed ledger mutation. Rows are insert-only.
type Trade struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Owner      string `gorm:"type:varchar(100);not null;index"`
	StrategyID uint64 `gorm:"not null;index"`
	Symbol     string `gorm:"type:varchar(30);not null;index"`
	Side       string `gorm:"type:varchar(10);not null"`

	Price    decimal.Decimal `gorm:"type:numeric;not null"`
	Qty      decimal.Decimal `gorm:"type:numeric;not null"`
	Notional decimal.Decimal `gorm:"type:numeric;not null"`

	Meta datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Trade) TableName() string {
	return "trades"
}
