package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StrategyStatusDraft  = "draft"
	StrategyStatusLive   = "live"
	StrategyStatusPaused = "paused"
)

// Strategy is a configured bot owned by one user.
type Strategy struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(100);not null"`
	Owner     string `gorm:"type:varchar(100);not null;index"`
	BotType   string `gorm:"type:varchar(20);not null;index"`
	Symbol    string `gorm:"type:varchar(30);not null"`
	BaseAsset string `gorm:"type:varchar(30);not null;default:'USDC'"`

	Params datatypes.JSON `gorm:"type:jsonb"`
	Status string         `gorm:"type:varchar(20);not null;default:'draft';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Strategy) TableName() string {
	return "strategies"
}

func ValidStrategyStatus(status string) bool {
	switch status {
	case StrategyStatusDraft, StrategyStatusLive, StrategyStatusPaused:
		return true
	}
	return false
}
