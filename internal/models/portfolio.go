package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Portfolio is the per-owner ledger. Holdings maps asset -> decimal string.
type Portfolio struct {
	ID       uint64         `gorm:"primaryKey;autoIncrement"`
	Owner    string         `gorm:"type:varchar(100);not null;uniqueIndex"`
	Holdings datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}

// Balances decodes Holdings. Missing or malformed holdings decode to an empty map.
func (p *Portfolio) Balances() map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if p == nil || len(p.Holdings) == 0 {
		return out
	}
	raw := map[string]decimal.Decimal{}
	if err := json.Unmarshal(p.Holdings, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// SetBalances replaces Holdings with the given balances.
func (p *Portfolio) SetBalances(balances map[string]decimal.Decimal) error {
	if p == nil {
		return nil
	}
	if balances == nil {
		balances = map[string]decimal.Decimal{}
	}
	raw, err := json.Marshal(balances)
	if err != nil {
		return err
	}
	p.Holdings = datatypes.JSON(raw)
	return nil
}

// Balance returns the balance of asset, zero when absent.
func (p *Portfolio) Balance(asset string) decimal.Decimal {
	return p.Balances()[asset]
}
