package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrInvalidHoldings     = errors.New("invalid holdings")
)

// InsufficientBalanceError is returned when the owner cannot cover an order.
// It matches ErrInsufficientBalance under errors.Is.
type InsufficientBalanceError struct {
	Asset string
	Have  decimal.Decimal
	Need  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s: have %s, need %s", e.Asset, e.Have, e.Need)
}

// Reason is the user-facing message.
func (e *InsufficientBalanceError) Reason() string {
	return "Insufficient " + e.Asset
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
