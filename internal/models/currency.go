package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217-like code with an exchange rate expressed relative to
// the single default currency. Exactly one row has IsDefault set.
type Currency struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	IsDefault    bool            `json:"is_default"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
