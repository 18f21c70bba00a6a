package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PackageTypeIndividual = "individual"
	PackageTypeGroup      = "group"
	PackageTypeMixed      = "mixed"
)

const (
	PricingModeCustom     = "custom"
	PricingModeCalculated = "calculated"
)

type SessionDuration struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

type PackageDefinition struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	SessionsCount     int       `json:"sessions_count"`
	SessionDurationID int64     `json:"session_duration_id"`
	PackageType       string    `json:"package_type"`
	MaxGroupSize      *int      `json:"max_group_size"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PackagePrice is one per-currency price of a package. A "calculated" price is
// derived from the active default-currency price and the two exchange rates; a
// "custom" price is author-entered. At most one price per
// (package_definition_id, currency_id) is active at a time; superseded prices
// are kept deactivated for history.
type PackagePrice struct {
	ID                  int64           `json:"id"`
	PackageDefinitionID int64           `json:"package_definition_id"`
	CurrencyID          int64           `json:"currency_id"`
	Price               decimal.Decimal `json:"price"`
	PricingMode         string          `json:"pricing_mode"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
