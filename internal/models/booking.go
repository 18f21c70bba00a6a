package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
	BookingStatusNoShow    = "no-show"
)

const (
	BookingTypeIndividual = "individual"
	BookingTypeGroup      = "group"
)

// UserPackage is a client's prepaid bundle of sessions bought at one package
// price. SessionsRemaining + SessionsUsed stays constant for the life of the
// record; only the booking lifecycle moves sessions between the two counters.
type UserPackage struct {
	ID                int64     `json:"id"`
	ClientID          int64     `json:"client_id"`
	PackagePriceID    int64     `json:"package_price_id"`
	SessionsRemaining int       `json:"sessions_remaining"`
	SessionsUsed      int       `json:"sessions_used"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Booking struct {
	ID              int64           `json:"id"`
	Reference       string          `json:"reference"`
	ClientID        int64           `json:"client_id"`
	ScheduleSlotID  int64           `json:"schedule_slot_id"`
	UserPackageID   int64           `json:"user_package_id"`
	BookingType     string          `json:"booking_type"`
	GroupSize       *int            `json:"group_size"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	Notes           *string         `json:"notes"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CancelledReason *string         `json:"cancelled_reason"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type BookingDetail struct {
	Booking
	Slot    *ScheduleSlot `json:"slot,omitempty"`
	Package *UserPackage  `json:"package,omitempty"`
}
