package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrForbidden              = errors.New("forbidden")
	ErrSlotUnavailable        = errors.New("slot is not available")
	ErrSlotFull               = errors.New("slot is fully booked")
	ErrPackageInactive        = errors.New("user package is inactive")
	ErrNoSessionsLeft         = errors.New("no sessions left on package")
	ErrNoBasePrice            = errors.New("no base price in default currency")
	ErrDefaultRequired        = errors.New("a default currency must remain designated")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrContention             = errors.New("resource is contended, retry")
)

const pgLockNotAvailable = "55P03"

// isLockTimeout reports whether the error is a lock_timeout expiry, which the
// booking operations surface as retryable contention instead of a failure.
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}
