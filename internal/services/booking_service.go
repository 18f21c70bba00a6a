package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type BookingService struct {
	db              *pgxpool.Pool
	bookingRepo     *repository.BookingRepository
	slotRepo        *repository.SlotRepository
	userPackageRepo *repository.UserPackageRepository
	packageRepo     *repository.PackageRepository
	priceRepo       *repository.PriceRepository
	lockTimeout     time.Duration
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	slotRepo *repository.SlotRepository,
	userPackageRepo *repository.UserPackageRepository,
	packageRepo *repository.PackageRepository,
	priceRepo *repository.PriceRepository,
	lockTimeout time.Duration,
) *BookingService {
	return &BookingService{
		db:              db,
		bookingRepo:     bookingRepo,
		slotRepo:        slotRepo,
		userPackageRepo: userPackageRepo,
		packageRepo:     packageRepo,
		priceRepo:       priceRepo,
		lockTimeout:     lockTimeout,
	}
}

type CreateBookingInput struct {
	ClientID       int64
	ScheduleSlotID int64
	UserPackageID  int64
	BookingType    string
	GroupSize      *int
	TotalAmount    *decimal.Decimal
	DiscountAmount *decimal.Decimal
	Notes          *string
}

type UpdateBookingInput struct {
	Status          *string
	GroupSize       *int
	TotalAmount     *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	Notes           *string
	CancelledReason *string
}

// validTransitions holds the allowed status moves. Cancellation is handled
// separately because it pairs with counter restoration.
var validTransitions = map[string][]string{
	models.BookingStatusPending:   {models.BookingStatusConfirmed, models.BookingStatusCancelled},
	models.BookingStatusConfirmed: {models.BookingStatusCompleted, models.BookingStatusCancelled, models.BookingStatusNoShow},
}

// normalizeStatus folds the spellings clients actually send into the stored
// status values.
func normalizeStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return models.BookingStatusPending, nil
	case "confirmed":
		return models.BookingStatusConfirmed, nil
	case "completed":
		return models.BookingStatusCompleted, nil
	case "cancelled", "canceled", "cancel":
		return models.BookingStatusCancelled, nil
	case "no-show", "no_show", "noshow":
		return models.BookingStatusNoShow, nil
	default:
		return "", ErrInvalidStatus
	}
}

func canTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// defaultSessionAmount is what one session of the package is worth at its
// purchase price: price divided by the package's session count, at two
// decimal places.
func defaultSessionAmount(price decimal.Decimal, sessionsCount int) decimal.Decimal {
	if sessionsCount <= 0 {
		return price.Round(2)
	}
	return price.Div(decimal.NewFromInt(int64(sessionsCount))).Round(2)
}

func (s *BookingService) beginLocked(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, timeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// CreateBooking reserves one place in a slot and consumes one session from a
// client package, atomically. The slot row is locked first, then the package
// row, in that order everywhere, so concurrent bookings serialize without
// deadlocking.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	actorID int64,
	actorRole string,
	input CreateBookingInput,
) (*models.Booking, error) {
	if actorRole != models.RoleAdmin {
		input.ClientID = actorID
	}
	if input.ClientID <= 0 || input.ScheduleSlotID <= 0 || input.UserPackageID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.BookingType != models.BookingTypeIndividual && input.BookingType != models.BookingTypeGroup {
		return nil, ErrInvalidInput
	}
	if input.BookingType == models.BookingTypeGroup {
		if input.GroupSize == nil || *input.GroupSize < 1 {
			return nil, ErrInvalidInput
		}
	} else if input.GroupSize != nil {
		return nil, ErrInvalidInput
	}
	if input.TotalAmount != nil && input.TotalAmount.IsNegative() {
		return nil, ErrInvalidInput
	}
	if input.DiscountAmount != nil && input.DiscountAmount.IsNegative() {
		return nil, ErrInvalidInput
	}

	tx, err := s.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)
	txUserPackageRepo := repository.NewUserPackageRepository(tx)
	txPriceRepo := repository.NewPriceRepository(tx)
	txPackageRepo := repository.NewPackageRepository(tx)
	txBookingRepo := repository.NewBookingRepository(tx)

	slot, err := txSlotRepo.GetByIDForUpdate(ctx, input.ScheduleSlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isLockTimeout(err) {
			return nil, ErrContention
		}
		return nil, err
	}
	if !slot.IsAvailable {
		return nil, ErrSlotUnavailable
	}
	if slot.BookedCount >= slot.Capacity {
		return nil, ErrSlotFull
	}

	userPackage, err := txUserPackageRepo.GetByIDForUpdate(ctx, input.UserPackageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isLockTimeout(err) {
			return nil, ErrContention
		}
		return nil, err
	}
	if userPackage.ClientID != input.ClientID {
		return nil, ErrForbidden
	}
	if !userPackage.IsActive {
		return nil, ErrPackageInactive
	}
	if userPackage.SessionsRemaining <= 0 {
		return nil, ErrNoSessionsLeft
	}

	price, err := txPriceRepo.GetByID(ctx, userPackage.PackagePriceID)
	if err != nil {
		return nil, err
	}
	definition, err := txPackageRepo.GetByID(ctx, price.PackageDefinitionID)
	if err != nil {
		return nil, err
	}
	if input.BookingType == models.BookingTypeGroup {
		if definition.PackageType == models.PackageTypeIndividual {
			return nil, ErrInvalidInput
		}
		if definition.MaxGroupSize != nil && *input.GroupSize > *definition.MaxGroupSize {
			return nil, ErrInvalidInput
		}
	} else if definition.PackageType == models.PackageTypeGroup {
		return nil, ErrInvalidInput
	}

	taken, err := txSlotRepo.IncrementBooked(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if !taken {
		return nil, ErrSlotFull
	}
	if _, consumed, err := txUserPackageRepo.ConsumeSession(ctx, userPackage.ID); err != nil {
		return nil, err
	} else if !consumed {
		return nil, ErrNoSessionsLeft
	}

	total := defaultSessionAmount(price.Price, definition.SessionsCount)
	if input.TotalAmount != nil {
		total = input.TotalAmount.Round(2)
	}
	discount := decimal.Zero
	if input.DiscountAmount != nil {
		discount = input.DiscountAmount.Round(2)
	}
	final := total.Sub(discount)
	if final.IsNegative() {
		return nil, ErrInvalidInput
	}

	booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
		Reference:      uuid.NewString(),
		ClientID:       input.ClientID,
		ScheduleSlotID: input.ScheduleSlotID,
		UserPackageID:  input.UserPackageID,
		BookingType:    input.BookingType,
		GroupSize:      input.GroupSize,
		TotalAmount:    total,
		DiscountAmount: discount,
		FinalAmount:    final,
		Notes:          input.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) GetBooking(
	ctx context.Context,
	actorID int64,
	actorRole string,
	id int64,
) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && booking.ClientID != actorID {
		return nil, ErrForbidden
	}

	detail := &models.BookingDetail{Booking: *booking}
	if slot, err := s.slotRepo.GetByID(ctx, booking.ScheduleSlotID); err == nil {
		detail.Slot = slot
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if pkg, err := s.userPackageRepo.GetByID(ctx, booking.UserPackageID); err == nil {
		detail.Package = pkg
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return detail, nil
}

func (s *BookingService) ListBookings(
	ctx context.Context,
	actorID int64,
	actorRole string,
	filter repository.BookingListFilter,
) ([]models.Booking, int, error) {
	if actorRole != models.RoleAdmin {
		filter.ClientID = actorID
	}
	if filter.Status != "" {
		status, err := normalizeStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = status
	}
	switch filter.Timeframe {
	case "", "upcoming", "past":
	default:
		return nil, 0, ErrInvalidInput
	}
	return s.bookingRepo.List(ctx, filter)
}

// UpdateBooking patches booking fields and drives the status machine. A
// transition into cancelled releases the slot place and restores the session;
// cancelling an already cancelled booking is a no-op so retried cancellations
// never restore twice.
func (s *BookingService) UpdateBooking(
	ctx context.Context,
	actorID int64,
	actorRole string,
	id int64,
	input UpdateBookingInput,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin {
		if booking.ClientID != actorID {
			return nil, ErrForbidden
		}
		// Clients may only cancel; the rest of the machine is staff-driven.
		if input.Status != nil {
			status, err := normalizeStatus(*input.Status)
			if err != nil {
				return nil, err
			}
			if status != models.BookingStatusCancelled {
				return nil, ErrForbidden
			}
		}
	}

	if input.Status != nil {
		next, err := normalizeStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		if next == models.BookingStatusCancelled {
			updated, err := s.cancelBooking(ctx, booking, input.CancelledReason)
			if err != nil {
				return nil, err
			}
			booking = updated
		} else if next != booking.Status {
			if !canTransition(booking.Status, next) {
				return nil, ErrInvalidStateTransition
			}
			updated, err := s.bookingRepo.UpdateStatusIfCurrent(ctx, booking.ID, booking.Status, next)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, ErrConflict
				}
				return nil, err
			}
			booking = updated
		}
	}

	fields := repository.UpdateBookingFieldsInput{
		TotalAmount:    input.TotalAmount,
		DiscountAmount: input.DiscountAmount,
		Notes:          input.Notes,
	}
	if input.GroupSize != nil {
		if booking.BookingType != models.BookingTypeGroup || *input.GroupSize < 1 {
			return nil, ErrInvalidInput
		}
		if err := s.checkGroupSize(ctx, booking.UserPackageID, *input.GroupSize); err != nil {
			return nil, err
		}
		fields.GroupSize = input.GroupSize
	}
	if fields.GroupSize == nil && fields.TotalAmount == nil &&
		fields.DiscountAmount == nil && fields.Notes == nil {
		return booking, nil
	}

	total := booking.TotalAmount
	if input.TotalAmount != nil {
		if input.TotalAmount.IsNegative() {
			return nil, ErrInvalidInput
		}
		rounded := input.TotalAmount.Round(2)
		fields.TotalAmount = &rounded
		total = rounded
	}
	discount := booking.DiscountAmount
	if input.DiscountAmount != nil {
		if input.DiscountAmount.IsNegative() {
			return nil, ErrInvalidInput
		}
		rounded := input.DiscountAmount.Round(2)
		fields.DiscountAmount = &rounded
		discount = rounded
	}
	final := total.Sub(discount)
	if final.IsNegative() {
		return nil, ErrInvalidInput
	}
	fields.FinalAmount = &final

	updated, err := s.bookingRepo.UpdateFields(ctx, booking.ID, fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *BookingService) checkGroupSize(ctx context.Context, userPackageID int64, groupSize int) error {
	userPackage, err := s.userPackageRepo.GetByID(ctx, userPackageID)
	if err != nil {
		return err
	}
	price, err := s.priceRepo.GetByID(ctx, userPackage.PackagePriceID)
	if err != nil {
		return err
	}
	definition, err := s.packageRepo.GetByID(ctx, price.PackageDefinitionID)
	if err != nil {
		return err
	}
	if definition.MaxGroupSize != nil && groupSize > *definition.MaxGroupSize {
		return ErrInvalidInput
	}
	return nil
}

func (s *BookingService) cancelBooking(
	ctx context.Context,
	booking *models.Booking,
	reason *string,
) (*models.Booking, error) {
	switch booking.Status {
	case models.BookingStatusCancelled:
		return booking, nil
	case models.BookingStatusPending, models.BookingStatusConfirmed:
	default:
		return nil, ErrInvalidStateTransition
	}

	tx, err := s.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txSlotRepo := repository.NewSlotRepository(tx)
	txUserPackageRepo := repository.NewUserPackageRepository(tx)

	cancelled, err := txBookingRepo.CancelIfCurrent(ctx, booking.ID, booking.Status, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone changed the status underneath us. If they cancelled it,
			// the restoration already ran and this request is a no-op retry.
			current, getErr := txBookingRepo.GetByID(ctx, booking.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == models.BookingStatusCancelled {
				if commitErr := tx.Commit(ctx); commitErr != nil {
					return nil, commitErr
				}
				return current, nil
			}
			return nil, ErrConflict
		}
		if isLockTimeout(err) {
			return nil, ErrContention
		}
		return nil, err
	}

	if err := txSlotRepo.DecrementBooked(ctx, booking.ScheduleSlotID); err != nil {
		return nil, err
	}
	if _, err := txUserPackageRepo.RestoreSession(ctx, booking.UserPackageID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// DeleteBooking hard-deletes a booking. When the booking still holds a slot
// place and a session (anything not cancelled), both are released first so
// the counters stay consistent.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	tx, err := s.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txSlotRepo := repository.NewSlotRepository(tx)
	txUserPackageRepo := repository.NewUserPackageRepository(tx)

	locked, err := txBookingRepo.GetByIDForUpdate(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isLockTimeout(err) {
			return ErrContention
		}
		return err
	}
	if locked.Status != models.BookingStatusCancelled {
		if err := txSlotRepo.DecrementBooked(ctx, locked.ScheduleSlotID); err != nil {
			return err
		}
		if _, err := txUserPackageRepo.RestoreSession(ctx, locked.UserPackageID); err != nil {
			return err
		}
	}
	deleted, err := txBookingRepo.Delete(ctx, locked.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
