package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/shopspring/decimal"
)

type CreateBookingInput struct {
	Reference      string
	ClientID       int64
	ScheduleSlotID int64
	UserPackageID  int64
	BookingType    string
	GroupSize      *int
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Notes          *string
}

type UpdateBookingFieldsInput struct {
	GroupSize      *int
	TotalAmount    *decimal.Decimal
	DiscountAmount *decimal.Decimal
	FinalAmount    *decimal.Decimal
	Notes          *string
}

type BookingListFilter struct {
	ClientID  int64
	SlotID    int64
	Status    string
	Timeframe string
	Page      int
	Limit     int
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, reference, client_id, schedule_slot_id, user_package_id,
	   booking_type, group_size, status, total_amount, discount_amount, final_amount,
	   notes, cancelled_at, cancelled_reason, created_at, updated_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (*models.Booking, error) {
	var booking models.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.ClientID,
		&booking.ScheduleSlotID,
		&booking.UserPackageID,
		&booking.BookingType,
		&booking.GroupSize,
		&booking.Status,
		&booking.TotalAmount,
		&booking.DiscountAmount,
		&booking.FinalAmount,
		&booking.Notes,
		&booking.CancelledAt,
		&booking.CancelledReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (reference, client_id, schedule_slot_id, user_package_id,
			booking_type, group_size, status, total_amount, discount_amount, final_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9, $10)
		RETURNING ` + bookingColumns + `
	`
	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.Reference,
		input.ClientID,
		input.ScheduleSlotID,
		input.UserPackageID,
		input.BookingType,
		input.GroupSize,
		input.TotalAmount,
		input.DiscountAmount,
		input.FinalAmount,
		input.Notes,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, int, error) {
	args := []any{}
	whereParts := []string{}

	if filter.ClientID > 0 {
		args = append(args, filter.ClientID)
		whereParts = append(whereParts, fmt.Sprintf("b.client_id = $%d", len(args)))
	}
	if filter.SlotID > 0 {
		args = append(args, filter.SlotID)
		whereParts = append(whereParts, fmt.Sprintf("b.schedule_slot_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("b.status = $%d", len(args)))
	}
	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "s.start_time > NOW()")
	case "past":
		whereParts = append(whereParts, "s.start_time <= NOW()")
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = " WHERE " + strings.Join(whereParts, " AND ")
	}

	countQuery := `
		SELECT COUNT(*)
		FROM bookings b
		JOIN schedule_slots s ON s.id = b.schedule_slot_id
	` + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + bookingPrefixedColumns() + `
		FROM bookings b
		JOIN schedule_slots s ON s.id = b.schedule_slot_id
	` + whereClause + `
		ORDER BY s.start_time ASC, b.id ASC
	`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func bookingPrefixedColumns() string {
	parts := strings.Split(bookingColumns, ",")
	for i, part := range parts {
		parts[i] = "b." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func (r *BookingRepository) UpdateFields(
	ctx context.Context,
	id int64,
	input UpdateBookingFieldsInput,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET group_size = COALESCE($2, group_size),
			total_amount = COALESCE($3, total_amount),
			discount_amount = COALESCE($4, discount_amount),
			final_amount = COALESCE($5, final_amount),
			notes = COALESCE($6, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns + `
	`
	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		id,
		input.GroupSize,
		input.TotalAmount,
		input.DiscountAmount,
		input.FinalAmount,
		input.Notes,
	))
}

func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns + `
	`
	return scanBooking(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus))
}

// CancelIfCurrent is the status CAS for cancellation: it only fires when the
// booking is still in the observed pre-cancel status, which is what guarantees
// the paired session restoration runs at most once per booking.
func (r *BookingRepository) CancelIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	reason *string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = NOW(), cancelled_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns + `
	`
	return scanBooking(r.db.QueryRow(ctx, query, id, currentStatus, reason))
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountActiveByUserPackage counts bookings still holding a session from the
// package (anything not cancelled).
func (r *BookingRepository) CountActiveByUserPackage(ctx context.Context, userPackageID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_package_id = $1 AND status <> 'cancelled'`
	var count int
	if err := r.db.QueryRow(ctx, query, userPackageID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BookingRepository) CountBySlot(ctx context.Context, slotID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE schedule_slot_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, slotID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
