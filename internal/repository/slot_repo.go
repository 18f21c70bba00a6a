package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
)

type SlotListFilter struct {
	TemplateID    int64
	From          *time.Time
	To            *time.Time
	AvailableOnly bool
}

type SlotRepository struct {
	db DBTX
}

func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, schedule_template_id, start_time, end_time, capacity,
	   booked_count, is_available, created_at, updated_at`

func scanSlot(row interface{ Scan(dest ...any) error }) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := row.Scan(
		&slot.ID,
		&slot.ScheduleTemplateID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Capacity,
		&slot.BookedCount,
		&slot.IsAvailable,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepository) Insert(ctx context.Context, slot *models.ScheduleSlot) error {
	query := `
		INSERT INTO schedule_slots (schedule_template_id, start_time, end_time, capacity, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, booked_count, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		slot.ScheduleTemplateID,
		slot.StartTime,
		slot.EndTime,
		slot.Capacity,
		slot.IsAvailable,
	).Scan(&slot.ID, &slot.BookedCount, &slot.CreatedAt, &slot.UpdatedAt)
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1`
	return scanSlot(r.db.QueryRow(ctx, query, id))
}

func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1 FOR UPDATE`
	return scanSlot(r.db.QueryRow(ctx, query, id))
}

func (r *SlotRepository) List(ctx context.Context, filter SlotListFilter) ([]models.ScheduleSlot, error) {
	args := []any{}
	whereParts := []string{}

	if filter.TemplateID > 0 {
		args = append(args, filter.TemplateID)
		whereParts = append(whereParts, fmt.Sprintf("schedule_template_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		whereParts = append(whereParts, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		whereParts = append(whereParts, fmt.Sprintf("start_time < $%d", len(args)))
	}
	if filter.AvailableOnly {
		whereParts = append(whereParts, "is_available AND booked_count < capacity")
	}

	query := `SELECT ` + slotColumns + ` FROM schedule_slots`
	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.ScheduleSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *SlotRepository) ExistsByTemplateAndStart(
	ctx context.Context,
	templateID int64,
	startTime time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedule_slots
			WHERE schedule_template_id = $1 AND start_time = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, templateID, startTime.UTC()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteIfUnreferenced removes the slot for a (template, start) pair unless
// any booking row still points at it. Returns whether a row was deleted.
func (r *SlotRepository) DeleteIfUnreferenced(
	ctx context.Context,
	templateID int64,
	startTime time.Time,
) (bool, error) {
	query := `
		DELETE FROM schedule_slots s
		WHERE s.schedule_template_id = $1 AND s.start_time = $2
		  AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.schedule_slot_id = s.id)
	`
	tag, err := r.db.Exec(ctx, query, templateID, startTime.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SlotRepository) DeleteUnreferencedByTemplate(ctx context.Context, templateID int64) error {
	query := `
		DELETE FROM schedule_slots s
		WHERE s.schedule_template_id = $1
		  AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.schedule_slot_id = s.id)
	`
	_, err := r.db.Exec(ctx, query, templateID)
	return err
}

// IncrementBooked takes one place in the slot, guarded so booked_count can
// never pass capacity even if the caller's earlier check raced. Returns false
// when the slot was full or unavailable.
func (r *SlotRepository) IncrementBooked(ctx context.Context, slotID int64) (bool, error) {
	query := `
		UPDATE schedule_slots
		SET booked_count = booked_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_available AND booked_count < capacity
	`
	tag, err := r.db.Exec(ctx, query, slotID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SlotRepository) DecrementBooked(ctx context.Context, slotID int64) error {
	query := `
		UPDATE schedule_slots
		SET booked_count = GREATEST(booked_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, slotID)
	return err
}
