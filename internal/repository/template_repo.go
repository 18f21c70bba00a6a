package repository

import (
	"context"

	"github.com/alirzan/SessionBookBack/internal/models"
)

type CreateTemplateInput struct {
	DayOfWeek         int
	StartTime         string
	EndTime           string
	Capacity          int
	SessionDurationID *int64
	IsAvailable       bool
	AutoAvailable     bool
}

type TemplateRepository struct {
	db DBTX
}

func NewTemplateRepository(db DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, day_of_week, start_time, end_time, capacity,
	   session_duration_id, is_available, auto_available, created_at, updated_at`

func scanTemplate(row interface{ Scan(dest ...any) error }) (*models.ScheduleTemplate, error) {
	var template models.ScheduleTemplate
	err := row.Scan(
		&template.ID,
		&template.DayOfWeek,
		&template.StartTime,
		&template.EndTime,
		&template.Capacity,
		&template.SessionDurationID,
		&template.IsAvailable,
		&template.AutoAvailable,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepository) Create(
	ctx context.Context,
	input CreateTemplateInput,
) (*models.ScheduleTemplate, error) {
	query := `
		INSERT INTO schedule_templates (day_of_week, start_time, end_time, capacity, session_duration_id, is_available, auto_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + templateColumns + `
	`
	return scanTemplate(r.db.QueryRow(
		ctx,
		query,
		input.DayOfWeek,
		input.StartTime,
		input.EndTime,
		input.Capacity,
		input.SessionDurationID,
		input.IsAvailable,
		input.AutoAvailable,
	))
}

func (r *TemplateRepository) Update(ctx context.Context, template *models.ScheduleTemplate) error {
	query := `
		UPDATE schedule_templates
		SET day_of_week = $2, start_time = $3, end_time = $4, capacity = $5,
			session_duration_id = $6, is_available = $7, auto_available = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		template.ID,
		template.DayOfWeek,
		template.StartTime,
		template.EndTime,
		template.Capacity,
		template.SessionDurationID,
		template.IsAvailable,
		template.AutoAvailable,
	).Scan(&template.UpdatedAt)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM schedule_templates WHERE id = $1`
	return scanTemplate(r.db.QueryRow(ctx, query, id))
}

func (r *TemplateRepository) List(ctx context.Context) ([]models.ScheduleTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM schedule_templates
		ORDER BY day_of_week ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]models.ScheduleTemplate, 0)
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.ScheduleTemplate, error) {
	if len(ids) == 0 {
		return []models.ScheduleTemplate{}, nil
	}
	query := `
		SELECT ` + templateColumns + `
		FROM schedule_templates
		WHERE id = ANY($1)
		ORDER BY day_of_week ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]models.ScheduleTemplate, 0, len(ids))
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// ListAvailableByDay returns the available templates on a weekday, excluding
// one id, for the overlap scan on create/update.
func (r *TemplateRepository) ListAvailableByDay(
	ctx context.Context,
	dayOfWeek int,
	excludeID int64,
) ([]models.ScheduleTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM schedule_templates
		WHERE day_of_week = $1 AND is_available AND id <> $2
		ORDER BY start_time ASC
	`
	rows, err := r.db.Query(ctx, query, dayOfWeek, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]models.ScheduleTemplate, 0)
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedule_templates WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountReferencedSlots reports how many of the template's slots are referenced
// by at least one booking row, cancelled or not. A non-zero count blocks
// template deletion.
func (r *TemplateRepository) CountReferencedSlots(ctx context.Context, templateID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM schedule_slots s
		WHERE s.schedule_template_id = $1
		  AND EXISTS (SELECT 1 FROM bookings b WHERE b.schedule_slot_id = s.id)
	`
	var count int
	if err := r.db.QueryRow(ctx, query, templateID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
