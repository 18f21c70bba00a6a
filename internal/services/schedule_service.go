package services

import (
	"context"
	"errors"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"

	// Generation is bounded to keep a single request from expanding years of
	// slots in one transaction.
	maxGenerationDays = 366

	// Advisory lock namespace for template writes. Writers to a day's
	// available templates serialize on base + day_of_week so the overlap
	// scan always sees every committed peer.
	templateLockBase int64 = 220100
)

type ScheduleService struct {
	db           *pgxpool.Pool
	templateRepo *repository.TemplateRepository
	slotRepo     *repository.SlotRepository
	packageRepo  *repository.PackageRepository
}

func NewScheduleService(
	db *pgxpool.Pool,
	templateRepo *repository.TemplateRepository,
	slotRepo *repository.SlotRepository,
	packageRepo *repository.PackageRepository,
) *ScheduleService {
	return &ScheduleService{
		db:           db,
		templateRepo: templateRepo,
		slotRepo:     slotRepo,
		packageRepo:  packageRepo,
	}
}

type TemplateInput struct {
	DayOfWeek         int
	StartTime         string
	EndTime           string
	Capacity          int
	SessionDurationID *int64
	IsAvailable       bool
	AutoAvailable     bool
}

type GenerateSlotsInput struct {
	TemplateIDs       []int64
	StartDate         string
	EndDate           string
	OverwriteExisting bool
}

type GenerateSlotsResult struct {
	Created int                   `json:"created"`
	Skipped int                   `json:"skipped"`
	Slots   []models.ScheduleSlot `json:"slots"`
}

// parseClock parses an "HH:MM" wall-clock value into minutes since midnight.
func parseClock(value string) (int, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// clocksOverlap reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect: s1 < e2 && s2 < e1.
func clocksOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// slotWindow anchors a template's clock times onto a calendar day in UTC.
func slotWindow(day time.Time, startMinute, endMinute int) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(time.Duration(startMinute) * time.Minute),
		midnight.Add(time.Duration(endMinute) * time.Minute)
}

// validateTemplate checks the field invariants and resolves the clock window.
// The overlap scan is not done here; it has to run inside the write
// transaction, under the day's advisory lock.
func (s *ScheduleService) validateTemplate(ctx context.Context, input TemplateInput) (start, end int, err error) {
	if input.DayOfWeek < 0 || input.DayOfWeek > 6 {
		return 0, 0, ErrInvalidInput
	}
	if input.Capacity <= 0 {
		return 0, 0, ErrInvalidInput
	}
	start, err = parseClock(input.StartTime)
	if err != nil {
		return 0, 0, ErrInvalidInput
	}
	end, err = parseClock(input.EndTime)
	if err != nil {
		return 0, 0, ErrInvalidInput
	}
	if start >= end {
		return 0, 0, ErrInvalidInput
	}
	if input.SessionDurationID != nil {
		if _, err := s.packageRepo.GetDuration(ctx, *input.SessionDurationID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, 0, ErrNotFound
			}
			return 0, 0, err
		}
	}
	return start, end, nil
}

// guardTemplateDay serializes writers on the template's day and rejects the
// write when its clock window intersects another available template. Only
// available templates participate in the overlap invariant: an unavailable
// template never produces bookable slots.
func (s *ScheduleService) guardTemplateDay(
	ctx context.Context,
	tx pgx.Tx,
	repo *repository.TemplateRepository,
	day, start, end int,
	excludeID int64,
) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", templateLockBase+int64(day)); err != nil {
		return err
	}
	others, err := repo.ListAvailableByDay(ctx, day, excludeID)
	if err != nil {
		return err
	}
	for _, other := range others {
		otherStart, err := parseClock(other.StartTime)
		if err != nil {
			return err
		}
		otherEnd, err := parseClock(other.EndTime)
		if err != nil {
			return err
		}
		if clocksOverlap(start, end, otherStart, otherEnd) {
			return ErrConflict
		}
	}
	return nil
}

func (s *ScheduleService) CreateTemplate(ctx context.Context, input TemplateInput) (*models.ScheduleTemplate, error) {
	start, end, err := s.validateTemplate(ctx, input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txTemplateRepo := repository.NewTemplateRepository(tx)

	if input.IsAvailable {
		if err := s.guardTemplateDay(ctx, tx, txTemplateRepo, input.DayOfWeek, start, end, 0); err != nil {
			return nil, err
		}
	}
	template, err := txTemplateRepo.Create(ctx, repository.CreateTemplateInput{
		DayOfWeek:         input.DayOfWeek,
		StartTime:         input.StartTime,
		EndTime:           input.EndTime,
		Capacity:          input.Capacity,
		SessionDurationID: input.SessionDurationID,
		IsAvailable:       input.IsAvailable,
		AutoAvailable:     input.AutoAvailable,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *ScheduleService) UpdateTemplate(ctx context.Context, id int64, input TemplateInput) (*models.ScheduleTemplate, error) {
	start, end, err := s.validateTemplate(ctx, input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txTemplateRepo := repository.NewTemplateRepository(tx)

	template, err := txTemplateRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if input.IsAvailable {
		if err := s.guardTemplateDay(ctx, tx, txTemplateRepo, input.DayOfWeek, start, end, id); err != nil {
			return nil, err
		}
	}

	template.DayOfWeek = input.DayOfWeek
	template.StartTime = input.StartTime
	template.EndTime = input.EndTime
	template.Capacity = input.Capacity
	template.SessionDurationID = input.SessionDurationID
	template.IsAvailable = input.IsAvailable
	template.AutoAvailable = input.AutoAvailable
	if err := txTemplateRepo.Update(ctx, template); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return template, nil
}

// DeleteTemplate removes a template together with its unbooked slots. It is
// refused while any of the template's slots is referenced by a booking.
func (s *ScheduleService) DeleteTemplate(ctx context.Context, id int64) error {
	if _, err := s.templateRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	referenced, err := s.templateRepo.CountReferencedSlots(ctx, id)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return ErrConflict
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)
	txTemplateRepo := repository.NewTemplateRepository(tx)

	if err := txSlotRepo.DeleteUnreferencedByTemplate(ctx, id); err != nil {
		return err
	}
	deleted, err := txTemplateRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *ScheduleService) ListTemplates(ctx context.Context) ([]models.ScheduleTemplate, error) {
	return s.templateRepo.List(ctx)
}

func (s *ScheduleService) ListSlots(ctx context.Context, filter repository.SlotListFilter) ([]models.ScheduleSlot, error) {
	return s.slotRepo.List(ctx, filter)
}

// GenerateSlots expands the requested templates over an inclusive date range.
// Each calendar day whose weekday matches a template yields one slot at the
// template's clock times. Existing (template, start) pairs are skipped, or
// replaced when overwrite is set and the old slot has no bookings, so the
// expansion is idempotent. The whole batch commits or none of it does.
func (s *ScheduleService) GenerateSlots(ctx context.Context, input GenerateSlotsInput) (*GenerateSlotsResult, error) {
	if len(input.TemplateIDs) == 0 {
		return nil, ErrInvalidInput
	}
	startDate, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		return nil, ErrInvalidInput
	}
	endDate, err := time.Parse(dateLayout, input.EndDate)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if endDate.Before(startDate) {
		return nil, ErrInvalidInput
	}
	if endDate.Sub(startDate) > maxGenerationDays*24*time.Hour {
		return nil, ErrInvalidInput
	}

	templates, err := s.templateRepo.ListByIDs(ctx, input.TemplateIDs)
	if err != nil {
		return nil, err
	}
	if len(templates) != len(dedupeIDs(input.TemplateIDs)) {
		return nil, ErrNotFound
	}

	type window struct {
		start int
		end   int
	}
	windows := make(map[int64]window, len(templates))
	for _, template := range templates {
		start, err := parseClock(template.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(template.EndTime)
		if err != nil {
			return nil, err
		}
		windows[template.ID] = window{start: start, end: end}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)

	result := &GenerateSlotsResult{Slots: make([]models.ScheduleSlot, 0)}
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		for _, template := range templates {
			if int(day.Weekday()) != template.DayOfWeek {
				continue
			}
			w := windows[template.ID]
			slotStart, slotEnd := slotWindow(day, w.start, w.end)

			if input.OverwriteExisting {
				if _, err := txSlotRepo.DeleteIfUnreferenced(ctx, template.ID, slotStart); err != nil {
					return nil, err
				}
			}
			exists, err := txSlotRepo.ExistsByTemplateAndStart(ctx, template.ID, slotStart)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped++
				continue
			}

			slot := &models.ScheduleSlot{
				ScheduleTemplateID: template.ID,
				StartTime:          slotStart,
				EndTime:            slotEnd,
				Capacity:           template.Capacity,
				IsAvailable:        template.IsAvailable,
			}
			if err := txSlotRepo.Insert(ctx, slot); err != nil {
				return nil, err
			}
			result.Created++
			result.Slots = append(result.Slots, *slot)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
