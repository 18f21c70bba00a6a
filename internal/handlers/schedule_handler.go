package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type ScheduleHandler struct {
	service scheduleApplicationService
}

type scheduleApplicationService interface {
	CreateTemplate(ctx context.Context, input services.TemplateInput) (*models.ScheduleTemplate, error)
	UpdateTemplate(ctx context.Context, id int64, input services.TemplateInput) (*models.ScheduleTemplate, error)
	DeleteTemplate(ctx context.Context, id int64) error
	ListTemplates(ctx context.Context) ([]models.ScheduleTemplate, error)
	GenerateSlots(ctx context.Context, input services.GenerateSlotsInput) (*services.GenerateSlotsResult, error)
	ListSlots(ctx context.Context, filter repository.SlotListFilter) ([]models.ScheduleSlot, error)
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

type templateRequest struct {
	DayOfWeek         int    `json:"day_of_week"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Capacity          int    `json:"capacity"`
	SessionDurationID *int64 `json:"session_duration_id"`
	IsAvailable       bool   `json:"is_available"`
	AutoAvailable     bool   `json:"auto_available"`
}

type generateSlotsRequest struct {
	TemplateIDs       []int64 `json:"template_ids"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	OverwriteExisting bool    `json:"overwrite_existing"`
}

func (r templateRequest) toInput() services.TemplateInput {
	return services.TemplateInput{
		DayOfWeek:         r.DayOfWeek,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Capacity:          r.Capacity,
		SessionDurationID: r.SessionDurationID,
		IsAvailable:       r.IsAvailable,
		AutoAvailable:     r.AutoAvailable,
	}
}

func (h *ScheduleHandler) CreateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	template, err := h.service.CreateTemplate(c.Context(), req.toInput())
	if err != nil {
		return mapScheduleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": template})
}

func (h *ScheduleHandler) UpdateTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template id"})
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	template, err := h.service.UpdateTemplate(c.Context(), id, req.toInput())
	if err != nil {
		return mapScheduleError(c, err)
	}
	return c.JSON(fiber.Map{"template": template})
}

func (h *ScheduleHandler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template id"})
	}
	if err := h.service.DeleteTemplate(c.Context(), id); err != nil {
		return mapScheduleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ScheduleHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.service.ListTemplates(c.Context())
	if err != nil {
		return mapScheduleError(c, err)
	}
	return c.JSON(fiber.Map{"templates": templates})
}

func (h *ScheduleHandler) GenerateSlots(c *fiber.Ctx) error {
	var req generateSlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.GenerateSlots(c.Context(), services.GenerateSlotsInput{
		TemplateIDs:       req.TemplateIDs,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		OverwriteExisting: req.OverwriteExisting,
	})
	if err != nil {
		return mapScheduleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *ScheduleHandler) ListSlots(c *fiber.Ctx) error {
	filter := repository.SlotListFilter{
		AvailableOnly: c.Query("available") == "true",
	}
	if raw := c.Query("template_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid template_id"})
		}
		filter.TemplateID = id
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "from must be a valid RFC3339 timestamp"})
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "to must be a valid RFC3339 timestamp"})
		}
		filter.To = &to
	}

	slots, err := h.service.ListSlots(c.Context(), filter)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return c.JSON(fiber.Map{"slots": slots})
}

func mapScheduleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Template overlaps an existing availability window"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process schedule request"})
	}
}
