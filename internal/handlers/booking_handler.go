package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, actorID int64, actorRole string, input services.CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, actorID int64, actorRole string, id int64) (*models.BookingDetail, error)
	ListBookings(ctx context.Context, actorID int64, actorRole string, filter repository.BookingListFilter) ([]models.Booking, int, error)
	UpdateBooking(ctx context.Context, actorID int64, actorRole string, id int64, input services.UpdateBookingInput) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	ClientID       int64            `json:"client_id"`
	ScheduleSlotID int64            `json:"schedule_slot_id"`
	UserPackageID  int64            `json:"user_package_id"`
	BookingType    string           `json:"booking_type"`
	GroupSize      *int             `json:"group_size"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	Notes          *string          `json:"notes"`
}

type updateBookingRequest struct {
	Status          *string          `json:"status"`
	GroupSize       *int             `json:"group_size"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount"`
	Notes           *string          `json:"notes"`
	CancelledReason *string          `json:"cancelled_reason"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.CreateBooking(c.Context(), actorID, actorRole(c), services.CreateBookingInput{
		ClientID:       req.ClientID,
		ScheduleSlotID: req.ScheduleSlotID,
		UserPackageID:  req.UserPackageID,
		BookingType:    strings.TrimSpace(req.BookingType),
		GroupSize:      req.GroupSize,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	detail, err := h.service.GetBooking(c.Context(), actorID, actorRole(c), id)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"booking": detail})
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit := parsePageLimit(c)
	filter := repository.BookingListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: strings.TrimSpace(c.Query("timeframe")),
		Page:      page,
		Limit:     limit,
	}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client_id"})
		}
		filter.ClientID = clientID
	}
	if raw := c.Query("slot_id"); raw != "" {
		slotID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || slotID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot_id"})
		}
		filter.SlotID = slotID
	}

	bookings, total, err := h.service.ListBookings(c.Context(), actorID, actorRole(c), filter)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{
		"bookings":   bookings,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) Update(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req updateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.UpdateBooking(c.Context(), actorID, actorRole(c), id, services.UpdateBookingInput{
		Status:          req.Status,
		GroupSize:       req.GroupSize,
		TotalAmount:     req.TotalAmount,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
		CancelledReason: req.CancelledReason,
	})
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}
	if err := h.service.DeleteBooking(c.Context(), id); err != nil {
		return mapBookingError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrSlotFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, services.ErrPackageInactive),
		errors.Is(err, services.ErrNoSessionsLeft),
		errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrContention):
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Booking is contended, retry shortly"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
