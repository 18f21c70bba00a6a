package handlers

import (
	"context"
	"errors"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CurrencyHandler struct {
	service currencyApplicationService
}

type currencyApplicationService interface {
	Upsert(ctx context.Context, input services.UpsertCurrencyInput) (*models.Currency, error)
	List(ctx context.Context) ([]models.Currency, error)
}

func NewCurrencyHandler(service *services.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{service: service}
}

type upsertCurrencyRequest struct {
	Code         string          `json:"code"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	IsDefault    bool            `json:"is_default"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

func (h *CurrencyHandler) Upsert(c *fiber.Ctx) error {
	var req upsertCurrencyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	currency, err := h.service.Upsert(c.Context(), services.UpsertCurrencyInput{
		Code:         req.Code,
		Symbol:       req.Symbol,
		Name:         req.Name,
		IsDefault:    req.IsDefault,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		return mapCurrencyError(c, err)
	}
	return c.JSON(fiber.Map{"currency": currency})
}

func (h *CurrencyHandler) List(c *fiber.Ctx) error {
	currencies, err := h.service.List(c.Context())
	if err != nil {
		return mapCurrencyError(c, err)
	}
	return c.JSON(fiber.Map{"currencies": currencies})
}

func mapCurrencyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDefaultRequired):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Exactly one currency must be the default"})
	case errors.Is(err, services.ErrContention):
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Currency is being updated, retry shortly"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process currency request"})
	}
}
