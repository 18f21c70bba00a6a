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

type CatalogHandler struct {
	service catalogApplicationService
}

type catalogApplicationService interface {
	CreatePackage(ctx context.Context, input services.CreatePackageInput) (*models.PackageDefinition, error)
	UpdatePackage(ctx context.Context, id int64, input services.UpdatePackageInput) (*models.PackageDefinition, error)
	DeletePackage(ctx context.Context, id int64) error
	ListPackages(ctx context.Context, activeOnly bool) ([]models.PackageDefinition, error)
	ListDurations(ctx context.Context) ([]models.SessionDuration, error)
	SetPrice(ctx context.Context, input services.SetPackagePriceInput) (*models.PackagePrice, error)
	ListPrices(ctx context.Context, filter repository.PriceListFilter) ([]models.PackagePrice, error)
}

func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type createPackageRequest struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	SessionsCount     int     `json:"sessions_count"`
	SessionDurationID int64   `json:"session_duration_id"`
	PackageType       string  `json:"package_type"`
	MaxGroupSize      *int    `json:"max_group_size"`
}

type updatePackageRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	MaxGroupSize *int    `json:"max_group_size"`
	IsActive     *bool   `json:"is_active"`
}

type setPriceRequest struct {
	PackageDefinitionID int64            `json:"package_definition_id"`
	CurrencyID          int64            `json:"currency_id"`
	Price               *decimal.Decimal `json:"price"`
	PricingMode         string           `json:"pricing_mode"`
}

func (h *CatalogHandler) CreatePackage(c *fiber.Ctx) error {
	var req createPackageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	definition, err := h.service.CreatePackage(c.Context(), services.CreatePackageInput{
		Name:              req.Name,
		Description:       req.Description,
		SessionsCount:     req.SessionsCount,
		SessionDurationID: req.SessionDurationID,
		PackageType:       req.PackageType,
		MaxGroupSize:      req.MaxGroupSize,
	})
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"package": definition})
}

func (h *CatalogHandler) UpdatePackage(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	var req updatePackageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	definition, err := h.service.UpdatePackage(c.Context(), id, services.UpdatePackageInput{
		Name:         req.Name,
		Description:  req.Description,
		MaxGroupSize: req.MaxGroupSize,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"package": definition})
}

func (h *CatalogHandler) DeletePackage(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}
	if err := h.service.DeletePackage(c.Context(), id); err != nil {
		return mapCatalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListPackages(c *fiber.Ctx) error {
	activeOnly := strings.EqualFold(c.Query("active"), "true")
	packages, err := h.service.ListPackages(c.Context(), activeOnly)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"packages": packages})
}

func (h *CatalogHandler) ListDurations(c *fiber.Ctx) error {
	durations, err := h.service.ListDurations(c.Context())
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"durations": durations})
}

func (h *CatalogHandler) SetPrice(c *fiber.Ctx) error {
	var req setPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	price, err := h.service.SetPrice(c.Context(), services.SetPackagePriceInput{
		PackageDefinitionID: req.PackageDefinitionID,
		CurrencyID:          req.CurrencyID,
		Price:               req.Price,
		PricingMode:         req.PricingMode,
	})
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"price": price})
}

func (h *CatalogHandler) ListPrices(c *fiber.Ctx) error {
	filter := repository.PriceListFilter{
		ActiveOnly: strings.EqualFold(c.Query("active"), "true"),
	}
	if raw := c.Query("package_definition_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package_definition_id"})
		}
		filter.PackageDefinitionID = id
	}
	if raw := c.Query("currency_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid currency_id"})
		}
		filter.CurrencyID = id
	}

	prices, err := h.service.ListPrices(c.Context(), filter)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"prices": prices})
}

func mapCatalogError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoBasePrice):
		return c.Status(fiber.StatusPreconditionFailed).
			JSON(fiber.Map{"error": "A base price in the default currency is required first"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process catalog request"})
	}
}
