package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type UserPackageHandler struct {
	service userPackageApplicationService
}

type userPackageApplicationService interface {
	Purchase(ctx context.Context, actorID int64, actorRole string, input services.PurchaseInput) (*models.UserPackage, error)
	List(ctx context.Context, actorID int64, actorRole string, clientID int64) ([]models.UserPackage, error)
	Get(ctx context.Context, actorID int64, actorRole string, id int64) (*models.UserPackage, error)
	Deactivate(ctx context.Context, actorID int64, actorRole string, id int64) (*models.UserPackage, error)
}

func NewUserPackageHandler(service *services.UserPackageService) *UserPackageHandler {
	return &UserPackageHandler{service: service}
}

type purchaseRequest struct {
	ClientID       int64 `json:"client_id"`
	PackagePriceID int64 `json:"package_price_id"`
}

func (h *UserPackageHandler) Purchase(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	pkg, err := h.service.Purchase(c.Context(), actorID, actorRole(c), services.PurchaseInput{
		ClientID:       req.ClientID,
		PackagePriceID: req.PackagePriceID,
	})
	if err != nil {
		return mapUserPackageError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_package": pkg})
}

func (h *UserPackageHandler) List(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var clientID int64
	if raw := c.Query("client_id"); raw != "" {
		clientID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client_id"})
		}
	}

	packages, err := h.service.List(c.Context(), actorID, actorRole(c), clientID)
	if err != nil {
		return mapUserPackageError(c, err)
	}
	return c.JSON(fiber.Map{"user_packages": packages})
}

func (h *UserPackageHandler) Get(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	pkg, err := h.service.Get(c.Context(), actorID, actorRole(c), id)
	if err != nil {
		return mapUserPackageError(c, err)
	}
	return c.JSON(fiber.Map{"user_package": pkg})
}

func (h *UserPackageHandler) Deactivate(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid package id"})
	}

	pkg, err := h.service.Deactivate(c.Context(), actorID, actorRole(c), id)
	if err != nil {
		return mapUserPackageError(c, err)
	}
	return c.JSON(fiber.Map{"user_package": pkg})
}

func mapUserPackageError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process package request"})
	}
}
