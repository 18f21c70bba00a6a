package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/alirzan/SessionBookBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubBookingService struct {
	createResult   *models.Booking
	createErr      error
	getResult      *models.BookingDetail
	getErr         error
	listResult     []models.Booking
	listTotal      int
	listErr        error
	updateResult   *models.Booking
	updateErr      error
	deleteErr      error
	lastActorID    int64
	lastRole       string
	lastBookingID  int64
	lastCreate     services.CreateBookingInput
	lastUpdate     services.UpdateBookingInput
	lastListFilter repository.BookingListFilter
}

func (s *stubBookingService) CreateBooking(_ context.Context, actorID int64, role string, input services.CreateBookingInput) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastCreate = input
	return s.createResult, s.createErr
}

func (s *stubBookingService) GetBooking(_ context.Context, actorID int64, role string, id int64) (*models.BookingDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = id
	return s.getResult, s.getErr
}

func (s *stubBookingService) ListBookings(_ context.Context, actorID int64, role string, filter repository.BookingListFilter) ([]models.Booking, int, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastListFilter = filter
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubBookingService) UpdateBooking(_ context.Context, actorID int64, role string, id int64, input services.UpdateBookingInput) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = id
	s.lastUpdate = input
	return s.updateResult, s.updateErr
}

func (s *stubBookingService) DeleteBooking(_ context.Context, id int64) error {
	s.lastBookingID = id
	return s.deleteErr
}

func newBookingTestApp(service *stubBookingService, role, userID string) *fiber.App {
	handler := &BookingHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/bookings", handler.Create)
	app.Get("/api/v1/bookings", handler.List)
	app.Get("/api/v1/bookings/:id", handler.Get)
	app.Put("/api/v1/bookings/:id", handler.Update)
	app.Delete("/api/v1/bookings/:id", handler.Delete)
	return app
}

func TestCreateBookingReturnsCreated(t *testing.T) {
	service := &stubBookingService{
		createResult: &models.Booking{ID: 31, ClientID: 42, Status: models.BookingStatusPending},
	}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"schedule_slot_id": 7,
		"user_package_id": 3,
		"booking_type": "individual"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", service.lastActorID)
	}
	if service.lastCreate.ScheduleSlotID != 7 || service.lastCreate.UserPackageID != 3 {
		t.Fatalf("unexpected create input: %+v", service.lastCreate)
	}
}

func TestCreateBookingMapsSlotFullToConflict(t *testing.T) {
	service := &stubBookingService{createErr: services.ErrSlotFull}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"schedule_slot_id": 7,
		"user_package_id": 3,
		"booking_type": "individual"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateBookingMapsNoSessionsToUnprocessable(t *testing.T) {
	service := &stubBookingService{createErr: services.ErrNoSessionsLeft}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"schedule_slot_id": 7,
		"user_package_id": 3,
		"booking_type": "individual"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateBookingMapsContentionToServiceUnavailable(t *testing.T) {
	service := &stubBookingService{createErr: services.ErrContention}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"schedule_slot_id": 7,
		"user_package_id": 3,
		"booking_type": "individual"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestListBookingsPassesFilterAndPagination(t *testing.T) {
	service := &stubBookingService{
		listResult: []models.Booking{{ID: 5, Status: models.BookingStatusConfirmed}},
		listTotal:  23,
	}
	app := newBookingTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/bookings?status=confirmed&timeframe=upcoming&client_id=42&page=2&limit=10", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.Status != "confirmed" ||
		service.lastListFilter.Timeframe != "upcoming" ||
		service.lastListFilter.ClientID != 42 {
		t.Fatalf("unexpected filter: %+v", service.lastListFilter)
	}
	if service.lastListFilter.Page != 2 || service.lastListFilter.Limit != 10 {
		t.Fatalf("unexpected pagination: %+v", service.lastListFilter)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pagination.Total != 23 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination meta: %+v", body.Pagination)
	}
}

func TestGetBookingReturnsNotFound(t *testing.T) {
	service := &stubBookingService{getErr: pgx.ErrNoRows}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateBookingPassesStatus(t *testing.T) {
	service := &stubBookingService{
		updateResult: &models.Booking{ID: 31, Status: models.BookingStatusCancelled},
	}
	app := newBookingTestApp(service, models.RoleClient, "42")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/31", strings.NewReader(`{
		"status": "cancelled",
		"cancelled_reason": "client request"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 31 {
		t.Fatalf("expected booking id 31, got %d", service.lastBookingID)
	}
	if service.lastUpdate.Status == nil || *service.lastUpdate.Status != "cancelled" {
		t.Fatalf("unexpected update input: %+v", service.lastUpdate)
	}
	if service.lastUpdate.CancelledReason == nil || *service.lastUpdate.CancelledReason != "client request" {
		t.Fatalf("expected cancelled reason to pass through, got %+v", service.lastUpdate)
	}
}

func TestDeleteBookingReturnsNoContent(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/31", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 31 {
		t.Fatalf("expected booking id 31, got %d", service.lastBookingID)
	}
}
