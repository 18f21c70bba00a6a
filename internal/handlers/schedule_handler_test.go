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
)

type stubScheduleService struct {
	createResult    *models.ScheduleTemplate
	createErr       error
	updateResult    *models.ScheduleTemplate
	updateErr       error
	deleteErr       error
	listResult      []models.ScheduleTemplate
	listErr         error
	generateResult  *services.GenerateSlotsResult
	generateErr     error
	slotsResult     []models.ScheduleSlot
	slotsErr        error
	lastTemplateID  int64
	lastInput       services.TemplateInput
	lastGenerate    services.GenerateSlotsInput
	lastSlotsFilter repository.SlotListFilter
}

func (s *stubScheduleService) CreateTemplate(_ context.Context, input services.TemplateInput) (*models.ScheduleTemplate, error) {
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubScheduleService) UpdateTemplate(_ context.Context, id int64, input services.TemplateInput) (*models.ScheduleTemplate, error) {
	s.lastTemplateID = id
	s.lastInput = input
	return s.updateResult, s.updateErr
}

func (s *stubScheduleService) DeleteTemplate(_ context.Context, id int64) error {
	s.lastTemplateID = id
	return s.deleteErr
}

func (s *stubScheduleService) ListTemplates(_ context.Context) ([]models.ScheduleTemplate, error) {
	return s.listResult, s.listErr
}

func (s *stubScheduleService) GenerateSlots(_ context.Context, input services.GenerateSlotsInput) (*services.GenerateSlotsResult, error) {
	s.lastGenerate = input
	return s.generateResult, s.generateErr
}

func (s *stubScheduleService) ListSlots(_ context.Context, filter repository.SlotListFilter) ([]models.ScheduleSlot, error) {
	s.lastSlotsFilter = filter
	return s.slotsResult, s.slotsErr
}

func newScheduleTestApp(service *stubScheduleService) *fiber.App {
	handler := &ScheduleHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleAdmin)
		c.Locals("user_id", "1")
		return c.Next()
	})
	app.Post("/api/v1/schedule/templates", handler.CreateTemplate)
	app.Put("/api/v1/schedule/templates/:id", handler.UpdateTemplate)
	app.Delete("/api/v1/schedule/templates/:id", handler.DeleteTemplate)
	app.Get("/api/v1/schedule/templates", handler.ListTemplates)
	app.Post("/api/v1/schedule/generate", handler.GenerateSlots)
	app.Get("/api/v1/schedule/slots", handler.ListSlots)
	return app
}

func TestCreateTemplateReturnsCreated(t *testing.T) {
	service := &stubScheduleService{
		createResult: &models.ScheduleTemplate{ID: 7, DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"},
	}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/templates", strings.NewReader(`{
		"day_of_week": 1,
		"start_time": "09:00",
		"end_time": "10:00",
		"capacity": 4,
		"is_available": true
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
	if service.lastInput.DayOfWeek != 1 || service.lastInput.Capacity != 4 {
		t.Fatalf("unexpected input: %+v", service.lastInput)
	}
}

func TestCreateTemplateMapsOverlapToConflict(t *testing.T) {
	service := &stubScheduleService{createErr: services.ErrConflict}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/templates", strings.NewReader(`{
		"day_of_week": 1,
		"start_time": "10:30",
		"end_time": "11:30",
		"capacity": 4,
		"is_available": true
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

func TestDeleteTemplateMapsBookedSlotsToConflict(t *testing.T) {
	service := &stubScheduleService{deleteErr: services.ErrConflict}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/schedule/templates/7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastTemplateID != 7 {
		t.Fatalf("expected template id 7, got %d", service.lastTemplateID)
	}
}

func TestGenerateSlotsPassesRangeAndReturnsCounts(t *testing.T) {
	service := &stubScheduleService{
		generateResult: &services.GenerateSlotsResult{Created: 4, Skipped: 1},
	}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", strings.NewReader(`{
		"template_ids": [1, 2],
		"start_date": "2030-06-01",
		"end_date": "2030-06-30",
		"overwrite_existing": true
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
	if len(service.lastGenerate.TemplateIDs) != 2 ||
		service.lastGenerate.StartDate != "2030-06-01" ||
		service.lastGenerate.EndDate != "2030-06-30" ||
		!service.lastGenerate.OverwriteExisting {
		t.Fatalf("unexpected generate input: %+v", service.lastGenerate)
	}

	var body services.GenerateSlotsResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Created != 4 || body.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", body)
	}
}

func TestGenerateSlotsRejectsBadDates(t *testing.T) {
	service := &stubScheduleService{generateErr: services.ErrInvalidInput}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/generate", strings.NewReader(`{
		"template_ids": [1],
		"start_date": "06/01/2030",
		"end_date": "2030-06-30"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListSlotsParsesFilter(t *testing.T) {
	service := &stubScheduleService{
		slotsResult: []models.ScheduleSlot{{ID: 3, Capacity: 4}},
	}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/schedule/slots?template_id=7&available=true&from=2030-06-01T00:00:00Z", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSlotsFilter.TemplateID != 7 || !service.lastSlotsFilter.AvailableOnly {
		t.Fatalf("unexpected filter: %+v", service.lastSlotsFilter)
	}
	if service.lastSlotsFilter.From == nil {
		t.Fatalf("expected from filter to be set")
	}
}
