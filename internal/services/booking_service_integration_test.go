package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationBookingService(pool *pgxpool.Pool) *BookingService {
	return NewBookingService(
		pool,
		repository.NewBookingRepository(pool),
		repository.NewSlotRepository(pool),
		repository.NewUserPackageRepository(pool),
		repository.NewPackageRepository(pool),
		repository.NewPriceRepository(pool),
		3*time.Second,
	)
}

func newIntegrationScheduleService(pool *pgxpool.Pool) *ScheduleService {
	return NewScheduleService(
		pool,
		repository.NewTemplateRepository(pool),
		repository.NewSlotRepository(pool),
		repository.NewPackageRepository(pool),
	)
}

type bookingFixture struct {
	clientID      int64
	currencyID    int64
	definitionID  int64
	priceID       int64
	userPackageID int64
	templateID    int64
	slotID        int64
}

// seedBookingFixture builds a client with a five session package and a single
// generated slot of the given capacity on 2030-06-03, a Monday.
func seedBookingFixture(t *testing.T, ctx context.Context, pool *pgxpool.Pool, capacity, sessions int) bookingFixture {
	t.Helper()

	tag := time.Now().UnixNano()
	var f bookingFixture

	err := pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, 'x', 'client') RETURNING id
	`, fmt.Sprintf("client+%d@example.com", tag)).Scan(&f.clientID)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO currencies (code, symbol, name, is_default, exchange_rate)
		VALUES ($1, '$', 'Test Currency', FALSE, 1.0) RETURNING id
	`, fmt.Sprintf("T%d", tag%1000000)).Scan(&f.currencyID)
	if err != nil {
		t.Fatalf("seed currency: %v", err)
	}

	var durationID int64
	if err := pool.QueryRow(ctx, `SELECT id FROM session_durations ORDER BY id LIMIT 1`).Scan(&durationID); err != nil {
		t.Fatalf("seed duration lookup: %v", err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO package_definitions (name, sessions_count, session_duration_id, package_type)
		VALUES ($1, $2, $3, 'individual') RETURNING id
	`, fmt.Sprintf("Starter %d", tag), sessions, durationID).Scan(&f.definitionID)
	if err != nil {
		t.Fatalf("seed definition: %v", err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO package_prices (package_definition_id, currency_id, price, pricing_mode)
		VALUES ($1, $2, 100.00, 'custom') RETURNING id
	`, f.definitionID, f.currencyID).Scan(&f.priceID)
	if err != nil {
		t.Fatalf("seed price: %v", err)
	}

	pkg, err := repository.NewUserPackageRepository(pool).Create(ctx, repository.CreateUserPackageInput{
		ClientID:       f.clientID,
		PackagePriceID: f.priceID,
		SessionsCount:  sessions,
	})
	if err != nil {
		t.Fatalf("seed user package: %v", err)
	}
	f.userPackageID = pkg.ID

	err = pool.QueryRow(ctx, `
		INSERT INTO schedule_templates (day_of_week, start_time, end_time, capacity)
		VALUES (1, '09:00', '10:00', $1) RETURNING id
	`, capacity).Scan(&f.templateID)
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}

	result, err := newIntegrationScheduleService(pool).GenerateSlots(ctx, GenerateSlotsInput{
		TemplateIDs: []int64{f.templateID},
		StartDate:   "2030-06-03",
		EndDate:     "2030-06-03",
	})
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected 1 generated slot, got %d", result.Created)
	}
	f.slotID = result.Slots[0].ID

	return f
}

func cleanupBookingFixture(t *testing.T, ctx context.Context, pool *pgxpool.Pool, f bookingFixture) {
	t.Helper()

	statements := []struct {
		query string
		arg   any
	}{
		{`DELETE FROM bookings WHERE user_package_id = $1`, f.userPackageID},
		{`DELETE FROM user_packages WHERE id = $1`, f.userPackageID},
		{`DELETE FROM schedule_slots WHERE schedule_template_id = $1`, f.templateID},
		{`DELETE FROM schedule_templates WHERE id = $1`, f.templateID},
		{`DELETE FROM package_prices WHERE id = $1`, f.priceID},
		{`DELETE FROM package_definitions WHERE id = $1`, f.definitionID},
		{`DELETE FROM currencies WHERE id = $1`, f.currencyID},
		{`DELETE FROM users WHERE id = $1`, f.clientID},
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt.query, stmt.arg); err != nil {
			t.Errorf("cleanup %q: %v", stmt.query, err)
		}
	}
}

func TestBookingLifecycleHoldsCapacityAndSessions(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	f := seedBookingFixture(t, ctx, pool, 2, 5)
	t.Cleanup(func() { cleanupBookingFixture(t, ctx, pool, f) })

	input := CreateBookingInput{
		ClientID:       f.clientID,
		ScheduleSlotID: f.slotID,
		UserPackageID:  f.userPackageID,
		BookingType:    models.BookingTypeIndividual,
	}

	first, err := service.CreateBooking(ctx, f.clientID, models.RoleClient, input)
	if err != nil {
		t.Fatalf("first CreateBooking: %v", err)
	}
	if first.Status != models.BookingStatusPending {
		t.Fatalf("expected pending booking, got %q", first.Status)
	}
	if !first.TotalAmount.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected default amount 20.00, got %s", first.TotalAmount)
	}

	if _, err := service.CreateBooking(ctx, f.clientID, models.RoleClient, input); err != nil {
		t.Fatalf("second CreateBooking: %v", err)
	}

	if _, err := service.CreateBooking(ctx, f.clientID, models.RoleClient, input); err != ErrSlotFull {
		t.Fatalf("expected ErrSlotFull on full slot, got %v", err)
	}

	slot, err := repository.NewSlotRepository(pool).GetByID(ctx, f.slotID)
	if err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.BookedCount != 2 {
		t.Fatalf("expected booked_count 2, got %d", slot.BookedCount)
	}
	pkg, err := repository.NewUserPackageRepository(pool).GetByID(ctx, f.userPackageID)
	if err != nil {
		t.Fatalf("load package: %v", err)
	}
	if pkg.SessionsRemaining != 3 || pkg.SessionsUsed != 2 {
		t.Fatalf("expected 3 remaining / 2 used, got %d / %d", pkg.SessionsRemaining, pkg.SessionsUsed)
	}

	cancelStatus := "cancelled"
	cancelled, err := service.UpdateBooking(ctx, f.clientID, models.RoleClient, first.ID, UpdateBookingInput{
		Status: &cancelStatus,
	})
	if err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled booking with timestamp, got %+v", cancelled)
	}

	// A repeated cancellation must not release the slot or restore a session
	// a second time.
	if _, err := service.UpdateBooking(ctx, f.clientID, models.RoleClient, first.ID, UpdateBookingInput{
		Status: &cancelStatus,
	}); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}

	slot, err = repository.NewSlotRepository(pool).GetByID(ctx, f.slotID)
	if err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if slot.BookedCount != 1 {
		t.Fatalf("expected booked_count 1 after cancel, got %d", slot.BookedCount)
	}
	pkg, err = repository.NewUserPackageRepository(pool).GetByID(ctx, f.userPackageID)
	if err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if pkg.SessionsRemaining != 4 || pkg.SessionsUsed != 1 {
		t.Fatalf("expected 4 remaining / 1 used after cancel, got %d / %d",
			pkg.SessionsRemaining, pkg.SessionsUsed)
	}
}

func TestGenerateSlotsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationScheduleService(pool)

	f := seedBookingFixture(t, ctx, pool, 1, 1)
	t.Cleanup(func() { cleanupBookingFixture(t, ctx, pool, f) })

	result, err := service.GenerateSlots(ctx, GenerateSlotsInput{
		TemplateIDs: []int64{f.templateID},
		StartDate:   "2030-06-03",
		EndDate:     "2030-06-03",
	})
	if err != nil {
		t.Fatalf("second GenerateSlots: %v", err)
	}
	if result.Created != 0 || result.Skipped != 1 {
		t.Fatalf("expected 0 created / 1 skipped on rerun, got %d / %d",
			result.Created, result.Skipped)
	}
}

func TestConcurrentBookingsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	f := seedBookingFixture(t, ctx, pool, 1, 5)
	t.Cleanup(func() { cleanupBookingFixture(t, ctx, pool, f) })

	input := CreateBookingInput{
		ClientID:       f.clientID,
		ScheduleSlotID: f.slotID,
		UserPackageID:  f.userPackageID,
		BookingType:    models.BookingTypeIndividual,
	}

	const attempts = 4
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateBooking(ctx, f.clientID, models.RoleClient, input)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch err {
		case nil:
			succeeded++
		case ErrSlotFull, ErrContention:
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly 1 successful booking, got %d", succeeded)
	}

	slot, err := repository.NewSlotRepository(pool).GetByID(ctx, f.slotID)
	if err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.BookedCount != 1 {
		t.Fatalf("expected booked_count 1, got %d", slot.BookedCount)
	}
}
