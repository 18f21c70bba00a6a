package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func newIntegrationCurrencyService(pool *pgxpool.Pool) *CurrencyService {
	return NewCurrencyService(pool, repository.NewCurrencyRepository(pool))
}

func newIntegrationCatalogService(pool *pgxpool.Pool) *CatalogService {
	return NewCatalogService(
		pool,
		repository.NewPackageRepository(pool),
		repository.NewPriceRepository(pool),
		repository.NewCurrencyRepository(pool),
	)
}

// TestRateChangeRecomputesCalculatedPrice drives a base price of 100.00
// through a calculated target price at rate factor 0.85, then moves the
// target's exchange rate and checks the stored price followed: 85.00 first,
// 90.00 after the rate update commits.
func TestRateChangeRecomputesCalculatedPrice(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	currencyService := newIntegrationCurrencyService(pool)
	catalogService := newIntegrationCatalogService(pool)
	currencyRepo := repository.NewCurrencyRepository(pool)
	priceRepo := repository.NewPriceRepository(pool)

	tag := time.Now().UnixNano()

	// Reuse the ledger's default currency when one exists; derivation is
	// relative to its rate, so the expected amounts hold either way.
	base, err := currencyRepo.GetDefault(ctx)
	createdDefault := false
	if errors.Is(err, pgx.ErrNoRows) {
		base, err = currencyService.Upsert(ctx, UpsertCurrencyInput{
			Code:         fmt.Sprintf("B%d", tag%1000000),
			Symbol:       "$",
			Name:         "Base Currency",
			IsDefault:    true,
			ExchangeRate: decimal.NewFromInt(1),
		})
		createdDefault = true
	}
	if err != nil {
		t.Fatalf("default currency: %v", err)
	}

	target, err := currencyService.Upsert(ctx, UpsertCurrencyInput{
		Code:         fmt.Sprintf("T%d", tag%1000000),
		Symbol:       "€",
		Name:         "Target Currency",
		ExchangeRate: base.ExchangeRate.Mul(decimal.RequireFromString("0.85")),
	})
	if err != nil {
		t.Fatalf("upsert target currency: %v", err)
	}

	var durationID int64
	if err := pool.QueryRow(ctx, `SELECT id FROM session_durations ORDER BY id LIMIT 1`).Scan(&durationID); err != nil {
		t.Fatalf("duration lookup: %v", err)
	}
	var definitionID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO package_definitions (name, sessions_count, session_duration_id, package_type)
		VALUES ($1, 10, $2, 'individual') RETURNING id
	`, fmt.Sprintf("Derived %d", tag), durationID).Scan(&definitionID)
	if err != nil {
		t.Fatalf("seed definition: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM package_prices WHERE package_definition_id = $1`, definitionID)
		_, _ = pool.Exec(ctx, `DELETE FROM package_definitions WHERE id = $1`, definitionID)
		_, _ = pool.Exec(ctx, `DELETE FROM currencies WHERE id = $1`, target.ID)
		if createdDefault {
			_, _ = pool.Exec(ctx, `DELETE FROM currencies WHERE id = $1`, base.ID)
		}
	})

	basePrice := decimal.RequireFromString("100.00")
	if _, err := catalogService.SetPrice(ctx, SetPackagePriceInput{
		PackageDefinitionID: definitionID,
		CurrencyID:          base.ID,
		Price:               &basePrice,
		PricingMode:         models.PricingModeCustom,
	}); err != nil {
		t.Fatalf("set base price: %v", err)
	}

	derived, err := catalogService.SetPrice(ctx, SetPackagePriceInput{
		PackageDefinitionID: definitionID,
		CurrencyID:          target.ID,
		PricingMode:         models.PricingModeCalculated,
	})
	if err != nil {
		t.Fatalf("set calculated price: %v", err)
	}
	if !derived.Price.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected derived price 85.00, got %s", derived.Price)
	}

	if _, err := currencyService.Upsert(ctx, UpsertCurrencyInput{
		Code:         target.Code,
		Symbol:       target.Symbol,
		Name:         target.Name,
		ExchangeRate: base.ExchangeRate.Mul(decimal.RequireFromString("0.90")),
	}); err != nil {
		t.Fatalf("update target rate: %v", err)
	}

	recomputed, err := priceRepo.GetActive(ctx, definitionID, target.ID)
	if err != nil {
		t.Fatalf("reload derived price: %v", err)
	}
	if !recomputed.Price.Equal(decimal.RequireFromString("90")) {
		t.Fatalf("expected recomputed price 90.00, got %s", recomputed.Price)
	}
	if recomputed.PricingMode != models.PricingModeCalculated {
		t.Fatalf("expected pricing mode to stay calculated, got %q", recomputed.PricingMode)
	}
}
