package services

import (
	"context"
	"errors"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// derivePrice converts a default-currency price into a target currency:
// base * (target_rate / default_rate), rounded to 2 decimals.
func derivePrice(base, defaultRate, targetRate decimal.Decimal) decimal.Decimal {
	return base.Mul(targetRate).Div(defaultRate).Round(2)
}

// recalculateDerivedPrices refreshes every active calculated price, or only
// those in one currency when currencyID > 0. Runs inside the caller's
// transaction so a base-price or rate change and its downstream recomputation
// commit together. Calculated prices whose package lacks an active
// default-currency price are left untouched.
func recalculateDerivedPrices(
	ctx context.Context,
	currencyRepo *repository.CurrencyRepository,
	priceRepo *repository.PriceRepository,
	currencyID int64,
) error {
	defaultCurrency, err := currencyRepo.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	derived, err := priceRepo.ListActiveCalculated(ctx, currencyID)
	if err != nil {
		return err
	}
	if len(derived) == 0 {
		return nil
	}

	rates := map[int64]decimal.Decimal{defaultCurrency.ID: defaultCurrency.ExchangeRate}
	basePrices := map[int64]*models.PackagePrice{}

	for _, price := range derived {
		if price.CurrencyID == defaultCurrency.ID {
			// A derived price in the default currency would be
			// self-referential; skip it.
			continue
		}

		rate, ok := rates[price.CurrencyID]
		if !ok {
			currency, err := currencyRepo.GetByID(ctx, price.CurrencyID)
			if err != nil {
				return err
			}
			rate = currency.ExchangeRate
			rates[price.CurrencyID] = rate
		}

		base, seen := basePrices[price.PackageDefinitionID]
		if !seen {
			base, err = priceRepo.GetActive(ctx, price.PackageDefinitionID, defaultCurrency.ID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			basePrices[price.PackageDefinitionID] = base
		}
		if base == nil {
			continue
		}

		next := derivePrice(base.Price, defaultCurrency.ExchangeRate, rate)
		if next.Equal(price.Price) {
			continue
		}
		if err := priceRepo.UpdateAmount(ctx, price.ID, next); err != nil {
			return err
		}
	}
	return nil
}
