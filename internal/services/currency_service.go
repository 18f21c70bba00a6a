package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CurrencyService struct {
	db           *pgxpool.Pool
	currencyRepo *repository.CurrencyRepository
}

func NewCurrencyService(db *pgxpool.Pool, currencyRepo *repository.CurrencyRepository) *CurrencyService {
	return &CurrencyService{db: db, currencyRepo: currencyRepo}
}

type UpsertCurrencyInput struct {
	Code         string
	Symbol       string
	Name         string
	IsDefault    bool
	ExchangeRate decimal.Decimal
}

// Upsert creates or updates the currency identified by code. Exactly one
// currency is the default at any time: promoting a currency demotes the
// previous default, and demoting the current default without a replacement is
// refused. Rate changes recompute the calculated prices that depend on them
// before the transaction commits.
func (s *CurrencyService) Upsert(ctx context.Context, input UpsertCurrencyInput) (*models.Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" || len(code) > 8 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
	}
	if !input.ExchangeRate.IsPositive() {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCurrencyRepo := repository.NewCurrencyRepository(tx)
	txPriceRepo := repository.NewPriceRepository(tx)

	currentDefault, err := txCurrencyRepo.GetDefaultForUpdate(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := txCurrencyRepo.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	isFirstCurrency := currentDefault == nil && existing == nil
	if isFirstCurrency && !input.IsDefault {
		return nil, ErrDefaultRequired
	}
	if existing != nil && existing.IsDefault && !input.IsDefault {
		// The only default cannot be unset; promote another currency instead.
		return nil, ErrDefaultRequired
	}

	// The partial unique index on is_default is checked per statement, so the
	// old default has to be cleared before the new one is written.
	defaultChanged := input.IsDefault &&
		currentDefault != nil &&
		(existing == nil || currentDefault.ID != existing.ID)
	if defaultChanged {
		var keepID int64
		if existing != nil {
			keepID = existing.ID
		}
		if err := txCurrencyRepo.ClearDefault(ctx, keepID); err != nil {
			return nil, err
		}
	}

	var currency *models.Currency
	rateChanged := true
	if existing == nil {
		currency = &models.Currency{
			Code:         code,
			Symbol:       strings.TrimSpace(input.Symbol),
			Name:         strings.TrimSpace(input.Name),
			IsDefault:    input.IsDefault,
			ExchangeRate: input.ExchangeRate,
		}
		if err := txCurrencyRepo.Insert(ctx, currency); err != nil {
			return nil, err
		}
	} else {
		rateChanged = !existing.ExchangeRate.Equal(input.ExchangeRate)
		existing.Symbol = strings.TrimSpace(input.Symbol)
		existing.Name = strings.TrimSpace(input.Name)
		existing.IsDefault = input.IsDefault
		existing.ExchangeRate = input.ExchangeRate
		if err := txCurrencyRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		currency = existing
	}

	if rateChanged || defaultChanged {
		// A new default or a moved rate invalidates derived prices: all of
		// them when the default itself changed, otherwise only this currency's.
		scope := currency.ID
		if currency.IsDefault {
			scope = 0
		}
		if err := recalculateDerivedPrices(ctx, txCurrencyRepo, txPriceRepo, scope); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return currency, nil
}

func (s *CurrencyService) List(ctx context.Context) ([]models.Currency, error) {
	return s.currencyRepo.List(ctx)
}
