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

type CatalogService struct {
	db           *pgxpool.Pool
	packageRepo  *repository.PackageRepository
	priceRepo    *repository.PriceRepository
	currencyRepo *repository.CurrencyRepository
}

func NewCatalogService(
	db *pgxpool.Pool,
	packageRepo *repository.PackageRepository,
	priceRepo *repository.PriceRepository,
	currencyRepo *repository.CurrencyRepository,
) *CatalogService {
	return &CatalogService{
		db:           db,
		packageRepo:  packageRepo,
		priceRepo:    priceRepo,
		currencyRepo: currencyRepo,
	}
}

type CreatePackageInput struct {
	Name              string
	Description       *string
	SessionsCount     int
	SessionDurationID int64
	PackageType       string
	MaxGroupSize      *int
}

type UpdatePackageInput struct {
	Name         *string
	Description  *string
	MaxGroupSize *int
	IsActive     *bool
}

type SetPackagePriceInput struct {
	PackageDefinitionID int64
	CurrencyID          int64
	Price               *decimal.Decimal
	PricingMode         string
}

func validPackageType(packageType string) bool {
	switch packageType {
	case models.PackageTypeIndividual, models.PackageTypeGroup, models.PackageTypeMixed:
		return true
	default:
		return false
	}
}

func (s *CatalogService) CreatePackage(ctx context.Context, input CreatePackageInput) (*models.PackageDefinition, error) {
	if strings.TrimSpace(input.Name) == "" || input.SessionsCount <= 0 {
		return nil, ErrInvalidInput
	}
	if !validPackageType(input.PackageType) {
		return nil, ErrInvalidInput
	}
	if input.PackageType == models.PackageTypeGroup {
		if input.MaxGroupSize == nil || *input.MaxGroupSize < 1 {
			return nil, ErrInvalidInput
		}
	}

	if _, err := s.packageRepo.GetDuration(ctx, input.SessionDurationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.packageRepo.Create(ctx, repository.CreatePackageDefinitionInput{
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		SessionsCount:     input.SessionsCount,
		SessionDurationID: input.SessionDurationID,
		PackageType:       input.PackageType,
		MaxGroupSize:      input.MaxGroupSize,
	})
}

// UpdatePackage applies a partial update. Once any user package was bought
// against the definition, everything except is_active is frozen.
func (s *CatalogService) UpdatePackage(ctx context.Context, id int64, input UpdatePackageInput) (*models.PackageDefinition, error) {
	if _, err := s.packageRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidInput
	}
	if input.MaxGroupSize != nil && *input.MaxGroupSize < 1 {
		return nil, ErrInvalidInput
	}

	touchesFrozenFields := input.Name != nil || input.Description != nil || input.MaxGroupSize != nil
	if touchesFrozenFields {
		referenced, err := s.packageRepo.CountUserPackages(ctx, id)
		if err != nil {
			return nil, err
		}
		if referenced > 0 {
			return nil, ErrConflict
		}
	}

	return s.packageRepo.UpdatePartial(ctx, id, repository.UpdatePackageDefinitionInput{
		Name:         input.Name,
		Description:  input.Description,
		MaxGroupSize: input.MaxGroupSize,
		IsActive:     input.IsActive,
	})
}

func (s *CatalogService) DeletePackage(ctx context.Context, id int64) error {
	priceCount, err := s.priceRepo.CountByDefinition(ctx, id)
	if err != nil {
		return err
	}
	if priceCount > 0 {
		return ErrConflict
	}
	purchased, err := s.packageRepo.CountUserPackages(ctx, id)
	if err != nil {
		return err
	}
	if purchased > 0 {
		return ErrConflict
	}

	deleted, err := s.packageRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) ListPackages(ctx context.Context, activeOnly bool) ([]models.PackageDefinition, error) {
	return s.packageRepo.List(ctx, activeOnly)
}

func (s *CatalogService) ListDurations(ctx context.Context) ([]models.SessionDuration, error) {
	return s.packageRepo.ListDurations(ctx)
}

// SetPrice activates a new price for (package, currency), retiring the
// previous active one. A custom price must be supplied; a calculated price is
// derived from the package's active default-currency price. Setting the price
// in the default currency recomputes the package's derived prices in the same
// transaction.
func (s *CatalogService) SetPrice(ctx context.Context, input SetPackagePriceInput) (*models.PackagePrice, error) {
	if input.PricingMode != models.PricingModeCustom && input.PricingMode != models.PricingModeCalculated {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPackageRepo := repository.NewPackageRepository(tx)
	txPriceRepo := repository.NewPriceRepository(tx)
	txCurrencyRepo := repository.NewCurrencyRepository(tx)

	if _, err := txPackageRepo.GetByID(ctx, input.PackageDefinitionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	currency, err := txCurrencyRepo.GetByID(ctx, input.CurrencyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var amount decimal.Decimal
	switch input.PricingMode {
	case models.PricingModeCustom:
		if input.Price == nil || input.Price.IsNegative() {
			return nil, ErrInvalidInput
		}
		amount = input.Price.Round(2)
	case models.PricingModeCalculated:
		defaultCurrency, err := txCurrencyRepo.GetDefault(ctx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNoBasePrice
			}
			return nil, err
		}
		if currency.ID == defaultCurrency.ID {
			// The default-currency price is the base everything else is
			// derived from; it cannot itself be calculated.
			return nil, ErrInvalidInput
		}
		base, err := txPriceRepo.GetActive(ctx, input.PackageDefinitionID, defaultCurrency.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNoBasePrice
			}
			return nil, err
		}
		amount = derivePrice(base.Price, defaultCurrency.ExchangeRate, currency.ExchangeRate)
	}

	if err := txPriceRepo.DeactivateActive(ctx, input.PackageDefinitionID, input.CurrencyID); err != nil {
		return nil, err
	}

	price := &models.PackagePrice{
		PackageDefinitionID: input.PackageDefinitionID,
		CurrencyID:          input.CurrencyID,
		Price:               amount,
		PricingMode:         input.PricingMode,
	}
	if err := txPriceRepo.Insert(ctx, price); err != nil {
		return nil, err
	}

	if currency.IsDefault {
		if err := recalculateDerivedPrices(ctx, txCurrencyRepo, txPriceRepo, 0); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return price, nil
}

func (s *CatalogService) ListPrices(ctx context.Context, filter repository.PriceListFilter) ([]models.PackagePrice, error) {
	return s.priceRepo.List(ctx, filter)
}
