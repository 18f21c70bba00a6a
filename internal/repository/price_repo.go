package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/shopspring/decimal"
)

type PriceListFilter struct {
	PackageDefinitionID int64
	CurrencyID          int64
	ActiveOnly          bool
}

type PriceRepository struct {
	db DBTX
}

func NewPriceRepository(db DBTX) *PriceRepository {
	return &PriceRepository{db: db}
}

const priceColumns = "id, package_definition_id, currency_id, price, pricing_mode, is_active, created_at, updated_at"

func scanPrice(row interface{ Scan(dest ...any) error }) (*models.PackagePrice, error) {
	var price models.PackagePrice
	err := row.Scan(
		&price.ID,
		&price.PackageDefinitionID,
		&price.CurrencyID,
		&price.Price,
		&price.PricingMode,
		&price.IsActive,
		&price.CreatedAt,
		&price.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *PriceRepository) Insert(ctx context.Context, price *models.PackagePrice) error {
	query := `
		INSERT INTO package_prices (package_definition_id, currency_id, price, pricing_mode, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		price.PackageDefinitionID,
		price.CurrencyID,
		price.Price,
		price.PricingMode,
	).Scan(&price.ID, &price.IsActive, &price.CreatedAt, &price.UpdatedAt)
}

func (r *PriceRepository) GetByID(ctx context.Context, id int64) (*models.PackagePrice, error) {
	query := `SELECT ` + priceColumns + ` FROM package_prices WHERE id = $1`
	return scanPrice(r.db.QueryRow(ctx, query, id))
}

func (r *PriceRepository) GetActive(
	ctx context.Context,
	definitionID int64,
	currencyID int64,
) (*models.PackagePrice, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM package_prices
		WHERE package_definition_id = $1 AND currency_id = $2 AND is_active
	`
	return scanPrice(r.db.QueryRow(ctx, query, definitionID, currencyID))
}

// DeactivateActive retires the currently active price for the pair, keeping
// the row as history. Insert of the replacement follows in the same
// transaction so the at-most-one-active invariant holds.
func (r *PriceRepository) DeactivateActive(ctx context.Context, definitionID, currencyID int64) error {
	query := `
		UPDATE package_prices
		SET is_active = FALSE, updated_at = NOW()
		WHERE package_definition_id = $1 AND currency_id = $2 AND is_active
	`
	_, err := r.db.Exec(ctx, query, definitionID, currencyID)
	return err
}

func (r *PriceRepository) UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) error {
	query := `UPDATE package_prices SET price = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, amount)
	return err
}

func (r *PriceRepository) List(ctx context.Context, filter PriceListFilter) ([]models.PackagePrice, error) {
	args := []any{}
	whereParts := []string{}

	if filter.PackageDefinitionID > 0 {
		args = append(args, filter.PackageDefinitionID)
		whereParts = append(whereParts, fmt.Sprintf("package_definition_id = $%d", len(args)))
	}
	if filter.CurrencyID > 0 {
		args = append(args, filter.CurrencyID)
		whereParts = append(whereParts, fmt.Sprintf("currency_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		whereParts = append(whereParts, "is_active")
	}

	query := `SELECT ` + priceColumns + ` FROM package_prices`
	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}
	query += " ORDER BY package_definition_id ASC, currency_id ASC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]models.PackagePrice, 0)
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, *price)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

// ListActiveCalculated returns every active derived price, optionally
// restricted to one currency. Used when a base price or an exchange rate
// changes and the derived values must be recomputed in the same transaction.
func (r *PriceRepository) ListActiveCalculated(ctx context.Context, currencyID int64) ([]models.PackagePrice, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM package_prices
		WHERE pricing_mode = 'calculated' AND is_active
	`
	args := []any{}
	if currencyID > 0 {
		query += ` AND currency_id = $1`
		args = append(args, currencyID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]models.PackagePrice, 0)
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, *price)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *PriceRepository) CountByDefinition(ctx context.Context, definitionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM package_prices WHERE package_definition_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, definitionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
