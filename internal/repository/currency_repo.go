package repository

import (
	"context"

	"github.com/alirzan/SessionBookBack/internal/models"
)

type CurrencyRepository struct {
	db DBTX
}

func NewCurrencyRepository(db DBTX) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

const currencyColumns = "id, code, symbol, name, is_default, exchange_rate, created_at, updated_at"

func scanCurrency(row interface{ Scan(dest ...any) error }) (*models.Currency, error) {
	var currency models.Currency
	err := row.Scan(
		&currency.ID,
		&currency.Code,
		&currency.Symbol,
		&currency.Name,
		&currency.IsDefault,
		&currency.ExchangeRate,
		&currency.CreatedAt,
		&currency.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func (r *CurrencyRepository) List(ctx context.Context) ([]models.Currency, error) {
	query := `
		SELECT ` + currencyColumns + `
		FROM currencies
		ORDER BY is_default DESC, code ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	currencies := make([]models.Currency, 0)
	for rows.Next() {
		currency, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		currencies = append(currencies, *currency)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (r *CurrencyRepository) GetByID(ctx context.Context, id int64) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE id = $1`
	return scanCurrency(r.db.QueryRow(ctx, query, id))
}

func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE code = $1`
	return scanCurrency(r.db.QueryRow(ctx, query, code))
}

func (r *CurrencyRepository) GetDefault(ctx context.Context) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE is_default`
	return scanCurrency(r.db.QueryRow(ctx, query))
}

// GetDefaultForUpdate locks the default-currency row so concurrent upserts
// cannot race over the single-default invariant.
func (r *CurrencyRepository) GetDefaultForUpdate(ctx context.Context) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE is_default FOR UPDATE`
	return scanCurrency(r.db.QueryRow(ctx, query))
}

func (r *CurrencyRepository) Insert(ctx context.Context, currency *models.Currency) error {
	query := `
		INSERT INTO currencies (code, symbol, name, is_default, exchange_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		currency.Code,
		currency.Symbol,
		currency.Name,
		currency.IsDefault,
		currency.ExchangeRate,
	).Scan(&currency.ID, &currency.CreatedAt, &currency.UpdatedAt)
}

func (r *CurrencyRepository) Update(ctx context.Context, currency *models.Currency) error {
	query := `
		UPDATE currencies
		SET symbol = $2, name = $3, is_default = $4, exchange_rate = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		currency.ID,
		currency.Symbol,
		currency.Name,
		currency.IsDefault,
		currency.ExchangeRate,
	).Scan(&currency.UpdatedAt)
}

// ClearDefault unsets is_default on every currency except the given one. It is
// always followed by marking that currency default in the same transaction.
func (r *CurrencyRepository) ClearDefault(ctx context.Context, exceptID int64) error {
	query := `UPDATE currencies SET is_default = FALSE, updated_at = NOW() WHERE is_default AND id <> $1`
	_, err := r.db.Exec(ctx, query, exceptID)
	return err
}
