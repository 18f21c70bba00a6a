package repository

import (
	"context"

	"github.com/alirzan/SessionBookBack/internal/models"
)

type CreateUserPackageInput struct {
	ClientID       int64
	PackagePriceID int64
	SessionsCount  int
}

type UserPackageRepository struct {
	db DBTX
}

func NewUserPackageRepository(db DBTX) *UserPackageRepository {
	return &UserPackageRepository{db: db}
}

const userPackageColumns = `id, client_id, package_price_id, sessions_remaining,
	   sessions_used, is_active, created_at, updated_at`

func scanUserPackage(row interface{ Scan(dest ...any) error }) (*models.UserPackage, error) {
	var pkg models.UserPackage
	err := row.Scan(
		&pkg.ID,
		&pkg.ClientID,
		&pkg.PackagePriceID,
		&pkg.SessionsRemaining,
		&pkg.SessionsUsed,
		&pkg.IsActive,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *UserPackageRepository) Create(
	ctx context.Context,
	input CreateUserPackageInput,
) (*models.UserPackage, error) {
	query := `
		INSERT INTO user_packages (client_id, package_price_id, sessions_remaining, sessions_used)
		VALUES ($1, $2, $3, 0)
		RETURNING ` + userPackageColumns + `
	`
	return scanUserPackage(r.db.QueryRow(ctx, query, input.ClientID, input.PackagePriceID, input.SessionsCount))
}

func (r *UserPackageRepository) GetByID(ctx context.Context, id int64) (*models.UserPackage, error) {
	query := `SELECT ` + userPackageColumns + ` FROM user_packages WHERE id = $1`
	return scanUserPackage(r.db.QueryRow(ctx, query, id))
}

func (r *UserPackageRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.UserPackage, error) {
	query := `SELECT ` + userPackageColumns + ` FROM user_packages WHERE id = $1 FOR UPDATE`
	return scanUserPackage(r.db.QueryRow(ctx, query, id))
}

func (r *UserPackageRepository) List(ctx context.Context, clientID int64) ([]models.UserPackage, error) {
	query := `SELECT ` + userPackageColumns + ` FROM user_packages`
	args := []any{}
	if clientID > 0 {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := make([]models.UserPackage, 0)
	for rows.Next() {
		pkg, err := scanUserPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packages, nil
}

// ConsumeSession moves one session from remaining to used. Guarded so a
// drained or inactive package is never decremented below zero; consuming the
// last session deactivates the package. Returns false when nothing was left
// to consume.
func (r *UserPackageRepository) ConsumeSession(ctx context.Context, id int64) (*models.UserPackage, bool, error) {
	query := `
		UPDATE user_packages
		SET sessions_remaining = sessions_remaining - 1,
			sessions_used = sessions_used + 1,
			is_active = sessions_remaining > 1,
			updated_at = NOW()
		WHERE id = $1 AND is_active AND sessions_remaining > 0
		RETURNING ` + userPackageColumns + `
	`
	pkg, err := scanUserPackage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return pkg, true, nil
}

// RestoreSession gives one consumed session back, flooring sessions_used at
// zero. A package that was drained to zero comes back active.
func (r *UserPackageRepository) RestoreSession(ctx context.Context, id int64) (*models.UserPackage, error) {
	query := `
		UPDATE user_packages
		SET sessions_remaining = sessions_remaining + 1,
			sessions_used = GREATEST(sessions_used - 1, 0),
			is_active = CASE WHEN sessions_remaining = 0 THEN TRUE ELSE is_active END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userPackageColumns + `
	`
	return scanUserPackage(r.db.QueryRow(ctx, query, id))
}

func (r *UserPackageRepository) Deactivate(ctx context.Context, id int64) (*models.UserPackage, error) {
	query := `
		UPDATE user_packages
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userPackageColumns + `
	`
	return scanUserPackage(r.db.QueryRow(ctx, query, id))
}
