package repository

import (
	"context"

	"github.com/alirzan/SessionBookBack/internal/models"
)

type CreatePackageDefinitionInput struct {
	Name              string
	Description       *string
	SessionsCount     int
	SessionDurationID int64
	PackageType       string
	MaxGroupSize      *int
}

type UpdatePackageDefinitionInput struct {
	Name         *string
	Description  *string
	MaxGroupSize *int
	IsActive     *bool
}

type PackageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, name, description, sessions_count, session_duration_id,
	   package_type, max_group_size, is_active, created_at, updated_at`

func scanPackageDefinition(row interface{ Scan(dest ...any) error }) (*models.PackageDefinition, error) {
	var def models.PackageDefinition
	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Description,
		&def.SessionsCount,
		&def.SessionDurationID,
		&def.PackageType,
		&def.MaxGroupSize,
		&def.IsActive,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *PackageRepository) Create(
	ctx context.Context,
	input CreatePackageDefinitionInput,
) (*models.PackageDefinition, error) {
	query := `
		INSERT INTO package_definitions (name, description, sessions_count, session_duration_id, package_type, max_group_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + packageColumns + `
	`
	return scanPackageDefinition(r.db.QueryRow(
		ctx,
		query,
		input.Name,
		input.Description,
		input.SessionsCount,
		input.SessionDurationID,
		input.PackageType,
		input.MaxGroupSize,
	))
}

func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*models.PackageDefinition, error) {
	query := `SELECT ` + packageColumns + ` FROM package_definitions WHERE id = $1`
	return scanPackageDefinition(r.db.QueryRow(ctx, query, id))
}

func (r *PackageRepository) List(ctx context.Context, activeOnly bool) ([]models.PackageDefinition, error) {
	query := `SELECT ` + packageColumns + ` FROM package_definitions`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]models.PackageDefinition, 0)
	for rows.Next() {
		def, err := scanPackageDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *PackageRepository) UpdatePartial(
	ctx context.Context,
	id int64,
	input UpdatePackageDefinitionInput,
) (*models.PackageDefinition, error) {
	query := `
		UPDATE package_definitions
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			max_group_size = COALESCE($4, max_group_size),
			is_active = COALESCE($5, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + packageColumns + `
	`
	return scanPackageDefinition(r.db.QueryRow(
		ctx,
		query,
		id,
		input.Name,
		input.Description,
		input.MaxGroupSize,
		input.IsActive,
	))
}

func (r *PackageRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM package_definitions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountUserPackages reports how many user packages were bought against any
// price of the definition. A non-zero count freezes the definition.
func (r *PackageRepository) CountUserPackages(ctx context.Context, definitionID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_packages up
		JOIN package_prices pp ON pp.id = up.package_price_id
		WHERE pp.package_definition_id = $1
	`
	var count int
	if err := r.db.QueryRow(ctx, query, definitionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PackageRepository) GetDuration(ctx context.Context, id int64) (*models.SessionDuration, error) {
	query := `SELECT id, name, minutes FROM session_durations WHERE id = $1`
	var duration models.SessionDuration
	err := r.db.QueryRow(ctx, query, id).Scan(&duration.ID, &duration.Name, &duration.Minutes)
	if err != nil {
		return nil, err
	}
	return &duration, nil
}

func (r *PackageRepository) ListDurations(ctx context.Context) ([]models.SessionDuration, error) {
	query := `SELECT id, name, minutes FROM session_durations ORDER BY minutes ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	durations := make([]models.SessionDuration, 0)
	for rows.Next() {
		var duration models.SessionDuration
		if err := rows.Scan(&duration.ID, &duration.Name, &duration.Minutes); err != nil {
			return nil, err
		}
		durations = append(durations, duration)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return durations, nil
}
