package services

import (
	"context"
	"errors"

	"github.com/alirzan/SessionBookBack/internal/models"
	"github.com/alirzan/SessionBookBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserPackageService struct {
	db              *pgxpool.Pool
	userPackageRepo *repository.UserPackageRepository
	packageRepo     *repository.PackageRepository
	priceRepo       *repository.PriceRepository
	bookingRepo     *repository.BookingRepository
}

func NewUserPackageService(
	db *pgxpool.Pool,
	userPackageRepo *repository.UserPackageRepository,
	packageRepo *repository.PackageRepository,
	priceRepo *repository.PriceRepository,
	bookingRepo *repository.BookingRepository,
) *UserPackageService {
	return &UserPackageService{
		db:              db,
		userPackageRepo: userPackageRepo,
		packageRepo:     packageRepo,
		priceRepo:       priceRepo,
		bookingRepo:     bookingRepo,
	}
}

type PurchaseInput struct {
	ClientID       int64
	PackagePriceID int64
}

// Purchase opens a session ledger for a client against an active price.
// Payment itself happens outside this system; the ledger starts full.
func (s *UserPackageService) Purchase(
	ctx context.Context,
	actorID int64,
	actorRole string,
	input PurchaseInput,
) (*models.UserPackage, error) {
	if actorRole != models.RoleAdmin {
		input.ClientID = actorID
	}
	if input.ClientID <= 0 || input.PackagePriceID <= 0 {
		return nil, ErrInvalidInput
	}

	price, err := s.priceRepo.GetByID(ctx, input.PackagePriceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !price.IsActive {
		return nil, ErrConflict
	}
	definition, err := s.packageRepo.GetByID(ctx, price.PackageDefinitionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !definition.IsActive {
		return nil, ErrConflict
	}

	return s.userPackageRepo.Create(ctx, repository.CreateUserPackageInput{
		ClientID:       input.ClientID,
		PackagePriceID: input.PackagePriceID,
		SessionsCount:  definition.SessionsCount,
	})
}

func (s *UserPackageService) List(
	ctx context.Context,
	actorID int64,
	actorRole string,
	clientID int64,
) ([]models.UserPackage, error) {
	if actorRole != models.RoleAdmin {
		clientID = actorID
	}
	return s.userPackageRepo.List(ctx, clientID)
}

func (s *UserPackageService) Get(
	ctx context.Context,
	actorID int64,
	actorRole string,
	id int64,
) (*models.UserPackage, error) {
	pkg, err := s.userPackageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && pkg.ClientID != actorID {
		return nil, ErrForbidden
	}
	return pkg, nil
}

// Deactivate retires a package so no further sessions can be consumed from
// it. Refused while any non-cancelled booking still holds one of its
// sessions.
func (s *UserPackageService) Deactivate(
	ctx context.Context,
	actorID int64,
	actorRole string,
	id int64,
) (*models.UserPackage, error) {
	pkg, err := s.userPackageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && pkg.ClientID != actorID {
		return nil, ErrForbidden
	}

	active, err := s.bookingRepo.CountActiveByUserPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrConflict
	}
	return s.userPackageRepo.Deactivate(ctx, id)
}
