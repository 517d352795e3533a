package vehicle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

// Error codes returned by this package.
const (
	CodeVehicleNotFound     = "VEHICLE_NOT_FOUND"
	CodeInvalidPricing      = "INVALID_PRICING"
	CodeLicensePlateTaken   = "LICENSE_PLATE_TAKEN"
	CodeVehicleNotValidated = "VEHICLE_NOT_VALIDATED"
)

// Service handles vehicle business logic
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new vehicle service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewNotFoundError("vehicle not found", nil).WithCode(CodeVehicleNotFound)
	}
	return common.NewInternalError("failed to load vehicle", err)
}

// RegisterVehicle lists a new vehicle for its owner. Listings start
// unvalidated and available.
func (s *Service) RegisterVehicle(ctx context.Context, ownerID uuid.UUID, req *RegisterVehicleRequest) (*Vehicle, error) {
	now := s.now()
	v := &Vehicle{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		ListingMode:  req.ListingMode,
		Make:         strings.TrimSpace(req.Make),
		Model:        strings.TrimSpace(req.Model),
		Year:         req.Year,
		LicensePlate: strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		Description:  req.Description,
		Location:     req.Location,
		Mileage:      req.Mileage,
		Seats:        req.Seats,
		PriceTotal:   req.PriceTotal,
		PricePerDay:  req.PricePerDay,
		Available:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := v.Validate(); err != nil {
		return nil, common.NewBadRequestError(err.Error(), err).WithCode(CodeInvalidPricing)
	}

	if err := s.repo.CreateVehicle(ctx, v); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, common.NewConflictError("a vehicle with this license plate is already listed").WithCode(CodeLicensePlateTaken)
		}
		return nil, common.NewInternalError("failed to register vehicle", err)
	}

	logger.InfoContext(ctx, "vehicle registered",
		zap.String("vehicle_id", v.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("listing_mode", string(v.ListingMode)),
	)
	return v, nil
}

// GetVehicle returns a vehicle or a NotFound error.
func (s *Service) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error) {
	v, err := s.repo.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// LockVehicle loads a vehicle and holds its row lock for the rest of the
// transaction in ctx.
func (s *Service) LockVehicle(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error) {
	v, err := s.repo.GetVehicleByIDForUpdate(ctx, vehicleID)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// GetMyVehicles returns a page of the owner's vehicles and the total count.
func (s *Service) GetMyVehicles(ctx context.Context, ownerID uuid.UUID, limit, offset int) (*VehicleListResponse, int64, error) {
	vehicles, total, err := s.repo.GetVehiclesByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list vehicles", err)
	}
	return &VehicleListResponse{Vehicles: vehicles}, total, nil
}

// ValidateVehicle records an admin's approval (or withdrawal of approval) of
// a listing. Only validated vehicles accept reservations.
func (s *Service) ValidateVehicle(ctx context.Context, vehicleID uuid.UUID, validated bool) (*Vehicle, error) {
	if err := s.repo.SetValidated(ctx, vehicleID, validated); err != nil {
		return nil, notFound(err)
	}
	return s.GetVehicle(ctx, vehicleID)
}
