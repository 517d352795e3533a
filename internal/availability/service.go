package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/pkg/cache"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
	"go.uber.org/zap"
)

// Error codes returned by this package.
const (
	CodeInvalidDateRange        = "INVALID_DATE_RANGE"
	CodeDatesUnavailable        = "DATES_UNAVAILABLE"
	CodeBlockNotFound           = "BLOCK_NOT_FOUND"
	CodeBlockOwnedByReservation = "BLOCK_OWNED_BY_RESERVATION"
)

// Service is the availability index of vehicle calendars.
type Service struct {
	repo         RepositoryInterface
	reservations ReservationOverlapFinder
	vehicles     VehicleLookup
	tx           database.Transactor
	cache        CalendarCache
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewService creates a new availability service
func NewService(repo RepositoryInterface, reservations ReservationOverlapFinder, vehicles VehicleLookup, tx database.Transactor) *Service {
	return &Service{
		repo:         repo,
		reservations: reservations,
		vehicles:     vehicles,
		tx:           tx,
		now:          time.Now,
	}
}

// SetCache enables caching of calendar reads
func (s *Service) SetCache(c CalendarCache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// InvalidRange converts a date parsing or ordering failure into an AppError.
func InvalidRange(err error) error {
	return common.NewBadRequestError(err.Error(), err).WithCode(CodeInvalidDateRange)
}

// DatesUnavailable is the Conflict returned when a range is already taken.
func DatesUnavailable() error {
	return common.NewConflictError("the vehicle is not available for the selected dates").WithCode(CodeDatesUnavailable)
}

// IsFree reports whether no block and no reservation of the vehicle overlaps r.
func (s *Service) IsFree(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error) {
	if _, err := s.vehicles.GetVehicle(ctx, vehicleID); err != nil {
		return false, err
	}
	return s.isFree(ctx, vehicleID, r)
}

func (s *Service) isFree(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error) {
	blocked, err := s.repo.HasOverlappingBlock(ctx, vehicleID, r)
	if err != nil {
		return false, common.NewInternalError("failed to check blocks", err)
	}
	if blocked {
		return false, nil
	}

	reserved, err := s.reservations.HasOverlappingReservation(ctx, vehicleID, r)
	if err != nil {
		return false, common.NewInternalError("failed to check reservations", err)
	}
	return !reserved, nil
}

// AddBlock inserts a block without checking for overlap. Callers check IsFree
// first in the same transaction.
func (s *Service) AddBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason Reason) (*Block, error) {
	return s.insert(ctx, vehicleID, r, reason, false)
}

func (s *Service) insert(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason Reason, manual bool) (*Block, error) {
	b := &Block{
		ID:        uuid.New(),
		VehicleID: vehicleID,
		StartDate: r.Start,
		EndDate:   r.End,
		Reason:    reason,
		Manual:    manual,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertBlock(ctx, b); err != nil {
		switch {
		case database.IsExclusionViolation(err):
			return nil, DatesUnavailable()
		case database.IsForeignKeyViolation(err):
			return nil, common.NewNotFoundError("vehicle not found", nil).WithCode("VEHICLE_NOT_FOUND")
		}
		return nil, common.NewInternalError("failed to create block", err)
	}

	s.invalidateOutsideTx(ctx, vehicleID)
	return b, nil
}

// UpdateBlockReason rewrites the reason of the vehicle's blocks with exactly r.
func (s *Service) UpdateBlockReason(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason Reason) error {
	if _, err := s.vehicles.GetVehicle(ctx, vehicleID); err != nil {
		return err
	}

	n, err := s.repo.UpdateBlockReason(ctx, vehicleID, r, reason)
	if err != nil {
		return common.NewInternalError("failed to update block", err)
	}
	if n == 0 {
		logger.WarnContext(ctx, "no block matched range",
			zap.String("vehicle_id", vehicleID.String()),
			zap.String("range", r.String()),
		)
	}

	s.invalidateOutsideTx(ctx, vehicleID)
	return nil
}

// RemoveBlock deletes the vehicle's blocks with exactly r.
func (s *Service) RemoveBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) error {
	if _, err := s.vehicles.GetVehicle(ctx, vehicleID); err != nil {
		return err
	}

	if _, err := s.repo.DeleteBlocksByRange(ctx, vehicleID, r); err != nil {
		return common.NewInternalError("failed to remove block", err)
	}

	s.invalidateOutsideTx(ctx, vehicleID)
	return nil
}

// CreateManualBlock lets an owner or admin take a range off the calendar.
func (s *Service) CreateManualBlock(ctx context.Context, actor models.Actor, vehicleID uuid.UUID, req *CreateBlockRequest) (*Block, error) {
	r, err := daterange.ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, InvalidRange(err)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = ReasonUnavailable
	}

	var block *Block
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := s.vehicles.LockVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if !actor.CanManage(v.OwnerID) {
			return common.NewForbiddenError("only the owner can block this vehicle's calendar")
		}

		free, err := s.isFree(ctx, vehicleID, r)
		if err != nil {
			return err
		}
		if !free {
			return DatesUnavailable()
		}

		block, err = s.insert(ctx, vehicleID, r, reason, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCalendar(ctx, vehicleID)
	logger.InfoContext(ctx, "manual block created",
		zap.String("vehicle_id", vehicleID.String()),
		zap.String("block_id", block.ID.String()),
		zap.String("range", r.String()),
	)
	return block, nil
}

// DeleteManualBlock removes an owner created block. Reservation blocks follow
// their reservation and cannot be deleted directly.
func (s *Service) DeleteManualBlock(ctx context.Context, actor models.Actor, blockID uuid.UUID) error {
	var vehicleID uuid.UUID
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBlockByID(ctx, blockID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NewNotFoundError("block not found", nil).WithCode(CodeBlockNotFound)
			}
			return common.NewInternalError("failed to load block", err)
		}
		vehicleID = b.VehicleID

		v, err := s.vehicles.LockVehicle(ctx, b.VehicleID)
		if err != nil {
			return err
		}
		if !actor.CanManage(v.OwnerID) {
			return common.NewForbiddenError("only the owner can unblock this vehicle's calendar")
		}
		if !b.Manual {
			return common.NewConflictError("this block belongs to a reservation; cancel the reservation instead").
				WithCode(CodeBlockOwnedByReservation)
		}

		if err := s.repo.DeleteBlock(ctx, blockID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NewNotFoundError("block not found", nil).WithCode(CodeBlockNotFound)
			}
			return common.NewInternalError("failed to delete block", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateCalendar(ctx, vehicleID)
	return nil
}

// ListBlocks returns the vehicle's calendar, from cache when enabled.
func (s *Service) ListBlocks(ctx context.Context, vehicleID uuid.UUID) (*CalendarResponse, error) {
	if _, err := s.vehicles.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	key := cache.Keys{}.VehicleCalendar(vehicleID)
	if s.cache != nil {
		var cached CalendarResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.WarnContext(ctx, "calendar cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	blocks, err := s.repo.ListBlocks(ctx, vehicleID)
	if err != nil {
		return nil, common.NewInternalError("failed to list blocks", err)
	}
	resp := &CalendarResponse{VehicleID: vehicleID, Blocks: blocks}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			logger.WarnContext(ctx, "calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

// CheckAvailability answers whether r is bookable for the vehicle.
func (s *Service) CheckAvailability(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (*AvailabilityResponse, error) {
	free, err := s.IsFree(ctx, vehicleID, r)
	if err != nil {
		return nil, err
	}
	return &AvailabilityResponse{
		VehicleID: vehicleID,
		StartDate: r.Start,
		EndDate:   r.End,
		Available: free,
	}, nil
}

// InvalidateCalendar drops the cached calendar of a vehicle. Writers inside a
// transaction call it after commit.
func (s *Service) InvalidateCalendar(ctx context.Context, vehicleID uuid.UUID) {
	if s.cache == nil {
		return
	}
	key := cache.Keys{}.VehicleCalendar(vehicleID)
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "calendar cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) invalidateOutsideTx(ctx context.Context, vehicleID uuid.UUID) {
	if database.InTx(ctx) {
		return
	}
	s.InvalidateCalendar(ctx, vehicleID)
}
