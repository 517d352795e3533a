package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/internal/availability"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
)

// RepositoryInterface defines the contract for reservation persistence
type RepositoryInterface interface {
	availability.ReservationOverlapFinder

	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, confirmed bool, status Status, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Reservation, int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Reservation, int64, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Reservation, int64, error)
}

// VehicleService is the vehicle lookup used by the orchestrator.
type VehicleService interface {
	GetVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error)
	LockVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error)
}

// VehicleState writes a vehicle's reserved/available flags.
type VehicleState interface {
	MarkReserved(ctx context.Context, v *vehicle.Vehicle) error
	Release(ctx context.Context, v *vehicle.Vehicle) error
}

// UserLookup resolves accounts.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AvailabilityIndex is the part of availability.Service the orchestrator needs.
type AvailabilityIndex interface {
	IsFree(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error)
	AddBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason availability.Reason) (*availability.Block, error)
	UpdateBlockReason(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason availability.Reason) error
	RemoveBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) error
	InvalidateCalendar(ctx context.Context, vehicleID uuid.UUID)
}

// Notifier hands a reservation event to the notification pipeline. It must
// not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, subject string, data *eventbus.ReservationEventData) error
}
