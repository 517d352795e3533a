package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
)

// RepositoryInterface defines the contract for block persistence
type RepositoryInterface interface {
	ListBlocks(ctx context.Context, vehicleID uuid.UUID) ([]Block, error)
	HasOverlappingBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error)
	InsertBlock(ctx context.Context, b *Block) error
	// UpdateBlockReason and DeleteBlocksByRange match blocks with exactly r
	// and return the number of rows touched.
	UpdateBlockReason(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason Reason) (int64, error)
	DeleteBlocksByRange(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (int64, error)
	GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

// ReservationOverlapFinder reports whether any reservation of a vehicle
// covers part of a range.
type ReservationOverlapFinder interface {
	HasOverlappingReservation(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error)
}

// VehicleLookup resolves vehicles. LockVehicle holds the row lock until the
// transaction in ctx ends.
type VehicleLookup interface {
	GetVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error)
	LockVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error)
}

// CalendarCache is satisfied by *cache.Manager.
type CalendarCache interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
