package vehicle

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the contract for vehicle repository operations
type RepositoryInterface interface {
	StateWriter

	CreateVehicle(ctx context.Context, v *Vehicle) error
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	// GetVehicleByIDForUpdate row-locks the vehicle until the surrounding
	// transaction ends.
	GetVehicleByIDForUpdate(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	GetVehiclesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Vehicle, int64, error)
	SetValidated(ctx context.Context, id uuid.UUID, validated bool) error
}

// StateWriter persists the reserved/available projection of a vehicle.
type StateWriter interface {
	UpdateVehicleState(ctx context.Context, id uuid.UUID, reserved, available bool) error
}
