package vehicle

import (
	"context"
	"fmt"
)

// StateProjection keeps a vehicle's exposed reserved/available flags in step
// with its reservations. It performs no validation; callers hold the vehicle
// row lock.
type StateProjection struct {
	repo StateWriter
}

func NewStateProjection(repo StateWriter) *StateProjection {
	return &StateProjection{repo: repo}
}

// MarkReserved takes the vehicle off the market.
func (p *StateProjection) MarkReserved(ctx context.Context, v *Vehicle) error {
	if err := p.repo.UpdateVehicleState(ctx, v.ID, true, false); err != nil {
		return fmt.Errorf("mark vehicle %s reserved: %w", v.ID, err)
	}
	v.Reserved = true
	v.Available = false
	return nil
}

// Release puts the vehicle back on the market.
func (p *StateProjection) Release(ctx context.Context, v *Vehicle) error {
	if err := p.repo.UpdateVehicleState(ctx, v.ID, false, true); err != nil {
		return fmt.Errorf("release vehicle %s: %w", v.ID, err)
	}
	v.Reserved = false
	v.Available = true
	return nil
}
