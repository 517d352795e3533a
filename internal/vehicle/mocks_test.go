package vehicle

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateVehicle(ctx context.Context, v *Vehicle) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockRepo) GetVehicleByID(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Vehicle), args.Error(1)
}

func (m *mockRepo) GetVehicleByIDForUpdate(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Vehicle), args.Error(1)
}

func (m *mockRepo) GetVehiclesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Vehicle, int64, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]Vehicle), args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) SetValidated(ctx context.Context, id uuid.UUID, validated bool) error {
	args := m.Called(ctx, id, validated)
	return args.Error(0)
}

func (m *mockRepo) UpdateVehicleState(ctx context.Context, id uuid.UUID, reserved, available bool) error {
	args := m.Called(ctx, id, reserved, available)
	return args.Error(0)
}

func floatPtr(f float64) *float64 { return &f }

func createTestVehicle(ownerID uuid.UUID, mode ListingMode) *Vehicle {
	v := &Vehicle{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		ListingMode:  mode,
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2020,
		LicensePlate: "ABC-123",
		Available:    true,
		Validated:    true,
	}
	if mode == ListingModeSale {
		v.PriceTotal = floatPtr(15000)
	} else {
		v.PricePerDay = floatPtr(100)
	}
	return v
}
