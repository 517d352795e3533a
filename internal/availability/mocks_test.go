package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListBlocks(ctx context.Context, vehicleID uuid.UUID) ([]Block, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Block), args.Error(1)
}

func (m *mockRepo) HasOverlappingBlock(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error) {
	args := m.Called(ctx, vehicleID, r)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) InsertBlock(ctx context.Context, b *Block) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockRepo) UpdateBlockReason(ctx context.Context, vehicleID uuid.UUID, r daterange.Range, reason Reason) (int64, error) {
	args := m.Called(ctx, vehicleID, r, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) DeleteBlocksByRange(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (int64, error) {
	args := m.Called(ctx, vehicleID, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Block), args.Error(1)
}

func (m *mockRepo) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockReservations struct {
	mock.Mock
}

func (m *mockReservations) HasOverlappingReservation(ctx context.Context, vehicleID uuid.UUID, r daterange.Range) (bool, error) {
	args := m.Called(ctx, vehicleID, r)
	return args.Bool(0), args.Error(1)
}

type mockVehicles struct {
	mock.Mock
}

func (m *mockVehicles) GetVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vehicle.Vehicle), args.Error(1)
}

func (m *mockVehicles) LockVehicle(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vehicle.Vehicle), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string, result interface{}) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// passthroughTx runs fn directly; repositories are mocked.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc          *Service
	repo         *mockRepo
	reservations *mockReservations
	vehicles     *mockVehicles
}

func newFixture() *fixture {
	f := &fixture{
		repo:         new(mockRepo),
		reservations: new(mockReservations),
		vehicles:     new(mockVehicles),
	}
	f.svc = NewService(f.repo, f.reservations, f.vehicles, passthroughTx{})
	return f
}

func rentalVehicle(ownerID uuid.UUID) *vehicle.Vehicle {
	perDay := 50.0
	return &vehicle.Vehicle{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ListingMode: vehicle.ListingModeRental,
		Make:        "Seat",
		Model:       "Leon",
		PricePerDay: &perDay,
		Available:   true,
		Validated:   true,
	}
}

func rng(start, end string) daterange.Range {
	r, err := daterange.ParseRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}
