package vehicle

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_RegisterVehicle(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ownerID := uuid.New()

	repo.On("CreateVehicle", mock.Anything, mock.MatchedBy(func(v *Vehicle) bool {
		return v.OwnerID == ownerID && v.Available && !v.Reserved && !v.Validated
	})).Return(nil)

	v, err := svc.RegisterVehicle(context.Background(), ownerID, &RegisterVehicleRequest{
		ListingMode:  ListingModeRental,
		Make:         " Seat ",
		Model:        "Ibiza",
		Year:         2021,
		LicensePlate: "1234 bcd",
		PricePerDay:  floatPtr(45),
	})

	require.NoError(t, err)
	assert.Equal(t, "Seat", v.Make)
	assert.Equal(t, "1234 BCD", v.LicensePlate)
	assert.NotEqual(t, uuid.Nil, v.ID)
	repo.AssertExpectations(t)
}

func TestService_RegisterVehicle_InvalidPricing(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)

	_, err := svc.RegisterVehicle(context.Background(), uuid.New(), &RegisterVehicleRequest{
		ListingMode: ListingModeSale,
		Make:        "Seat",
		PricePerDay: floatPtr(45),
	})

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	assert.Equal(t, CodeInvalidPricing, appErr.ErrorCode)
	repo.AssertNotCalled(t, "CreateVehicle", mock.Anything, mock.Anything)
}

func TestService_RegisterVehicle_DuplicatePlate(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)

	repo.On("CreateVehicle", mock.Anything, mock.Anything).Return(&pgconn.PgError{Code: "23505"})

	_, err := svc.RegisterVehicle(context.Background(), uuid.New(), &RegisterVehicleRequest{
		ListingMode: ListingModeSale,
		Make:        "Seat",
		PriceTotal:  floatPtr(9000),
	})

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, CodeLicensePlateTaken, appErr.ErrorCode)
}

func TestService_GetVehicle_NotFound(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	id := uuid.New()

	repo.On("GetVehicleByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	_, err := svc.GetVehicle(context.Background(), id)
	assert.True(t, common.IsStatus(err, http.StatusNotFound))
}

func TestService_LockVehicle(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	v := createTestVehicle(uuid.New(), ListingModeSale)

	repo.On("GetVehicleByIDForUpdate", mock.Anything, v.ID).Return(v, nil)

	got, err := svc.LockVehicle(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)
	repo.AssertNotCalled(t, "GetVehicleByID", mock.Anything, mock.Anything)
}

func TestService_LockVehicle_DatabaseError(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	id := uuid.New()

	repo.On("GetVehicleByIDForUpdate", mock.Anything, id).Return(nil, errors.New("boom"))

	_, err := svc.LockVehicle(context.Background(), id)
	assert.True(t, common.IsStatus(err, http.StatusInternalServerError))
}

func TestService_GetMyVehicles(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ownerID := uuid.New()
	list := []Vehicle{*createTestVehicle(ownerID, ListingModeSale)}

	repo.On("GetVehiclesByOwner", mock.Anything, ownerID, 20, 0).Return(list, int64(1), nil)

	resp, total, err := svc.GetMyVehicles(context.Background(), ownerID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, resp.Vehicles, 1)
}

func TestService_ValidateVehicle(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	v := createTestVehicle(uuid.New(), ListingModeRental)

	repo.On("SetValidated", mock.Anything, v.ID, true).Return(nil)
	repo.On("GetVehicleByID", mock.Anything, v.ID).Return(v, nil)

	got, err := svc.ValidateVehicle(context.Background(), v.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Validated)
}

func TestService_ValidateVehicle_Missing(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	id := uuid.New()

	repo.On("SetValidated", mock.Anything, id, false).Return(pgx.ErrNoRows)

	_, err := svc.ValidateVehicle(context.Background(), id, false)
	assert.True(t, common.IsStatus(err, http.StatusNotFound))
}
