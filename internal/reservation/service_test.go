package reservation

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/vehicle-marketplace/internal/availability"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	appErr, ok := common.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.Code)
	if code != "" {
		assert.Equal(t, code, appErr.ErrorCode)
	}
}

func rentalRequest(vehicleID uuid.UUID, start, end string) *CreateReservationRequest {
	return &CreateReservationRequest{VehicleID: vehicleID, StartDate: start, EndDate: end}
}

func TestCreateReservation_Sale(t *testing.T) {
	h := newHarness()
	v := h.addVehicle(vehicle.ListingModeSale, 10000)

	res, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	assert.Equal(t, 10000.0, res.Total)
	assert.Nil(t, res.PricePerDay)
	assert.False(t, res.Ranged())
	assert.Equal(t, "2025-05-20", res.ReservationDate.String())
	assert.Equal(t, "2025-06-20", res.ExpirationDate.String())
	assert.Equal(t, StatusPending, res.Status)
	assert.False(t, res.Confirmed)

	stored := h.vehicles.get(v.ID)
	assert.True(t, stored.Reserved)
	assert.False(t, stored.Available)
	assert.Empty(t, h.blocks.forVehicle(v.ID))
}

func TestCreateReservation_SaleIgnoresDates(t *testing.T) {
	h := newHarness()
	v := h.addVehicle(vehicle.ListingModeSale, 10000)

	res, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)
	assert.False(t, res.Ranged())
}

func TestCreateReservation_Rental(t *testing.T) {
	h := newHarness()
	v := h.addVehicle(vehicle.ListingModeRental, 50)

	res, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)

	assert.Equal(t, 200.0, res.Total)
	require.NotNil(t, res.PricePerDay)
	assert.Equal(t, 50.0, *res.PricePerDay)
	assert.True(t, res.ExpirationDate.IsZero())

	blocks := h.blocks.forVehicle(v.ID)
	require.Len(t, blocks, 1)
	assert.Equal(t, availability.ReasonPending, blocks[0].Reason)
	assert.Equal(t, res.Range(), blocks[0].Range())

	stored := h.vehicles.get(v.ID)
	assert.False(t, stored.Reserved)
	assert.True(t, stored.Available)
}

func TestCreateReservation_RentalValidation(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		end    string
		status int
		code   string
	}{
		{name: "missing dates", status: http.StatusBadRequest, code: CodeDatesRequired},
		{name: "missing end", start: "2025-06-01", status: http.StatusBadRequest, code: CodeDatesRequired},
		{name: "same day", start: "2025-06-01", end: "2025-06-01", status: http.StatusBadRequest, code: availability.CodeInvalidDateRange},
		{name: "reversed", start: "2025-06-05", end: "2025-06-01", status: http.StatusBadRequest, code: availability.CodeInvalidDateRange},
		{name: "bad format", start: "2025/06/01", end: "2025-06-05", status: http.StatusBadRequest, code: availability.CodeInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			v := h.addVehicle(vehicle.ListingModeRental, 50)

			_, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, rentalRequest(v.ID, tt.start, tt.end))
			assertAppError(t, err, tt.status, tt.code)
			assert.Empty(t, h.blocks.forVehicle(v.ID))
		})
	}
}

func TestCreateReservation_Lookups(t *testing.T) {
	t.Run("unknown vehicle", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, &CreateReservationRequest{VehicleID: uuid.New()})
		assertAppError(t, err, http.StatusNotFound, vehicle.CodeVehicleNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		h := newHarness()
		v := h.addVehicle(vehicle.ListingModeSale, 10000)
		_, err := h.svc.CreateReservation(context.Background(), uuid.New(), &CreateReservationRequest{VehicleID: v.ID})
		assertAppError(t, err, http.StatusNotFound, "")
		assert.False(t, h.vehicles.get(v.ID).Reserved)
	})

	t.Run("vehicle not validated", func(t *testing.T) {
		h := newHarness()
		v := h.addVehicle(vehicle.ListingModeSale, 10000)
		require.NoError(t, h.vehicles.SetValidated(context.Background(), v.ID, false))

		_, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
		assertAppError(t, err, http.StatusBadRequest, vehicle.CodeVehicleNotValidated)
	})
}

func TestCreateReservation_ExclusionViolationRollsBack(t *testing.T) {
	h := newHarness()
	v := h.addVehicle(vehicle.ListingModeRental, 50)
	h.reservations.createErr = &pgconn.PgError{Code: "23P01"}

	_, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	assertAppError(t, err, http.StatusConflict, availability.CodeDatesUnavailable)
	assert.Empty(t, h.blocks.forVehicle(v.ID))
	assert.Empty(t, h.notifier.subjects())
}

// Scenario A: confirmed rental 06-01..06-05 blocks overlapping requests but
// not one starting on its end date.
func TestScenario_RentalOverlap(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeRental, 50)

	first, err := h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)
	_, err = h.svc.Decide(ctx, actorOf(h.owner), first.ID, true)
	require.NoError(t, err)

	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, rentalRequest(v.ID, "2025-06-04", "2025-06-08"))
	assertAppError(t, err, http.StatusConflict, availability.CodeDatesUnavailable)

	second, err := h.svc.CreateReservation(ctx, h.buyer2.ID, rentalRequest(v.ID, "2025-06-05", "2025-06-08"))
	require.NoError(t, err)
	assert.Equal(t, 150.0, second.Total)
	assert.Len(t, h.blocks.forVehicle(v.ID), 2)

	// an owner's manual block takes the dates off the calendar too
	h.blocks.blocks = append(h.blocks.blocks, availability.Block{
		ID:        uuid.New(),
		VehicleID: v.ID,
		StartDate: daterange.MustParse("2025-06-10"),
		EndDate:   daterange.MustParse("2025-06-12"),
		Reason:    availability.ReasonUnavailable,
		Manual:    true,
	})

	_, err = h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-06-11", "2025-06-13"))
	assertAppError(t, err, http.StatusConflict, availability.CodeDatesUnavailable)

	_, err = h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-06-12", "2025-06-14"))
	require.NoError(t, err)
}

func TestCreateReservation_LongRentalChargesEveryDay(t *testing.T) {
	h := newHarness()
	v := h.addVehicle(vehicle.ListingModeRental, 2)

	res, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, rentalRequest(v.ID, "2000-01-01", "2400-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 2.0*146097, res.Total)
}

// Scenario B: a sale vehicle is held by one reservation at a time.
func TestScenario_SaleHold(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 10000)

	first, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)
	assert.True(t, h.vehicles.get(v.ID).Reserved)
	assert.False(t, h.vehicles.get(v.ID).Available)

	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, &CreateReservationRequest{VehicleID: v.ID})
	assertAppError(t, err, http.StatusConflict, CodeVehicleAlreadyReserved)

	rejected, err := h.svc.Decide(ctx, actorOf(h.owner), first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, h.vehicles.get(v.ID).Reserved)
	assert.True(t, h.vehicles.get(v.ID).Available)

	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)
	assert.True(t, h.vehicles.get(v.ID).Reserved)
}

// Scenario C: cancelling frees the range for the same dates.
func TestScenario_CancelFreesRange(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeRental, 50)

	first, err := h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)

	cancelled, err := h.svc.Cancel(ctx, actorOf(h.buyer), first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, h.blocks.forVehicle(v.ID))

	_, err = h.svc.GetReservation(ctx, actorOf(h.buyer), first.ID)
	assertAppError(t, err, http.StatusNotFound, CodeReservationNotFound)

	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)
}

func TestRentalBlockFollowsReservation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeRental, 80)

	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-07-10", "2025-07-12"))
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonPending, h.blocks.forVehicle(v.ID)[0].Reason)

	_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonConfirmed, h.blocks.forVehicle(v.ID)[0].Reason)

	_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, false)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonPending, h.blocks.forVehicle(v.ID)[0].Reason)

	_, err = h.svc.Cancel(ctx, actorOf(h.buyer), res.ID)
	require.NoError(t, err)
	assert.Empty(t, h.blocks.forVehicle(v.ID))
}

func TestDecide_RepeatedDecisionHasNoSideEffects(t *testing.T) {
	t.Run("rental", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		v := h.addVehicle(vehicle.ListingModeRental, 80)
		res, err := h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-07-10", "2025-07-12"))
		require.NoError(t, err)

		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
		require.NoError(t, err)
		updates := h.blocks.reasonUpdates

		again, err := h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, again.Status)
		assert.Equal(t, updates, h.blocks.reasonUpdates)
	})

	t.Run("sale", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		v := h.addVehicle(vehicle.ListingModeSale, 9000)
		res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
		require.NoError(t, err)

		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, false)
		require.NoError(t, err)
		writes := h.vehicles.stateWrites

		// Another buyer takes the released vehicle; repeating the rejection
		// must not release it from under them.
		_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, &CreateReservationRequest{VehicleID: v.ID})
		require.NoError(t, err)
		writes++

		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, false)
		require.NoError(t, err)
		assert.Equal(t, writes, h.vehicles.stateWrites)
		assert.True(t, h.vehicles.get(v.ID).Reserved)
	})
}

func TestDecide_ConfirmConfirmedSaleKeepsHold(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 9000)
	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	confirmed, err := h.svc.Decide(ctx, actorOf(h.admin), res.ID, true)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	assert.True(t, h.vehicles.get(v.ID).Reserved)
}

func TestDecide_ReconfirmRejectedSale(t *testing.T) {
	t.Run("vehicle still free", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		v := h.addVehicle(vehicle.ListingModeSale, 9000)
		res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
		require.NoError(t, err)
		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, false)
		require.NoError(t, err)

		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
		require.NoError(t, err)
		assert.True(t, h.vehicles.get(v.ID).Reserved)
	})

	t.Run("taken by another buyer", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		v := h.addVehicle(vehicle.ListingModeSale, 9000)
		res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
		require.NoError(t, err)
		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, false)
		require.NoError(t, err)
		_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, &CreateReservationRequest{VehicleID: v.ID})
		require.NoError(t, err)

		_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
		assertAppError(t, err, http.StatusConflict, CodeVehicleAlreadyReserved)

		stored, err := h.reservations.GetByID(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, stored.Status)
	})
}

func TestDecide_Authorization(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 9000)
	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, actorOf(h.buyer), res.ID, true)
	assertAppError(t, err, http.StatusForbidden, "")

	_, err = h.svc.Decide(ctx, actorOf(h.owner), uuid.New(), true)
	assertAppError(t, err, http.StatusNotFound, CodeReservationNotFound)
}

func TestCancel_SaleReleasesVehicle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 9000)
	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	_, err = h.svc.Cancel(ctx, actorOf(h.owner), res.ID)
	assertAppError(t, err, http.StatusForbidden, "")
	assert.True(t, h.vehicles.get(v.ID).Reserved)

	_, err = h.svc.Cancel(ctx, actorOf(h.buyer), res.ID)
	require.NoError(t, err)
	assert.False(t, h.vehicles.get(v.ID).Reserved)
	assert.True(t, h.vehicles.get(v.ID).Available)

	_, err = h.svc.Cancel(ctx, actorOf(h.buyer), res.ID)
	assertAppError(t, err, http.StatusNotFound, CodeReservationNotFound)
}

func TestCancel_RejectedSaleLeavesOtherHold(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 9000)
	first, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)
	_, err = h.svc.Decide(ctx, actorOf(h.owner), first.ID, false)
	require.NoError(t, err)
	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	_, err = h.svc.Cancel(ctx, actorOf(h.buyer), first.ID)
	require.NoError(t, err)
	assert.True(t, h.vehicles.get(v.ID).Reserved)
}

func TestNotifications(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeRental, 50)

	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, rentalRequest(v.ID, "2025-06-01", "2025-06-05"))
	require.NoError(t, err)
	_, err = h.svc.Decide(ctx, actorOf(h.owner), res.ID, true)
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, actorOf(h.buyer), res.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		eventbus.SubjectReservationCreated,
		eventbus.SubjectReservationConfirmed,
		eventbus.SubjectReservationCancelled,
	}, h.notifier.subjects())

	created := h.notifier.events[0].data
	assert.Equal(t, h.buyer.ID, created.RequesterID)
	assert.Equal(t, h.owner.ID, created.OwnerID)
	assert.Empty(t, created.RequesterEmail)
	assert.Empty(t, created.OwnerEmail)
	assert.Equal(t, "Peugeot 308", created.VehicleLabel)
	assert.Equal(t, "2025-06-01", created.StartDate)
	assert.Empty(t, created.ExpirationDate)

	cancelled := h.notifier.events[2].data
	assert.Equal(t, string(StatusCancelled), cancelled.Status)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	h := newHarness()
	h.notifier.err = errNotifierDown
	v := h.addVehicle(vehicle.ListingModeSale, 10000)

	res, err := h.svc.CreateReservation(context.Background(), h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.True(t, h.vehicles.get(v.ID).Reserved)
	assert.Len(t, h.notifier.subjects(), 1)
}

func TestGetReservation_Visibility(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	v := h.addVehicle(vehicle.ListingModeSale, 10000)
	res, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: v.ID})
	require.NoError(t, err)

	_, err = h.svc.GetReservation(ctx, actorOf(h.buyer), res.ID)
	assert.NoError(t, err)
	got, err := h.svc.GetReservation(ctx, actorOf(h.owner), res.ID)
	require.NoError(t, err)
	assert.Equal(t, h.owner.ID, got.OwnerID)
	_, err = h.svc.GetReservation(ctx, actorOf(h.admin), res.ID)
	assert.NoError(t, err)

	_, err = h.svc.GetReservation(ctx, actorOf(h.buyer2), res.ID)
	assertAppError(t, err, http.StatusForbidden, "")
}

func TestListings(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sale := h.addVehicle(vehicle.ListingModeSale, 10000)
	rental := h.addVehicle(vehicle.ListingModeRental, 40)

	_, err := h.svc.CreateReservation(ctx, h.buyer.ID, &CreateReservationRequest{VehicleID: sale.ID})
	require.NoError(t, err)
	_, err = h.svc.CreateReservation(ctx, h.buyer2.ID, rentalRequest(rental.ID, "2025-06-01", "2025-06-03"))
	require.NoError(t, err)

	all, total, err := h.svc.ListReservations(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(2), total)

	owned, _, err := h.svc.ListByOwner(ctx, h.owner.ID, 20, 0)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	mine, _, err := h.svc.ListByRequester(ctx, h.buyer2.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, rental.ID, mine[0].VehicleID)
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "conflict", outcome(alreadyReserved()))
	assert.Equal(t, "not_found", outcome(common.NewNotFoundError("x", nil)))
	assert.Equal(t, "invalid", outcome(common.NewBadRequestError("x", nil)))
	assert.Equal(t, "forbidden", outcome(common.NewForbiddenError("x")))
	assert.Equal(t, "error", outcome(assert.AnError))
}
