package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	// StatusCancelled is only ever published; cancelled reservations are deleted.
	StatusCancelled Status = "CANCELLED"
)

// StatusFor maps an owner's decision to the resulting status.
func StatusFor(confirm bool) Status {
	if confirm {
		return StatusConfirmed
	}
	return StatusRejected
}

// Reservation is a booking request for a vehicle. Sale reservations carry an
// expiration date; rental reservations carry a [StartDate, EndDate) range.
type Reservation struct {
	ID              uuid.UUID      `json:"id"`
	VehicleID       uuid.UUID      `json:"vehicle_id"`
	UserID          uuid.UUID      `json:"user_id"`
	ReservationDate daterange.Date `json:"reservation_date"`
	StartDate       daterange.Date `json:"start_date"`
	EndDate         daterange.Date `json:"end_date"`
	ExpirationDate  daterange.Date `json:"expiration_date"`
	PricePerDay     *float64       `json:"price_per_day"`
	Total           float64        `json:"total"`
	Confirmed       bool           `json:"confirmed"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	// Joined from the vehicle.
	OwnerID     uuid.UUID           `json:"owner_id"`
	ListingMode vehicle.ListingMode `json:"listing_mode"`
}

// Ranged reports whether the reservation holds a calendar range.
func (r *Reservation) Ranged() bool {
	return !r.StartDate.IsZero() && !r.EndDate.IsZero()
}

func (r *Reservation) Range() daterange.Range {
	return daterange.Range{Start: r.StartDate, End: r.EndDate}
}

// HoldsSale reports whether a sale reservation is the one keeping its vehicle
// reserved. Rejected reservations have already released it.
func (r *Reservation) HoldsSale() bool {
	return r.ListingMode == vehicle.ListingModeSale && r.Status != StatusRejected
}

// CreateReservationRequest is the body of POST /reservations. Dates are
// required for rentals and ignored for sales.
type CreateReservationRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id" binding:"required"`
	StartDate string    `json:"start_date" binding:"omitempty,iso_date"`
	EndDate   string    `json:"end_date" binding:"omitempty,iso_date"`
}

// ReservationListResponse wraps a page of reservations.
type ReservationListResponse struct {
	Reservations []*Reservation `json:"reservations"`
}
