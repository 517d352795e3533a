package availability

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
)

// Reason labels why a range of a vehicle's calendar is blocked. Reservation
// owned blocks use the two reservation reasons; owners may write free text.
type Reason = string

const (
	ReasonPending     Reason = "RESERVA_PENDIENTE"
	ReasonConfirmed   Reason = "RESERVA_CONFIRMADA"
	ReasonUnavailable Reason = "NO_DISPONIBLE"
)

// ReasonFor maps a reservation's confirmed flag to its block reason.
func ReasonFor(confirmed bool) Reason {
	if confirmed {
		return ReasonConfirmed
	}
	return ReasonPending
}

// Block is a blocked range [StartDate, EndDate) of a vehicle's calendar.
// Manual blocks are created by owners; the rest follow a reservation.
type Block struct {
	ID        uuid.UUID      `json:"id"`
	VehicleID uuid.UUID      `json:"vehicle_id"`
	StartDate daterange.Date `json:"start_date"`
	EndDate   daterange.Date `json:"end_date"`
	Reason    Reason         `json:"reason"`
	Manual    bool           `json:"manual"`
	CreatedAt time.Time      `json:"created_at"`
}

func (b *Block) Range() daterange.Range {
	return daterange.Range{Start: b.StartDate, End: b.EndDate}
}

// CreateBlockRequest is the body of POST /vehicles/:id/blocks.
type CreateBlockRequest struct {
	StartDate string `json:"start_date" binding:"required,iso_date"`
	EndDate   string `json:"end_date" binding:"required,iso_date"`
	Reason    string `json:"reason" binding:"max=100"`
}

// CalendarResponse lists a vehicle's blocks in start date order.
type CalendarResponse struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
	Blocks    []Block   `json:"blocks"`
}

// AvailabilityResponse answers a range query.
type AvailabilityResponse struct {
	VehicleID uuid.UUID      `json:"vehicle_id"`
	StartDate daterange.Date `json:"start_date"`
	EndDate   daterange.Date `json:"end_date"`
	Available bool           `json:"available"`
}
