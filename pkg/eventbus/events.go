package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Reservation lifecycle subjects.
const (
	SubjectReservationCreated   = "reservations.created"
	SubjectReservationConfirmed = "reservations.confirmed"
	SubjectReservationRejected  = "reservations.rejected"
	SubjectReservationCancelled = "reservations.cancelled"

	SubjectReservationsAll = "reservations.>"
)

// ReservationEventData carries everything a notifier needs to render a
// reservation email. Parties travel by id; names and addresses are filled in
// by the consumer before rendering.
type ReservationEventData struct {
	ReservationID  uuid.UUID `json:"reservation_id"`
	VehicleID      uuid.UUID `json:"vehicle_id"`
	VehicleLabel   string    `json:"vehicle_label"`
	ListingMode    string    `json:"listing_mode"`
	Status         string    `json:"status"`
	Confirmed      bool      `json:"confirmed"`
	StartDate      string    `json:"start_date,omitempty"`
	EndDate        string    `json:"end_date,omitempty"`
	ExpirationDate string    `json:"expiration_date,omitempty"`
	Total          float64   `json:"total"`

	RequesterID    uuid.UUID `json:"requester_id"`
	RequesterName  string    `json:"requester_name,omitempty"`
	RequesterEmail string    `json:"requester_email,omitempty"`
	OwnerID        uuid.UUID `json:"owner_id"`
	OwnerName      string    `json:"owner_name,omitempty"`
	OwnerEmail     string    `json:"owner_email,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
