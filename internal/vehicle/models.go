package vehicle

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ListingMode is how a vehicle is offered on the marketplace.
type ListingMode string

const (
	ListingModeSale   ListingMode = "SALE"
	ListingModeRental ListingMode = "RENTAL"
)

func (m ListingMode) Valid() bool {
	return m == ListingModeSale || m == ListingModeRental
}

var (
	ErrPriceTotalRequired  = errors.New("price_total must be a positive amount for SALE listings")
	ErrPricePerDayRequired = errors.New("price_per_day must be a positive amount for RENTAL listings")
	ErrPricingExclusive    = errors.New("a listing carries either price_total or price_per_day, not both")
	ErrUnknownListingMode  = errors.New("listing_mode must be SALE or RENTAL")
)

// Vehicle is a listing. Reserved and Available are only written through
// StateProjection.
type Vehicle struct {
	ID           uuid.UUID   `json:"id"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	ListingMode  ListingMode `json:"listing_mode"`
	Make         string      `json:"make"`
	Model        string      `json:"model"`
	Year         int         `json:"year"`
	LicensePlate string      `json:"license_plate"`
	Description  string      `json:"description,omitempty"`
	Location     string      `json:"location,omitempty"`
	Mileage      *int        `json:"mileage,omitempty"`
	Seats        *int        `json:"seats,omitempty"`
	PriceTotal   *float64    `json:"price_total,omitempty"`
	PricePerDay  *float64    `json:"price_per_day,omitempty"`
	Reserved     bool        `json:"reserved"`
	Available    bool        `json:"available"`
	Validated    bool        `json:"validated"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Validate checks the pricing fields against the listing mode.
func (v *Vehicle) Validate() error {
	switch v.ListingMode {
	case ListingModeSale:
		if v.PricePerDay != nil {
			return ErrPricingExclusive
		}
		if v.PriceTotal == nil || *v.PriceTotal <= 0 {
			return ErrPriceTotalRequired
		}
	case ListingModeRental:
		if v.PriceTotal != nil {
			return ErrPricingExclusive
		}
		if v.PricePerDay == nil || *v.PricePerDay <= 0 {
			return ErrPricePerDayRequired
		}
	default:
		return ErrUnknownListingMode
	}
	return nil
}

// Label is the human readable name used in notifications.
func (v *Vehicle) Label() string {
	if v.Model == "" {
		return v.Make
	}
	return v.Make + " " + v.Model
}

// RegisterVehicleRequest is the body of POST /vehicles.
type RegisterVehicleRequest struct {
	ListingMode  ListingMode `json:"listing_mode" binding:"required,listing_mode"`
	Make         string      `json:"make" binding:"required,max=100"`
	Model        string      `json:"model" binding:"required,max=100"`
	Year         int         `json:"year" binding:"required,vehicle_year"`
	LicensePlate string      `json:"license_plate" binding:"required,license_plate"`
	Description  string      `json:"description" binding:"max=2000"`
	Location     string      `json:"location" binding:"max=200"`
	Mileage      *int        `json:"mileage" binding:"omitempty,gte=0"`
	Seats        *int        `json:"seats" binding:"omitempty,gte=1,lte=60"`
	PriceTotal   *float64    `json:"price_total" binding:"omitempty,gt=0"`
	PricePerDay  *float64    `json:"price_per_day" binding:"omitempty,gt=0"`
}

// VehicleListResponse wraps a page of vehicles.
type VehicleListResponse struct {
	Vehicles []Vehicle `json:"vehicles"`
}
