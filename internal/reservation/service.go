package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/vehicle-marketplace/internal/availability"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
	"github.com/richxcame/vehicle-marketplace/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "reservation-service"

// Error codes returned by this package.
const (
	CodeReservationNotFound    = "RESERVATION_NOT_FOUND"
	CodeVehicleAlreadyReserved = "VEHICLE_ALREADY_RESERVED"
	CodeDatesRequired          = "DATES_REQUIRED"
)

// Service orchestrates reservations, the availability index and the vehicle
// state projection. Every mutating operation runs in one transaction with the
// vehicle row locked.
type Service struct {
	tx           database.Transactor
	repo         RepositoryInterface
	vehicles     VehicleService
	state        VehicleState
	users        UserLookup
	availability AvailabilityIndex
	notifier     Notifier
	now          func() time.Time
}

// NewService creates a new reservation service
func NewService(tx database.Transactor, repo RepositoryInterface, vehicles VehicleService, state VehicleState, users UserLookup, availability AvailabilityIndex) *Service {
	return &Service{
		tx:           tx,
		repo:         repo,
		vehicles:     vehicles,
		state:        state,
		users:        users,
		availability: availability,
		now:          time.Now,
	}
}

// SetNotifier wires the notification pipeline. Without one, events are dropped.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock overrides the clock used for reservation and expiration dates.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewNotFoundError("reservation not found", nil).WithCode(CodeReservationNotFound)
	}
	return common.NewInternalError("failed to load reservation", err)
}

func alreadyReserved() error {
	return common.NewConflictError("the vehicle is already reserved").WithCode(CodeVehicleAlreadyReserved)
}

func observe(operation string, mode vehicle.ListingMode, start time.Time, err error) {
	operationsTotal.WithLabelValues(operation, string(mode), outcome(err)).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CreateReservation books a vehicle for userID. Sale listings are held
// outright; rental listings block the requested range.
func (s *Service) CreateReservation(ctx context.Context, userID uuid.UUID, req *CreateReservationRequest) (*Reservation, error) {
	start := time.Now()
	var (
		res *Reservation
		v   *vehicle.Vehicle
	)

	err := tracing.Run(ctx, tracerName, "reservation.create", tracing.ReservationAttributes(uuid.Nil, req.VehicleID), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			v, err = s.vehicles.LockVehicle(ctx, req.VehicleID)
			if err != nil {
				return err
			}
			if _, err := s.users.GetUserByID(ctx, userID); err != nil {
				return err
			}
			if !v.Validated {
				return common.NewBadRequestError("the vehicle has not been validated yet", nil).WithCode(vehicle.CodeVehicleNotValidated)
			}

			now := s.now()
			today := daterange.Today(s.now)
			res = &Reservation{
				ID:              uuid.New(),
				VehicleID:       v.ID,
				UserID:          userID,
				ReservationDate: today,
				Confirmed:       false,
				Status:          StatusPending,
				CreatedAt:       now,
				UpdatedAt:       now,
				OwnerID:         v.OwnerID,
				ListingMode:     v.ListingMode,
			}

			switch v.ListingMode {
			case vehicle.ListingModeSale:
				if v.Reserved {
					return alreadyReserved()
				}
				if v.PriceTotal == nil {
					return common.NewInternalError("sale vehicle has no price", nil)
				}
				res.Total = *v.PriceTotal
				res.ExpirationDate = today.AddMonths(1)
				if err := s.state.MarkReserved(ctx, v); err != nil {
					return common.NewInternalError("failed to reserve vehicle", err)
				}

			case vehicle.ListingModeRental:
				if req.StartDate == "" || req.EndDate == "" {
					return common.NewBadRequestError("start_date and end_date are required for rentals", nil).WithCode(CodeDatesRequired)
				}
				r, err := daterange.ParseRange(req.StartDate, req.EndDate)
				if err != nil {
					return availability.InvalidRange(err)
				}
				free, err := s.availability.IsFree(ctx, v.ID, r)
				if err != nil {
					return err
				}
				if !free {
					return availability.DatesUnavailable()
				}
				if v.PricePerDay == nil {
					return common.NewInternalError("rental vehicle has no daily price", nil)
				}
				res.StartDate = r.Start
				res.EndDate = r.End
				res.PricePerDay = v.PricePerDay
				res.Total = float64(r.Days()) * *v.PricePerDay

			default:
				return common.NewInternalError("vehicle has an unknown listing mode", nil)
			}

			if err := s.repo.Create(ctx, res); err != nil {
				if database.IsExclusionViolation(err) {
					return availability.DatesUnavailable()
				}
				return common.NewInternalError("failed to create reservation", err)
			}

			if res.Ranged() {
				if _, err := s.availability.AddBlock(ctx, v.ID, res.Range(), availability.ReasonPending); err != nil {
					return err
				}
			}
			return nil
		})
	})

	mode := vehicle.ListingMode("")
	if v != nil {
		mode = v.ListingMode
	}
	observe("create", mode, start, err)
	if err != nil {
		return nil, err
	}

	if res.Ranged() {
		s.availability.InvalidateCalendar(ctx, res.VehicleID)
	}
	logger.InfoContext(ctx, "reservation created",
		zap.String("reservation_id", res.ID.String()),
		zap.String("vehicle_id", res.VehicleID.String()),
		zap.String("listing_mode", string(res.ListingMode)),
		zap.Float64("total", res.Total),
	)
	s.publish(ctx, eventbus.SubjectReservationCreated, res, v, res.Status)
	return res, nil
}

// Decide records the owner's answer to a reservation. Repeating the same
// decision changes nothing beyond the timestamp.
func (s *Service) Decide(ctx context.Context, actor models.Actor, id uuid.UUID, confirm bool) (*Reservation, error) {
	start := time.Now()
	var (
		res *Reservation
		v   *vehicle.Vehicle
	)

	err := tracing.Run(ctx, tracerName, "reservation.decide", tracing.ReservationAttributes(id, uuid.Nil), func(ctx context.Context) error {
		tracing.AddSpanAttributes(ctx, attribute.Bool("reservation.confirm", confirm))
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			res, err = s.repo.GetByID(ctx, id)
			if err != nil {
				return notFound(err)
			}
			if !actor.CanManage(res.OwnerID) {
				return common.NewForbiddenError("only the vehicle owner can decide on this reservation")
			}
			v, err = s.vehicles.LockVehicle(ctx, res.VehicleID)
			if err != nil {
				return err
			}

			wasConfirmed := res.Confirmed
			wasHolding := res.HoldsSale()
			res.Confirmed = confirm
			res.Status = StatusFor(confirm)
			res.UpdatedAt = s.now()

			if v.ListingMode == vehicle.ListingModeSale {
				switch {
				case !confirm && wasHolding:
					if err := s.state.Release(ctx, v); err != nil {
						return common.NewInternalError("failed to release vehicle", err)
					}
				case confirm && !wasHolding:
					// A rejected reservation lost its hold; another buyer may
					// have taken the vehicle since.
					if v.Reserved {
						return alreadyReserved()
					}
					if err := s.state.MarkReserved(ctx, v); err != nil {
						return common.NewInternalError("failed to reserve vehicle", err)
					}
				}
			}

			if err := s.repo.UpdateDecision(ctx, res.ID, res.Confirmed, res.Status, res.UpdatedAt); err != nil {
				return notFound(err)
			}

			if wasConfirmed != confirm && res.Ranged() {
				if err := s.availability.UpdateBlockReason(ctx, res.VehicleID, res.Range(), availability.ReasonFor(confirm)); err != nil {
					return err
				}
			}
			return nil
		})
	})

	mode := vehicle.ListingMode("")
	if v != nil {
		mode = v.ListingMode
	}
	observe("decide", mode, start, err)
	if err != nil {
		return nil, err
	}

	if res.Ranged() {
		s.availability.InvalidateCalendar(ctx, res.VehicleID)
	}
	logger.InfoContext(ctx, "reservation decided",
		zap.String("reservation_id", res.ID.String()),
		zap.String("status", string(res.Status)),
		zap.String("decided_by", actor.UserID.String()),
	)

	subject := eventbus.SubjectReservationRejected
	if confirm {
		subject = eventbus.SubjectReservationConfirmed
	}
	s.publish(ctx, subject, res, v, res.Status)
	return res, nil
}

// Cancel withdraws a reservation. The record is deleted, its calendar block
// removed and a held sale vehicle released.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id uuid.UUID) (*Reservation, error) {
	start := time.Now()
	var (
		res *Reservation
		v   *vehicle.Vehicle
	)

	err := tracing.Run(ctx, tracerName, "reservation.cancel", tracing.ReservationAttributes(id, uuid.Nil), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			res, err = s.repo.GetByID(ctx, id)
			if err != nil {
				return notFound(err)
			}
			if res.UserID != actor.UserID {
				return common.NewForbiddenError("only the requester can cancel this reservation")
			}
			v, err = s.vehicles.LockVehicle(ctx, res.VehicleID)
			if err != nil {
				return err
			}

			if res.HoldsSale() {
				if err := s.state.Release(ctx, v); err != nil {
					return common.NewInternalError("failed to release vehicle", err)
				}
			}
			if res.Ranged() {
				if err := s.availability.RemoveBlock(ctx, res.VehicleID, res.Range()); err != nil {
					return err
				}
			}
			if err := s.repo.Delete(ctx, res.ID); err != nil {
				return notFound(err)
			}
			return nil
		})
	})

	mode := vehicle.ListingMode("")
	if v != nil {
		mode = v.ListingMode
	}
	observe("cancel", mode, start, err)
	if err != nil {
		return nil, err
	}

	if res.Ranged() {
		s.availability.InvalidateCalendar(ctx, res.VehicleID)
	}
	res.Status = StatusCancelled
	logger.InfoContext(ctx, "reservation cancelled",
		zap.String("reservation_id", res.ID.String()),
		zap.String("vehicle_id", res.VehicleID.String()),
	)
	s.publish(ctx, eventbus.SubjectReservationCancelled, res, v, StatusCancelled)
	return res, nil
}

// GetReservation returns a reservation visible to the requester, the vehicle
// owner and admins.
func (s *Service) GetReservation(ctx context.Context, actor models.Actor, id uuid.UUID) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if res.UserID != actor.UserID && !actor.CanManage(res.OwnerID) {
		return nil, common.NewForbiddenError("you do not have access to this reservation")
	}
	return res, nil
}

// ListReservations returns every reservation. Admin only; enforced by the handler.
func (s *Service) ListReservations(ctx context.Context, limit, offset int) ([]*Reservation, int64, error) {
	list, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reservations", err)
	}
	return list, total, nil
}

// ListByOwner returns reservations on an owner's vehicles.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Reservation, int64, error) {
	list, total, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reservations", err)
	}
	return list, total, nil
}

// ListByRequester returns reservations made by a user.
func (s *Service) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Reservation, int64, error) {
	list, total, err := s.repo.ListByRequester(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reservations", err)
	}
	return list, total, nil
}

// publish hands the event to the notifier. Nothing here can fail the
// operation: the reservation is already committed. The event names parties
// by id only; the mailer resolves addresses off the request path.
func (s *Service) publish(ctx context.Context, subject string, res *Reservation, v *vehicle.Vehicle, status Status) {
	if s.notifier == nil {
		return
	}

	data := &eventbus.ReservationEventData{
		ReservationID: res.ID,
		VehicleID:     res.VehicleID,
		VehicleLabel:  v.Label(),
		ListingMode:   string(res.ListingMode),
		Status:        string(status),
		Confirmed:     res.Confirmed,
		StartDate:     res.StartDate.String(),
		EndDate:       res.EndDate.String(),
		Total:         res.Total,
		RequesterID:   res.UserID,
		OwnerID:       res.OwnerID,
		OccurredAt:    s.now().UTC(),
	}
	if !res.ExpirationDate.IsZero() {
		data.ExpirationDate = res.ExpirationDate.String()
	}

	if err := s.notifier.Notify(ctx, subject, data); err != nil {
		notifyFailures.WithLabelValues(subject).Inc()
		logger.WarnContext(ctx, "failed to enqueue reservation notification",
			zap.String("subject", subject),
			zap.String("reservation_id", res.ID.String()),
			zap.Error(err),
		)
	}
}
