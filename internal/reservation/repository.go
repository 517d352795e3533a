package reservation

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
)

const selectReservation = `
	SELECT r.id, r.vehicle_id, r.user_id, r.reservation_date, r.start_date, r.end_date,
	       r.expiration_date, r.price_per_day, r.total, r.confirmed, r.status,
	       r.created_at, r.updated_at, v.owner_id, v.listing_mode
	FROM reservations r
	JOIN vehicles v ON v.id = r.vehicle_id`

// Repository handles reservation data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reservation repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	res := &Reservation{}
	err := row.Scan(
		&res.ID, &res.VehicleID, &res.UserID, &res.ReservationDate, &res.StartDate, &res.EndDate,
		&res.ExpirationDate, &res.PricePerDay, &res.Total, &res.Confirmed, &res.Status,
		&res.CreatedAt, &res.UpdatedAt, &res.OwnerID, &res.ListingMode,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts a new reservation
func (r *Repository) Create(ctx context.Context, res *Reservation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reservations (
			id, vehicle_id, user_id, reservation_date, start_date, end_date,
			expiration_date, price_per_day, total, confirmed, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		res.ID, res.VehicleID, res.UserID, res.ReservationDate, res.StartDate, res.EndDate,
		res.ExpirationDate, res.PricePerDay, res.Total, res.Confirmed, res.Status, res.CreatedAt, res.UpdatedAt,
	)
	return err
}

// GetByID retrieves a reservation with its vehicle's owner and listing mode
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return scanReservation(r.conn(ctx).QueryRow(ctx, selectReservation+` WHERE r.id = $1`, id))
}

// UpdateDecision stores the owner's decision
func (r *Repository) UpdateDecision(ctx context.Context, id uuid.UUID, confirmed bool, status Status, updatedAt time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reservations SET confirmed = $2, status = $3, updated_at = $4
		WHERE id = $1`, id, confirmed, status, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a reservation
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// HasOverlappingReservation applies the half-open overlap test to the
// vehicle's ranged reservations
func (r *Repository) HasOverlappingReservation(ctx context.Context, vehicleID uuid.UUID, rng daterange.Range) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE vehicle_id = $1
			  AND start_date IS NOT NULL
			  AND start_date < $3 AND end_date > $2
		)`, vehicleID, rng.Start, rng.End).Scan(&exists)
	return exists, err
}

// List returns a page of all reservations
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Reservation, int64, error) {
	return r.list(ctx, "", nil, limit, offset)
}

// ListByOwner returns reservations on vehicles owned by ownerID
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Reservation, int64, error) {
	return r.list(ctx, "v.owner_id = $1", ownerID, limit, offset)
}

// ListByRequester returns reservations made by requesterID
func (r *Repository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Reservation, int64, error) {
	return r.list(ctx, "r.user_id = $1", requesterID, limit, offset)
}

func (r *Repository) list(ctx context.Context, filter string, filterArg interface{}, limit, offset int) ([]*Reservation, int64, error) {
	q := r.conn(ctx)

	where := ""
	args := []interface{}{}
	if filter != "" {
		where = " WHERE " + filter
		args = append(args, filterArg)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM reservations r JOIN vehicles v ON v.id = r.vehicle_id` + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := selectReservation + where + ` ORDER BY r.created_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reservations := make([]*Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, err
		}
		reservations = append(reservations, res)
	}
	return reservations, total, rows.Err()
}
