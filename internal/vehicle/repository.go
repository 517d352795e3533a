package vehicle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
)

const vehicleColumns = `
	id, owner_id, listing_mode, make, model, year, license_plate,
	description, location, mileage, seats, price_total, price_per_day,
	reserved, available, validated, created_at, updated_at`

// Repository handles vehicle data access. Queries join the transaction
// carried by ctx when there is one.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new vehicle repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	v := &Vehicle{}
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.ListingMode, &v.Make, &v.Model, &v.Year, &v.LicensePlate,
		&v.Description, &v.Location, &v.Mileage, &v.Seats, &v.PriceTotal, &v.PricePerDay,
		&v.Reserved, &v.Available, &v.Validated, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVehicle registers a new vehicle
func (r *Repository) CreateVehicle(ctx context.Context, v *Vehicle) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vehicles (`+vehicleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		v.ID, v.OwnerID, v.ListingMode, v.Make, v.Model, v.Year, v.LicensePlate,
		v.Description, v.Location, v.Mileage, v.Seats, v.PriceTotal, v.PricePerDay,
		v.Reserved, v.Available, v.Validated, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

// GetVehicleByID retrieves a vehicle by ID
func (r *Repository) GetVehicleByID(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	return scanVehicle(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
}

// GetVehicleByIDForUpdate retrieves and row-locks a vehicle
func (r *Repository) GetVehicleByIDForUpdate(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	return scanVehicle(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 FOR UPDATE`, id))
}

// GetVehiclesByOwner returns a page of an owner's vehicles with the total count
func (r *Repository) GetVehiclesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Vehicle, int64, error) {
	q := r.conn(ctx)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	vehicles := make([]Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, total, rows.Err()
}

// UpdateVehicleState writes the reserved/available flags
func (r *Repository) UpdateVehicleState(ctx context.Context, id uuid.UUID, reserved, available bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vehicles SET reserved = $2, available = $3, updated_at = $4
		WHERE id = $1`, id, reserved, available, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetValidated records the admin review outcome
func (r *Repository) SetValidated(ctx context.Context, id uuid.UUID, validated bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vehicles SET validated = $2, updated_at = $3
		WHERE id = $1`, id, validated, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
