package availability

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/vehicle-marketplace/internal/daterange"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
)

const blockColumns = `id, vehicle_id, start_date, end_date, reason, manual, created_at`

// Repository handles availability block data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new availability repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

func scanBlock(row pgx.Row) (*Block, error) {
	b := &Block{}
	if err := row.Scan(&b.ID, &b.VehicleID, &b.StartDate, &b.EndDate, &b.Reason, &b.Manual, &b.CreatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBlocks returns every block of a vehicle ordered by start date
func (r *Repository) ListBlocks(ctx context.Context, vehicleID uuid.UUID) ([]Block, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+blockColumns+`
		FROM availability_blocks
		WHERE vehicle_id = $1
		ORDER BY start_date, created_at`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := make([]Block, 0)
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

// HasOverlappingBlock applies the half-open overlap test in SQL
func (r *Repository) HasOverlappingBlock(ctx context.Context, vehicleID uuid.UUID, rng daterange.Range) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_blocks
			WHERE vehicle_id = $1 AND start_date < $3 AND end_date > $2
		)`, vehicleID, rng.Start, rng.End).Scan(&exists)
	return exists, err
}

// InsertBlock stores a block
func (r *Repository) InsertBlock(ctx context.Context, b *Block) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_blocks (`+blockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.VehicleID, b.StartDate, b.EndDate, b.Reason, b.Manual, b.CreatedAt,
	)
	return err
}

// UpdateBlockReason rewrites the reason of reservation blocks with exactly rng
func (r *Repository) UpdateBlockReason(ctx context.Context, vehicleID uuid.UUID, rng daterange.Range, reason Reason) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_blocks SET reason = $4
		WHERE vehicle_id = $1 AND start_date = $2 AND end_date = $3 AND manual = false`,
		vehicleID, rng.Start, rng.End, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteBlocksByRange removes reservation blocks with exactly rng
func (r *Repository) DeleteBlocksByRange(ctx context.Context, vehicleID uuid.UUID, rng daterange.Range) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM availability_blocks
		WHERE vehicle_id = $1 AND start_date = $2 AND end_date = $3 AND manual = false`,
		vehicleID, rng.Start, rng.End)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetBlockByID retrieves a single block
func (r *Repository) GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	return scanBlock(r.conn(ctx).QueryRow(ctx,
		`SELECT `+blockColumns+` FROM availability_blocks WHERE id = $1`, id))
}

// DeleteBlock removes a block by id
func (r *Repository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_blocks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
