// Package users reads marketplace accounts. Account management lives in the
// auth service; this service never writes users.
package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
)

// CodeUserNotFound is returned when a user id does not resolve.
const CodeUserNotFound = "USER_NOT_FOUND"

// Repository handles user lookups
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetUserByID returns an active user, or a NotFound AppError.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, email, first_name, last_name, role, is_active, created_at
		FROM users
		WHERE id = $1 AND is_active = true`, id,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("user not found", nil).WithCode(CodeUserNotFound)
		}
		return nil, common.NewInternalError("failed to load user", err)
	}
	return u, nil
}
