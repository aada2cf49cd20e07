package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// User is an application account. PlantID is nil for cross-plant users.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Login        string `db:"login" json:"login"`
	FullName     string `db:"full_name" json:"full_name"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"`
	PlantID      *int64 `db:"plant_id" json:"plant_id,omitempty"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByLogin gets an active user by login name
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	var user User
	query := `
		SELECT id, login, full_name, password_hash, role, plant_id, is_active
		FROM users WHERE login = $1 AND is_active = true
	`
	if err := r.db.GetContext(ctx, &user, query, login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	query := `
		SELECT id, login, full_name, password_hash, role, plant_id, is_active
		FROM users WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}
