package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// Plant represents a manufacturing plant / site
type Plant struct {
	ID    int64  `db:"id" json:"id"`
	Code  string `db:"code" json:"code"`
	Name  string `db:"name" json:"name"`
	IsBCM bool   `db:"is_bcm" json:"is_bcm"`
}

// PlantRepository handles plant reference data
type PlantRepository struct {
	db *database.DB
}

// NewPlantRepository creates a new plant repository
func NewPlantRepository(db *database.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

// GetByID gets a plant by ID
func (r *PlantRepository) GetByID(ctx context.Context, id int64) (*Plant, error) {
	var plant Plant
	query := `SELECT id, code, name, is_bcm FROM plants WHERE id = $1`
	if err := r.db.GetContext(ctx, &plant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("plant")
		}
		return nil, err
	}
	return &plant, nil
}

// List lists all plants ordered by code
func (r *PlantRepository) List(ctx context.Context) ([]*Plant, error) {
	var plants []*Plant
	query := `SELECT id, code, name, is_bcm FROM plants ORDER BY code`
	if err := r.db.SelectContext(ctx, &plants, query); err != nil {
		return nil, err
	}
	return plants, nil
}
