package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// MedicineItem is immutable reference data for a medicine.
// ReorderLevel is nullable; callers apply the configured fallback when unset.
type MedicineItem struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	ReorderLevel *int   `db:"reorder_level" json:"reorder_level,omitempty"`
}

// MedicineRepository handles the medicine master list
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// GetByID gets a medicine by ID
func (r *MedicineRepository) GetByID(ctx context.Context, id int64) (*MedicineItem, error) {
	var item MedicineItem
	query := `SELECT id, name, reorder_level FROM medicine_items WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medicine")
		}
		return nil, err
	}
	return &item, nil
}

// List lists the full medicine master ordered by name. Report endpoints use
// this to distinguish "no batches anywhere" from "zero stock".
func (r *MedicineRepository) List(ctx context.Context) ([]*MedicineItem, error) {
	var items []*MedicineItem
	query := `SELECT id, name, reorder_level FROM medicine_items ORDER BY name`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}
