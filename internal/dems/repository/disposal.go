package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// Disposal records the write-off of an expired batch.
type Disposal struct {
	ID           int64     `db:"id" json:"id"`
	Scope        string    `db:"scope" json:"scope"`
	BatchID      int64     `db:"batch_id" json:"batch_id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	BatchNo      string    `db:"batch_no" json:"batch_no"`
	Quantity     int       `db:"quantity" json:"quantity"`
	DisposedBy   string    `db:"disposed_by" json:"disposed_by"`
	DisposedAt   time.Time `db:"disposed_at" json:"disposed_at"`
}

// DisposalRepository handles disposal persistence
type DisposalRepository struct {
	db *database.DB
}

// NewDisposalRepository creates a new disposal repository
func NewDisposalRepository(db *database.DB) *DisposalRepository {
	return &DisposalRepository{db: db}
}

// Record zeroes the batch stock and inserts the disposal row in one
// transaction. A failed insert (unique violation, transient error) rolls the
// stock back, so a batch is never written off without its disposal record.
func (r *DisposalRepository) Record(ctx context.Context, d *Disposal) error {
	table, err := tableFor(Scope(d.Scope))
	if err != nil {
		return err
	}
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET available_stock = 0 WHERE id = $1`, table), d.BatchID)
		if err != nil {
			return err
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return apperrors.NotFound("batch")
		}

		query := `
			INSERT INTO disposals (scope, batch_id, medicine_name, batch_no, quantity, disposed_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, disposed_at
		`
		return tx.QueryRowxContext(ctx, query,
			d.Scope, d.BatchID, d.MedicineName, d.BatchNo, d.Quantity, d.DisposedBy,
		).Scan(&d.ID, &d.DisposedAt)
	})
}

// List lists disposals, newest first
func (r *DisposalRepository) List(ctx context.Context, limit int) ([]*Disposal, error) {
	var disposals []*Disposal
	query := `
		SELECT id, scope, batch_id, medicine_name, batch_no, quantity, disposed_by, disposed_at
		FROM disposals ORDER BY disposed_at DESC LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &disposals, query, limit); err != nil {
		return nil, err
	}
	return disposals, nil
}
