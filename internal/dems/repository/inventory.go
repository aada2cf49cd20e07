package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// Scope selects which inventory a batch query runs against.
type Scope string

const (
	ScopeStore      Scope = "store"
	ScopeCompounder Scope = "compounder"
)

// AllScopes lists the concrete scopes in merge order.
var AllScopes = []Scope{ScopeStore, ScopeCompounder}

func tableFor(scope Scope) (string, error) {
	switch scope {
	case ScopeStore:
		return "store_inventory", nil
	case ScopeCompounder:
		return "compounder_inventory", nil
	}
	return "", fmt.Errorf("unknown inventory scope %q", scope)
}

// Batch is a lot of a medicine with its own expiry date and stock count.
// It reaches a plant through its indent item's header.
type Batch struct {
	ID             int64     `db:"id" json:"id"`
	IndentItemID   int64     `db:"indent_item_id" json:"indent_item_id"`
	BatchNo        string    `db:"batch_no" json:"batch_no"`
	ExpiryDate     time.Time `db:"expiry_date" json:"expiry_date"`
	AvailableStock int       `db:"available_stock" json:"available_stock"`
	VendorCode     string    `db:"vendor_code" json:"vendor_code"`
}

// StockRow is one (medicine, plant) aggregate from the grouped stock query.
// ReorderLevel is nil when the medicine master has no explicit level.
type StockRow struct {
	MedItemID      int64  `db:"med_item_id"`
	MedicineName   string `db:"medicine_name"`
	PlantID        int64  `db:"plant_id"`
	ReorderLevel   *int   `db:"reorder_level"`
	TotalAvailable int    `db:"total_available"`
}

// ExpiryRow is one batch projected for near-expiry/expired listings.
type ExpiryRow struct {
	BatchID        int64     `db:"batch_id" json:"BatchId"`
	MedicineName   string    `db:"medicine_name" json:"MedicineName"`
	BatchNo        string    `db:"batch_no" json:"BatchNo"`
	ExpiryDate     time.Time `db:"expiry_date" json:"ExpiryDate"`
	AvailableStock int       `db:"available_stock" json:"AvailableStock"`
	VendorCode     string    `db:"vendor_code" json:"VendorCode"`
	Source         Scope     `db:"-" json:"Source,omitempty"`
}

// BatchFilter scopes batch queries by plant and, when the BCM visibility
// rule applies, by the indent creator key.
type BatchFilter struct {
	PlantID   *int64
	CreatedBy *string
}

func (f BatchFilter) where(args []interface{}) (string, []interface{}) {
	clause := ""
	if f.PlantID != nil {
		args = append(args, *f.PlantID)
		clause += fmt.Sprintf(" AND h.plant_id = $%d", len(args))
	}
	if f.CreatedBy != nil {
		args = append(args, *f.CreatedBy)
		clause += fmt.Sprintf(" AND h.created_by = $%d", len(args))
	}
	return clause, args
}

// InventoryRepository handles batch persistence across both inventory scopes
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// CreateBatch inserts a batch into the scope's inventory
func (r *InventoryRepository) CreateBatch(ctx context.Context, scope Scope, batch *Batch) error {
	table, err := tableFor(scope)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (indent_item_id, batch_no, expiry_date, available_stock, vendor_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, table)
	return r.db.QueryRowxContext(ctx, query,
		batch.IndentItemID, batch.BatchNo, batch.ExpiryDate, batch.AvailableStock, batch.VendorCode,
	).Scan(&batch.ID)
}

// GetBatch gets a batch by ID within a scope
func (r *InventoryRepository) GetBatch(ctx context.Context, scope Scope, id int64) (*Batch, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}
	var batch Batch
	query := fmt.Sprintf(`
		SELECT id, indent_item_id, batch_no, expiry_date, available_stock, vendor_code
		FROM %s WHERE id = $1
	`, table)
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// BatchDetail gets one batch with its medicine name attached
func (r *InventoryRepository) BatchDetail(ctx context.Context, scope Scope, id int64) (*ExpiryRow, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}
	var row ExpiryRow
	query := fmt.Sprintf(`
		SELECT b.id AS batch_id, m.name AS medicine_name, b.batch_no,
		       b.expiry_date, b.available_stock, b.vendor_code
		FROM %s b
		JOIN indent_items i ON b.indent_item_id = i.id
		JOIN medicine_items m ON i.med_item_id = m.id
		WHERE b.id = $1
	`, table)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("batch")
		}
		return nil, err
	}
	row.Source = scope
	return &row, nil
}

// StockTotals runs the grouped stock query for one scope: batches joined
// through indent items and headers, grouped by (medicine, plant), summing
// available stock. Zero-stock batches participate, so a medicine whose
// batches are all empty still yields a zero row; a medicine with no batches
// yields no row at all.
func (r *InventoryRepository) StockTotals(ctx context.Context, scope Scope, filter BatchFilter) ([]StockRow, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}

	var args []interface{}
	clause, args := filter.where(args)

	query := fmt.Sprintf(`
		SELECT m.id AS med_item_id, m.name AS medicine_name, h.plant_id,
		       m.reorder_level, COALESCE(SUM(b.available_stock), 0) AS total_available
		FROM %s b
		JOIN indent_items i ON b.indent_item_id = i.id
		JOIN indent_headers h ON i.indent_id = h.id
		JOIN medicine_items m ON i.med_item_id = m.id
		WHERE 1=1%s
		GROUP BY m.id, m.name, h.plant_id, m.reorder_level
		ORDER BY total_available, m.name
	`, table, clause)

	var rows []StockRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpiringBatches lists batches with stock whose expiry date falls in
// [from, to] inclusive, earliest expiry first.
func (r *InventoryRepository) ExpiringBatches(ctx context.Context, scope Scope, filter BatchFilter, from, to time.Time) ([]ExpiryRow, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}

	args := []interface{}{from, to}
	clause, args := filter.where(args)

	query := fmt.Sprintf(`
		SELECT b.id AS batch_id, m.name AS medicine_name, b.batch_no,
		       b.expiry_date, b.available_stock, b.vendor_code
		FROM %s b
		JOIN indent_items i ON b.indent_item_id = i.id
		JOIN indent_headers h ON i.indent_id = h.id
		JOIN medicine_items m ON i.med_item_id = m.id
		WHERE b.available_stock > 0
		  AND b.expiry_date >= $1 AND b.expiry_date <= $2%s
		ORDER BY b.expiry_date, m.name
	`, table, clause)

	return r.selectExpiryRows(ctx, scope, query, args)
}

// ExpiredBatches lists batches with stock whose expiry date is strictly
// before the pivot date.
func (r *InventoryRepository) ExpiredBatches(ctx context.Context, scope Scope, filter BatchFilter, before time.Time) ([]ExpiryRow, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}

	args := []interface{}{before}
	clause, args := filter.where(args)

	query := fmt.Sprintf(`
		SELECT b.id AS batch_id, m.name AS medicine_name, b.batch_no,
		       b.expiry_date, b.available_stock, b.vendor_code
		FROM %s b
		JOIN indent_items i ON b.indent_item_id = i.id
		JOIN indent_headers h ON i.indent_id = h.id
		JOIN medicine_items m ON i.med_item_id = m.id
		WHERE b.available_stock > 0 AND b.expiry_date < $1%s
		ORDER BY b.expiry_date, m.name
	`, table, clause)

	return r.selectExpiryRows(ctx, scope, query, args)
}

// ExpiredPendingDisposal lists expired batches with stock that have no
// disposal recorded yet.
func (r *InventoryRepository) ExpiredPendingDisposal(ctx context.Context, scope Scope, filter BatchFilter, before time.Time) ([]ExpiryRow, error) {
	table, err := tableFor(scope)
	if err != nil {
		return nil, err
	}

	args := []interface{}{before, string(scope)}
	clause, args := filter.where(args)

	query := fmt.Sprintf(`
		SELECT b.id AS batch_id, m.name AS medicine_name, b.batch_no,
		       b.expiry_date, b.available_stock, b.vendor_code
		FROM %s b
		JOIN indent_items i ON b.indent_item_id = i.id
		JOIN indent_headers h ON i.indent_id = h.id
		JOIN medicine_items m ON i.med_item_id = m.id
		WHERE b.available_stock > 0 AND b.expiry_date < $1
		  AND NOT EXISTS (
			SELECT 1 FROM disposals d
			WHERE d.scope = $2 AND d.batch_id = b.id
		  )%s
		ORDER BY b.expiry_date, m.name
	`, table, clause)

	return r.selectExpiryRows(ctx, scope, query, args)
}

func (r *InventoryRepository) selectExpiryRows(ctx context.Context, scope Scope, query string, args []interface{}) ([]ExpiryRow, error) {
	var rows []ExpiryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for idx := range rows {
		rows[idx].Source = scope
	}
	return rows, nil
}
