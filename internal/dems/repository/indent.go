package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// Indent status values
const (
	StatusDraft    = "Draft"
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// IndentHeader is a medicine requisition header.
// CreatedBy holds the creator key "login - full name".
type IndentHeader struct {
	ID         int64     `db:"id" json:"id"`
	PlantID    int64     `db:"plant_id" json:"plant_id"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	Status     string    `db:"status" json:"status"`
	IndentDate time.Time `db:"indent_date" json:"indent_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// IndentItem is a requisition line: raised vs. received quantity.
type IndentItem struct {
	ID          int64 `db:"id" json:"id"`
	IndentID    int64 `db:"indent_id" json:"indent_id"`
	MedItemID   int64 `db:"med_item_id" json:"med_item_id"`
	RaisedQty   int   `db:"raised_qty" json:"raised_qty"`
	ReceivedQty int   `db:"received_qty" json:"received_qty"`
}

// IndentWithItems bundles a header with its line items
type IndentWithItems struct {
	IndentHeader
	Items []*IndentItem `json:"items"`
}

// IndentFilter scopes indent queries. Nil fields apply no filter; CreatedBy
// carries the creator key when record-level visibility restriction applies.
type IndentFilter struct {
	PlantID   *int64
	CreatedBy *string
	Status    string
}

func (f IndentFilter) where() (string, []interface{}) {
	clause := " WHERE 1=1"
	var args []interface{}
	if f.PlantID != nil {
		args = append(args, *f.PlantID)
		clause += fmt.Sprintf(" AND h.plant_id = $%d", len(args))
	}
	if f.CreatedBy != nil {
		args = append(args, *f.CreatedBy)
		clause += fmt.Sprintf(" AND h.created_by = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clause += fmt.Sprintf(" AND h.status = $%d", len(args))
	}
	return clause, args
}

// IndentRepository handles indent persistence
type IndentRepository struct {
	db *database.DB
}

// NewIndentRepository creates a new indent repository
func NewIndentRepository(db *database.DB) *IndentRepository {
	return &IndentRepository{db: db}
}

// Create inserts a draft header with its items in one transaction
func (r *IndentRepository) Create(ctx context.Context, header *IndentHeader, items []*IndentItem) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO indent_headers (plant_id, created_by, status, indent_date)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(ctx, query,
			header.PlantID, header.CreatedBy, header.Status, header.IndentDate,
		).Scan(&header.ID, &header.CreatedAt); err != nil {
			return err
		}

		for _, item := range items {
			item.IndentID = header.ID
			itemQuery := `
				INSERT INTO indent_items (indent_id, med_item_id, raised_qty, received_qty)
				VALUES ($1, $2, $3, 0)
				RETURNING id
			`
			if err := tx.QueryRowxContext(ctx, itemQuery,
				item.IndentID, item.MedItemID, item.RaisedQty,
			).Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID gets an indent with its items
func (r *IndentRepository) GetByID(ctx context.Context, id int64) (*IndentWithItems, error) {
	var header IndentHeader
	query := `
		SELECT h.id, h.plant_id, h.created_by, h.status, h.indent_date, h.created_at
		FROM indent_headers h WHERE h.id = $1
	`
	if err := r.db.GetContext(ctx, &header, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("indent")
		}
		return nil, err
	}

	var items []*IndentItem
	itemQuery := `
		SELECT id, indent_id, med_item_id, raised_qty, received_qty
		FROM indent_items WHERE indent_id = $1 ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &items, itemQuery, id); err != nil {
		return nil, err
	}

	return &IndentWithItems{IndentHeader: header, Items: items}, nil
}

// ReplaceItems replaces a draft's line items
func (r *IndentRepository) ReplaceItems(ctx context.Context, indentID int64, items []*IndentItem) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM indent_items WHERE indent_id = $1`, indentID); err != nil {
			return err
		}
		for _, item := range items {
			item.IndentID = indentID
			query := `
				INSERT INTO indent_items (indent_id, med_item_id, raised_qty, received_qty)
				VALUES ($1, $2, $3, 0)
				RETURNING id
			`
			if err := tx.QueryRowxContext(ctx, query,
				item.IndentID, item.MedItemID, item.RaisedQty,
			).Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetStatus updates an indent's status
func (r *IndentRepository) SetStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE indent_headers SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("indent")
	}
	return nil
}

// List lists indent headers matching the filter, newest first
func (r *IndentRepository) List(ctx context.Context, filter IndentFilter) ([]*IndentHeader, error) {
	clause, args := filter.where()
	query := `
		SELECT h.id, h.plant_id, h.created_by, h.status, h.indent_date, h.created_at
		FROM indent_headers h` + clause + ` ORDER BY h.indent_date DESC, h.id DESC`

	var headers []*IndentHeader
	if err := r.db.SelectContext(ctx, &headers, query, args...); err != nil {
		return nil, err
	}
	return headers, nil
}

// ListBetween lists indent headers matching the filter with indent_date in
// [from, to], oldest first. Used by the indent register report.
func (r *IndentRepository) ListBetween(ctx context.Context, filter IndentFilter, from, to time.Time) ([]*IndentHeader, error) {
	clause, args := filter.where()
	args = append(args, from)
	clause += fmt.Sprintf(" AND h.indent_date >= $%d", len(args))
	args = append(args, to)
	clause += fmt.Sprintf(" AND h.indent_date <= $%d", len(args))

	query := `
		SELECT h.id, h.plant_id, h.created_by, h.status, h.indent_date, h.created_at
		FROM indent_headers h` + clause + ` ORDER BY h.indent_date, h.id`

	var headers []*IndentHeader
	if err := r.db.SelectContext(ctx, &headers, query, args...); err != nil {
		return nil, err
	}
	return headers, nil
}

// CountByStatus counts indents with the given status under the filter
func (r *IndentRepository) CountByStatus(ctx context.Context, filter IndentFilter, status string) (int, error) {
	filter.Status = status
	clause, args := filter.where()
	query := `SELECT COUNT(*) FROM indent_headers h` + clause

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// CountAwaitingReceipt counts Approved indents that still have at least one
// item with raised_qty > received_qty.
func (r *IndentRepository) CountAwaitingReceipt(ctx context.Context, filter IndentFilter) (int, error) {
	filter.Status = StatusApproved
	clause, args := filter.where()
	query := `
		SELECT COUNT(*) FROM indent_headers h` + clause + `
		AND EXISTS (
			SELECT 1 FROM indent_items i
			WHERE i.indent_id = h.id AND i.raised_qty > i.received_qty
		)`

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// IndentTotals aggregates the line items of one indent
type IndentTotals struct {
	ItemCount     int `db:"item_count"`
	RaisedTotal   int `db:"raised_total"`
	ReceivedTotal int `db:"received_total"`
}

// ItemTotals sums raised and received quantities across an indent's lines
func (r *IndentRepository) ItemTotals(ctx context.Context, indentID int64) (*IndentTotals, error) {
	var totals IndentTotals
	query := `
		SELECT COUNT(*) AS item_count,
		       COALESCE(SUM(raised_qty), 0) AS raised_total,
		       COALESCE(SUM(received_qty), 0) AS received_total
		FROM indent_items WHERE indent_id = $1
	`
	if err := r.db.GetContext(ctx, &totals, query, indentID); err != nil {
		return nil, err
	}
	return &totals, nil
}

// GetItem gets a single indent line
func (r *IndentRepository) GetItem(ctx context.Context, itemID int64) (*IndentItem, error) {
	var item IndentItem
	query := `
		SELECT id, indent_id, med_item_id, raised_qty, received_qty
		FROM indent_items WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &item, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("indent item")
		}
		return nil, err
	}
	return &item, nil
}

// AddReceipt accumulates a received quantity on an indent line
func (r *IndentRepository) AddReceipt(ctx context.Context, itemID int64, qty int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE indent_items SET received_qty = received_qty + $2 WHERE id = $1`, itemID, qty)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("indent item")
	}
	return nil
}
