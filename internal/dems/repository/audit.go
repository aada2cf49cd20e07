package repository

import (
	"context"
	"time"

	"github.com/pspdems/dems-backend/pkg/database"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

// Audit actions
const (
	AuditLogin           = "login"
	AuditIndentCreated   = "indent_created"
	AuditIndentSubmitted = "indent_submitted"
	AuditIndentApproved  = "indent_approved"
	AuditIndentRejected  = "indent_rejected"
	AuditIndentReceived  = "indent_received"
	AuditDisposal        = "disposal_recorded"
)

// AuditLog is one audit trail row. CreatedAt is stored in UTC; listings
// carry the IST display form alongside.
type AuditLog struct {
	ID           int64     `db:"id" json:"id"`
	ActorKey     string    `db:"actor_key" json:"actor_key"`
	Action       string    `db:"action" json:"action"`
	Entity       string    `db:"entity" json:"entity"`
	EntityID     int64     `db:"entity_id" json:"entity_id"`
	Detail       string    `db:"detail" json:"detail"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	CreatedAtIST string    `db:"-" json:"created_at_ist,omitempty"`
}

// AuditRepository handles the audit trail. Whether login events are recorded
// depends on the schema capability descriptor: older schemas predate the
// login_audit migration and skip those writes.
type AuditRepository struct {
	db   *database.DB
	caps *database.SchemaCapabilities
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB, caps *database.SchemaCapabilities) *AuditRepository {
	return &AuditRepository{db: db, caps: caps}
}

// Write appends an audit row. Login rows are dropped when the schema has no
// login audit support.
func (r *AuditRepository) Write(ctx context.Context, entry *AuditLog) error {
	if entry.Action == AuditLogin && !r.caps.HasLoginAudit {
		return nil
	}

	query := `
		INSERT INTO audit_logs (actor_key, action, entity, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		entry.ActorKey, entry.Action, entry.Entity, entry.EntityID, entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// List lists audit rows newest first with IST display timestamps attached
func (r *AuditRepository) List(ctx context.Context, limit int) ([]*AuditLog, error) {
	var entries []*AuditLog
	query := `
		SELECT id, actor_key, action, entity, entity_id, detail, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	for _, e := range entries {
		e.CreatedAtIST = timeutil.ToIST(e.CreatedAt).Format("02-01-2006 15:04:05")
	}
	return entries, nil
}
