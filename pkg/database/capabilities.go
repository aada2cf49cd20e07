package database

import (
	"context"
	"database/sql"
	"errors"
)

// SchemaCapabilities is a versioned descriptor of optional schema features.
// It replaces runtime INFORMATION_SCHEMA probing: the migration that adds an
// optional table also bumps schema_meta, and code consults this struct
// instead of introspecting.
type SchemaCapabilities struct {
	Version       int  `db:"version"`
	HasLoginAudit bool `db:"has_login_audit"`
}

// LoadCapabilities reads the schema capability descriptor. A missing row is
// treated as the zero (oldest) schema rather than an error, so deployments
// that predate schema_meta keep working with all optional features off.
func LoadCapabilities(ctx context.Context, db *DB) (*SchemaCapabilities, error) {
	var caps SchemaCapabilities
	query := `SELECT version, has_login_audit FROM schema_meta ORDER BY version DESC LIMIT 1`
	if err := db.GetContext(ctx, &caps, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &SchemaCapabilities{}, nil
		}
		return nil, err
	}
	return &caps, nil
}
