package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/pspdems/dems-backend/pkg/database"
)

// ReminderSettings configures the daily medical-check reminder.
// SendAt is a 24h "HH:MM" wall-clock time.
type ReminderSettings struct {
	SendAt     string `db:"send_at" json:"send_at"`
	Enabled    bool   `db:"enabled" json:"enabled"`
	Recipients string `db:"recipients" json:"recipients"`
}

// RecipientList splits the comma-separated recipients column.
func (s *ReminderSettings) RecipientList() []string {
	if s == nil || s.Recipients == "" {
		return nil
	}
	parts := strings.Split(s.Recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ReminderRepository reads reminder configuration. The worker re-reads it
// every cycle so settings changes take effect without a restart.
type ReminderRepository struct {
	db *database.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Get reads the reminder settings row. Returns nil when none is configured.
func (r *ReminderRepository) Get(ctx context.Context) (*ReminderSettings, error) {
	var settings ReminderSettings
	query := `SELECT send_at, enabled, recipients FROM reminder_settings LIMIT 1`
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}
