package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pspdems/dems-backend/pkg/database"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

// Session is a refresh-token session row. Timestamps are stored in UTC;
// display conversion to IST happens at the edge, never here.
type Session struct {
	ID           string     `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	UserAgent    string     `db:"user_agent" json:"user_agent"`
	IPAddress    string     `db:"ip_address" json:"ip_address"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt    *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// SessionRepository handles session persistence
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session with a caller-supplied ID
func (r *SessionRepository) Create(ctx context.Context, id string, userID int64, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	session := &Session{
		ID:           id,
		UserID:       userID,
		RefreshToken: refreshToken,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		ExpiresAt:    expiresAt,
	}

	query := `
		INSERT INTO sessions (id, user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		session.ID, session.UserID, session.RefreshToken,
		session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.CreatedAt); err != nil {
		return nil, err
	}

	return session, nil
}

// GetByRefreshToken gets a session by its refresh token
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, revoked_at, created_at
		FROM sessions WHERE refresh_token = $1
	`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("session")
		}
		return nil, err
	}
	return &session, nil
}

// RevokeByRefreshToken marks a session as revoked
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE refresh_token = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, refreshToken)
	return err
}
