// Package actor carries the identity of the user performing a request.
//
// Controllers never re-derive the current user, role, or plant from session
// state: the auth middleware resolves them once and every aggregator and
// resolver call receives this object explicitly.
package actor

import (
	"context"
	"fmt"
)

// Role names. Doctor is the privileged role for record-level visibility:
// on a BCM plant everyone else sees only their own created records.
const (
	RoleAdmin      = "Admin"
	RoleDoctor     = "Doctor"
	RoleStore      = "Store"
	RoleCompounder = "Compounder"
)

// Actor represents the authenticated user performing an action.
type Actor struct {
	// ID is the user's database id.
	ID int64 `json:"id"`

	// Login is the user's login name.
	Login string `json:"login"`

	// FullName is the user's display name.
	FullName string `json:"full_name"`

	// Role is one of the Role* constants.
	Role string `json:"role"`

	// PlantID is the user's plant, nil for cross-plant users.
	PlantID *int64 `json:"plant_id,omitempty"`
}

// Key returns the creator key stored on indent headers and audit rows,
// formatted as "login - full name".
func (a *Actor) Key() string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("%s - %s", a.Login, a.FullName)
}

// IsDoctor reports whether the actor holds the privileged Doctor role.
func (a *Actor) IsDoctor() bool {
	return a != nil && a.Role == RoleDoctor
}

// IsAdmin reports whether the actor is an administrator.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// String returns a representation of the actor for logging.
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Login, a.Role)
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g. background jobs).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}
