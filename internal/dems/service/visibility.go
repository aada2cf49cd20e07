package service

import (
	"context"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// PlantLookup resolves plant reference data.
type PlantLookup interface {
	GetByID(ctx context.Context, id int64) (*repository.Plant, error)
}

// Visibility is the record scope applied to every list/aggregate query.
// A nil PlantID means cross-plant; a non-nil CreatorKey restricts indent
// headers to rows created by that key.
type Visibility struct {
	PlantID    *int64
	CreatorKey *string
}

// BatchFilter converts the visibility into a batch query filter.
func (v Visibility) BatchFilter() repository.BatchFilter {
	return repository.BatchFilter{PlantID: v.PlantID, CreatedBy: v.CreatorKey}
}

// IndentFilter converts the visibility into an indent query filter.
func (v Visibility) IndentFilter() repository.IndentFilter {
	return repository.IndentFilter{PlantID: v.PlantID, CreatedBy: v.CreatorKey}
}

// OpenVisibility is the explicit cross-plant scope. Admin surfaces use this
// deliberately instead of relying on the unresolved-plant fallback.
func OpenVisibility() Visibility {
	return Visibility{}
}

// VisibilityResolver decides, per user and plant, whether record-level
// creator filtering applies. On a BCM plant every role except Doctor sees
// only its own created records.
type VisibilityResolver struct {
	plants PlantLookup
	logger *logger.Logger
}

// NewVisibilityResolver creates a new visibility resolver
func NewVisibilityResolver(plants PlantLookup, log *logger.Logger) *VisibilityResolver {
	return &VisibilityResolver{plants: plants, logger: log}
}

// Resolve computes the visibility for an actor.
//
// An actor without a resolvable plant yields the open scope. That mirrors
// the historical behavior this system replaces; it broadens access, so it is
// logged and privileged callers are expected to pass an explicit scope
// rather than lean on it.
func (r *VisibilityResolver) Resolve(ctx context.Context, a *actor.Actor) Visibility {
	if a == nil || a.PlantID == nil {
		r.logger.Warn().Str("actor", a.String()).Msg("no plant resolved, applying cross-plant visibility")
		return OpenVisibility()
	}

	plant, err := r.plants.GetByID(ctx, *a.PlantID)
	if err != nil {
		r.logger.Warn().Err(err).Int64("plant_id", *a.PlantID).
			Msg("plant lookup failed, applying cross-plant visibility")
		return OpenVisibility()
	}

	vis := Visibility{PlantID: a.PlantID}
	if plant.IsBCM && !a.IsDoctor() {
		key := a.Key()
		vis.CreatorKey = &key
	}
	return vis
}
