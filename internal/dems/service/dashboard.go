package service

import (
	"context"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// IndentCounter provides the filtered indent counts the summary needs.
type IndentCounter interface {
	CountByStatus(ctx context.Context, filter repository.IndentFilter, status string) (int, error)
	CountAwaitingReceipt(ctx context.Context, filter repository.IndentFilter) (int, error)
}

// Summary is the dashboard summary DTO. Field names are part of the
// endpoint contract.
type Summary struct {
	PendingIndents                  int `json:"PendingIndents"`
	ApprovedAwaitingReceipt         int `json:"ApprovedAwaitingReceipt"`
	MyDraftIndents                  int `json:"MyDraftIndents"`
	NearExpiryBatches               int `json:"NearExpiryBatches"`
	ExpiredBatches                  int `json:"ExpiredBatches"`
	ExpiredMedicinesPendingDisposal int `json:"ExpiredMedicinesPendingDisposal"`
	LowStockCount                   int `json:"LowStockCount"`
	OutOfStockCount                 int `json:"OutOfStockCount"`
	NearExpiryDays                  int `json:"NearExpiryDays"`
}

// DashboardService assembles summary counts and drill-down row sets. It adds
// no business logic of its own beyond field selection and summation: the
// resolver, aggregator and classifier own the semantics.
type DashboardService struct {
	resolver *VisibilityResolver
	stock    *StockAggregator
	expiry   *ExpiryClassifier
	indents  IndentCounter
	logger   *logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	resolver *VisibilityResolver,
	stock *StockAggregator,
	expiry *ExpiryClassifier,
	indents IndentCounter,
	log *logger.Logger,
) *DashboardService {
	return &DashboardService{
		resolver: resolver,
		stock:    stock,
		expiry:   expiry,
		indents:  indents,
		logger:   log,
	}
}

// Resolve exposes the visibility for the actor; handlers pass it to the
// drill-down calls so every endpoint shares one scope decision per request.
func (s *DashboardService) Resolve(ctx context.Context, a *actor.Actor) Visibility {
	if a != nil && a.IsAdmin() {
		// Admin scope is cross-plant and never goes through the
		// unresolved-plant fallback.
		return OpenVisibility()
	}
	return s.resolver.Resolve(ctx, a)
}

// Summary builds the dashboard counts for the actor. nearDays < 0 applies
// the configured default window.
func (s *DashboardService) Summary(ctx context.Context, a *actor.Actor, nearDays int) (*Summary, error) {
	vis := s.Resolve(ctx, a)
	now := time.Now()
	nearDays = s.expiry.Window(nearDays)

	summary := &Summary{NearExpiryDays: nearDays}

	var err error
	if summary.PendingIndents, err = s.indents.CountByStatus(ctx, vis.IndentFilter(), repository.StatusPending); err != nil {
		return nil, err
	}
	if summary.ApprovedAwaitingReceipt, err = s.indents.CountAwaitingReceipt(ctx, vis.IndentFilter()); err != nil {
		return nil, err
	}

	// Drafts are always the actor's own, regardless of BCM visibility.
	myKey := a.Key()
	draftFilter := repository.IndentFilter{PlantID: vis.PlantID, CreatedBy: &myKey}
	if summary.MyDraftIndents, err = s.indents.CountByStatus(ctx, draftFilter, repository.StatusDraft); err != nil {
		return nil, err
	}

	nearRows, err := s.expiry.NearExpiry(ctx, vis, ScopeBoth, now, nearDays, 0)
	if err != nil {
		return nil, err
	}
	summary.NearExpiryBatches = len(nearRows)

	expiredRows, err := s.expiry.Expired(ctx, vis, ScopeBoth, now, 0)
	if err != nil {
		return nil, err
	}
	summary.ExpiredBatches = len(expiredRows)

	pendingDisposal, err := s.expiry.PendingDisposal(ctx, vis, ScopeBoth, now, 0)
	if err != nil {
		return nil, err
	}
	summary.ExpiredMedicinesPendingDisposal = len(pendingDisposal)

	snapshots, err := s.stock.Aggregate(ctx, vis, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		switch snap.Status {
		case StockLow:
			summary.LowStockCount++
		case StockOut:
			summary.OutOfStockCount++
		}
	}

	return summary, nil
}

// NearExpiry lists near-expiry batches for the actor's scope.
func (s *DashboardService) NearExpiry(ctx context.Context, a *actor.Actor, scope ScopeParam, days, top int) ([]repository.ExpiryRow, error) {
	return s.expiry.NearExpiry(ctx, s.Resolve(ctx, a), scope, time.Now(), days, top)
}

// Expired lists expired batches for the actor's scope.
func (s *DashboardService) Expired(ctx context.Context, a *actor.Actor, scope ScopeParam, top int) ([]repository.ExpiryRow, error) {
	return s.expiry.Expired(ctx, s.Resolve(ctx, a), scope, time.Now(), top)
}

// PendingDisposal lists expired batches awaiting disposal for the actor.
func (s *DashboardService) PendingDisposal(ctx context.Context, a *actor.Actor, top int) ([]repository.ExpiryRow, error) {
	return s.expiry.PendingDisposal(ctx, s.Resolve(ctx, a), ScopeBoth, time.Now(), top)
}

// LowStock lists low-stock snapshots for the actor's scope.
func (s *DashboardService) LowStock(ctx context.Context, a *actor.Actor, fallback, top int) ([]StockSnapshot, error) {
	return s.stock.LowStock(ctx, s.Resolve(ctx, a), fallback, top)
}
