package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

// ScopeParam selects which inventories an expiry query covers.
type ScopeParam string

const (
	ScopeStoreOnly      ScopeParam = "store"
	ScopeCompounderOnly ScopeParam = "compounder"
	ScopeBoth           ScopeParam = "both"
)

// ParseScope maps a query parameter to a scope, defaulting to both.
func ParseScope(raw string) (ScopeParam, error) {
	switch raw {
	case "", string(ScopeBoth):
		return ScopeBoth, nil
	case string(ScopeStoreOnly):
		return ScopeStoreOnly, nil
	case string(ScopeCompounderOnly):
		return ScopeCompounderOnly, nil
	}
	return "", fmt.Errorf("invalid scope %q", raw)
}

func (p ScopeParam) scopes() []repository.Scope {
	switch p {
	case ScopeStoreOnly:
		return []repository.Scope{repository.ScopeStore}
	case ScopeCompounderOnly:
		return []repository.Scope{repository.ScopeCompounder}
	default:
		return repository.AllScopes
	}
}

// ExpiryReader runs the per-scope batch expiry queries.
type ExpiryReader interface {
	ExpiringBatches(ctx context.Context, scope repository.Scope, filter repository.BatchFilter, from, to time.Time) ([]repository.ExpiryRow, error)
	ExpiredBatches(ctx context.Context, scope repository.Scope, filter repository.BatchFilter, before time.Time) ([]repository.ExpiryRow, error)
	ExpiredPendingDisposal(ctx context.Context, scope repository.Scope, filter repository.BatchFilter, before time.Time) ([]repository.ExpiryRow, error)
}

// ExpiryClassifier partitions batches into near-expiry and expired sets.
// Only batches with stock participate; the two sets are disjoint by
// construction (near-expiry starts at the pivot date, expired ends strictly
// before it). Day arithmetic is whole days between midnights; expiry dates
// carry no timezone.
type ExpiryClassifier struct {
	inventory   ExpiryReader
	defaultDays int
	maxDays     int
	logger      *logger.Logger
}

// NewExpiryClassifier creates an expiry classifier with the configured
// default and maximum window lengths.
func NewExpiryClassifier(inventory ExpiryReader, defaultDays, maxDays int, log *logger.Logger) *ExpiryClassifier {
	return &ExpiryClassifier{
		inventory:   inventory,
		defaultDays: defaultDays,
		maxDays:     maxDays,
		logger:      log,
	}
}

// Window normalizes a caller-supplied day count: negative means "use the
// default", anything above the configured maximum is clamped. Zero is a
// valid window meaning "expiring exactly on the pivot date".
func (c *ExpiryClassifier) Window(days int) int {
	if days < 0 {
		return c.defaultDays
	}
	if c.maxDays > 0 && days > c.maxDays {
		return c.maxDays
	}
	return days
}

// NearExpiry lists batches expiring within days of the pivot date. With
// scope both, the store and compounder queries run independently and the
// concatenation is re-sorted before the top cap is applied, so a source
// with earlier expiries is never starved.
func (c *ExpiryClassifier) NearExpiry(ctx context.Context, vis Visibility, scope ScopeParam, pivot time.Time, days, top int) ([]repository.ExpiryRow, error) {
	days = c.Window(days)
	from := timeutil.Midnight(pivot)
	to := from.AddDate(0, 0, days)

	var merged []repository.ExpiryRow
	for _, s := range scope.scopes() {
		rows, err := c.inventory.ExpiringBatches(ctx, s, vis.BatchFilter(), from, to)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	return sortAndCap(merged, top), nil
}

// Expired lists batches with stock whose expiry date is past the pivot.
func (c *ExpiryClassifier) Expired(ctx context.Context, vis Visibility, scope ScopeParam, pivot time.Time, top int) ([]repository.ExpiryRow, error) {
	before := timeutil.Midnight(pivot)

	var merged []repository.ExpiryRow
	for _, s := range scope.scopes() {
		rows, err := c.inventory.ExpiredBatches(ctx, s, vis.BatchFilter(), before)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	return sortAndCap(merged, top), nil
}

// PendingDisposal lists expired batches that have no disposal recorded.
func (c *ExpiryClassifier) PendingDisposal(ctx context.Context, vis Visibility, scope ScopeParam, pivot time.Time, top int) ([]repository.ExpiryRow, error) {
	before := timeutil.Midnight(pivot)

	var merged []repository.ExpiryRow
	for _, s := range scope.scopes() {
		rows, err := c.inventory.ExpiredPendingDisposal(ctx, s, vis.BatchFilter(), before)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	return sortAndCap(merged, top), nil
}

// sortAndCap orders rows by expiry date ascending with ties broken by
// medicine name, then truncates. Truncation always happens after the merge.
func sortAndCap(rows []repository.ExpiryRow, top int) []repository.ExpiryRow {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ExpiryDate.Equal(rows[j].ExpiryDate) {
			return rows[i].ExpiryDate.Before(rows[j].ExpiryDate)
		}
		return rows[i].MedicineName < rows[j].MedicineName
	})
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	return rows
}
