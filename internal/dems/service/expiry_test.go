package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
)

// fakeExpiryReader filters an in-memory batch set per scope the way the
// SQL queries do, so the classifier's merge and cap logic is exercised
// against realistic per-scope results.
type fakeExpiryReader struct {
	batches map[repository.Scope][]repository.ExpiryRow
}

func (f *fakeExpiryReader) ExpiringBatches(_ context.Context, scope repository.Scope, _ repository.BatchFilter, from, to time.Time) ([]repository.ExpiryRow, error) {
	var out []repository.ExpiryRow
	for _, b := range f.batches[scope] {
		if b.AvailableStock > 0 && !b.ExpiryDate.Before(from) && !b.ExpiryDate.After(to) {
			b.Source = scope
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeExpiryReader) ExpiredBatches(_ context.Context, scope repository.Scope, _ repository.BatchFilter, before time.Time) ([]repository.ExpiryRow, error) {
	var out []repository.ExpiryRow
	for _, b := range f.batches[scope] {
		if b.AvailableStock > 0 && b.ExpiryDate.Before(before) {
			b.Source = scope
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeExpiryReader) ExpiredPendingDisposal(ctx context.Context, scope repository.Scope, filter repository.BatchFilter, before time.Time) ([]repository.ExpiryRow, error) {
	return f.ExpiredBatches(ctx, scope, filter, before)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newClassifier(reader service.ExpiryReader) *service.ExpiryClassifier {
	return service.NewExpiryClassifier(reader, 30, 180, testLogger())
}

func TestNearExpiryAndExpiredAreDisjoint(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "A", ExpiryDate: date(2026, time.August, 31), AvailableStock: 5},
			{BatchID: 2, MedicineName: "B", ExpiryDate: date(2026, time.September, 1), AvailableStock: 5},
			{BatchID: 3, MedicineName: "C", ExpiryDate: date(2026, time.September, 15), AvailableStock: 5},
			{BatchID: 4, MedicineName: "D", ExpiryDate: date(2026, time.December, 1), AvailableStock: 5},
		},
	}}
	c := newClassifier(reader)

	near, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 0)
	require.NoError(t, err)
	expired, err := c.Expired(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 0)
	require.NoError(t, err)

	// A batch expiring on the pivot date is near-expiry, not expired.
	require.Len(t, near, 2)
	assert.Equal(t, int64(2), near[0].BatchID)
	assert.Equal(t, int64(3), near[1].BatchID)

	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].BatchID)
}

func TestNearExpiryZeroDayWindow(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "A", ExpiryDate: date(2026, time.September, 1), AvailableStock: 5},
			{BatchID: 2, MedicineName: "B", ExpiryDate: date(2026, time.September, 2), AvailableStock: 5},
		},
	}}
	c := newClassifier(reader)

	// days=0 is a valid window covering only the pivot date itself.
	near, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 0, 0)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, int64(1), near[0].BatchID)
}

func TestNearExpiryExcludesZeroStock(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "A", ExpiryDate: date(2026, time.September, 5), AvailableStock: 0},
			{BatchID: 2, MedicineName: "B", ExpiryDate: date(2026, time.September, 5), AvailableStock: 1},
		},
	}}
	c := newClassifier(reader)

	near, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 0)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, int64(2), near[0].BatchID)
}

func TestNearExpiryMergeThenCap(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "StoreMed", ExpiryDate: date(2026, time.September, 3), AvailableStock: 5},
		},
		repository.ScopeCompounder: {
			{BatchID: 2, MedicineName: "CompMed", ExpiryDate: date(2026, time.September, 2), AvailableStock: 5},
		},
	}}
	c := newClassifier(reader)

	// Cap applies after the merge: the compounder batch expires first, so
	// it wins the single slot even though store is queried first.
	near, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 1)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, int64(2), near[0].BatchID)
	assert.Equal(t, repository.ScopeCompounder, near[0].Source)
}

func TestNearExpiryScopeSelection(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "StoreMed", ExpiryDate: date(2026, time.September, 3), AvailableStock: 5},
		},
		repository.ScopeCompounder: {
			{BatchID: 2, MedicineName: "CompMed", ExpiryDate: date(2026, time.September, 2), AvailableStock: 5},
		},
	}}
	c := newClassifier(reader)

	storeOnly, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeStoreOnly, pivot, 30, 0)
	require.NoError(t, err)
	require.Len(t, storeOnly, 1)
	assert.Equal(t, int64(1), storeOnly[0].BatchID)

	both, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 0)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestWindowNormalization(t *testing.T) {
	c := newClassifier(&fakeExpiryReader{})

	assert.Equal(t, 30, c.Window(-1), "negative means default")
	assert.Equal(t, 0, c.Window(0), "zero is a valid window")
	assert.Equal(t, 45, c.Window(45))
	assert.Equal(t, 180, c.Window(400), "clamped to the maximum")
}

func TestParseScope(t *testing.T) {
	scope, err := service.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, service.ScopeBoth, scope)

	scope, err = service.ParseScope("store")
	require.NoError(t, err)
	assert.Equal(t, service.ScopeStoreOnly, scope)

	scope, err = service.ParseScope("compounder")
	require.NoError(t, err)
	assert.Equal(t, service.ScopeCompounderOnly, scope)

	_, err = service.ParseScope("warehouse")
	assert.Error(t, err)
}

func TestSortIsStableAcrossRepeats(t *testing.T) {
	pivot := date(2026, time.September, 1)
	reader := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "A", ExpiryDate: date(2026, time.September, 5), AvailableStock: 5},
			{BatchID: 2, MedicineName: "A", ExpiryDate: date(2026, time.September, 5), AvailableStock: 3},
		},
	}}
	c := newClassifier(reader)

	first, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 0)
	require.NoError(t, err)
	second, err := c.NearExpiry(context.Background(), service.OpenVisibility(), service.ScopeBoth, pivot, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
