package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
)

type fakeIndentCounter struct {
	byStatus     map[string]int
	awaiting     int
	draftFilters []repository.IndentFilter
}

func (f *fakeIndentCounter) CountByStatus(_ context.Context, filter repository.IndentFilter, status string) (int, error) {
	if status == repository.StatusDraft {
		f.draftFilters = append(f.draftFilters, filter)
	}
	return f.byStatus[status], nil
}

func (f *fakeIndentCounter) CountAwaitingReceipt(_ context.Context, _ repository.IndentFilter) (int, error) {
	return f.awaiting, nil
}

func newDashboard(counter *fakeIndentCounter, stock *fakeStockReader, expiry *fakeExpiryReader) *service.DashboardService {
	resolver := newResolver(map[int64]*repository.Plant{
		1: {ID: 1, Code: "GEN1", Name: "General Plant"},
	})
	agg := service.NewStockAggregator(stock, 10, testLogger())
	classifier := newClassifier(expiry)
	return service.NewDashboardService(resolver, agg, classifier, counter, testLogger())
}

func TestDashboardSummaryCounts(t *testing.T) {
	counter := &fakeIndentCounter{
		byStatus: map[string]int{
			repository.StatusPending: 3,
			repository.StatusDraft:   2,
		},
		awaiting: 4,
	}
	tomorrow := time.Now().AddDate(0, 0, 1)
	yesterday := time.Now().AddDate(0, 0, -1)
	expiry := &fakeExpiryReader{batches: map[repository.Scope][]repository.ExpiryRow{
		repository.ScopeStore: {
			{BatchID: 1, MedicineName: "A", ExpiryDate: tomorrow, AvailableStock: 5},
			{BatchID: 2, MedicineName: "B", ExpiryDate: yesterday, AvailableStock: 5},
		},
	}}
	stock := &fakeStockReader{
		store: []repository.StockRow{
			{MedItemID: 1, MedicineName: "A", PlantID: 1, TotalAvailable: 2},
			{MedItemID: 2, MedicineName: "B", PlantID: 1, TotalAvailable: 0},
			{MedItemID: 3, MedicineName: "C", PlantID: 1, TotalAvailable: 60},
		},
	}

	svc := newDashboard(counter, stock, expiry)
	summary, err := svc.Summary(context.Background(), storeActor(), -1)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PendingIndents)
	assert.Equal(t, 4, summary.ApprovedAwaitingReceipt)
	assert.Equal(t, 2, summary.MyDraftIndents)
	assert.Equal(t, 1, summary.NearExpiryBatches)
	assert.Equal(t, 1, summary.ExpiredBatches)
	assert.Equal(t, 1, summary.ExpiredMedicinesPendingDisposal)
	assert.Equal(t, 1, summary.LowStockCount)
	assert.Equal(t, 1, summary.OutOfStockCount)
	assert.Equal(t, 30, summary.NearExpiryDays)
}

func TestDashboardDraftCountIsAlwaysOwn(t *testing.T) {
	counter := &fakeIndentCounter{byStatus: map[string]int{}}
	svc := newDashboard(counter, &fakeStockReader{}, &fakeExpiryReader{})

	_, err := svc.Summary(context.Background(), storeActor(), -1)
	require.NoError(t, err)

	require.Len(t, counter.draftFilters, 1)
	require.NotNil(t, counter.draftFilters[0].CreatedBy)
	assert.Equal(t, "skumar - S Kumar", *counter.draftFilters[0].CreatedBy)
}

func TestDashboardAdminScopeIsOpen(t *testing.T) {
	svc := newDashboard(&fakeIndentCounter{byStatus: map[string]int{}}, &fakeStockReader{}, &fakeExpiryReader{})
	admin := &actor.Actor{Login: "admin", FullName: "Admin", Role: actor.RoleAdmin, PlantID: int64Ptr(1)}

	vis := svc.Resolve(context.Background(), admin)
	assert.Nil(t, vis.PlantID)
	assert.Nil(t, vis.CreatorKey)
}
