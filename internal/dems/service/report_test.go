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

type fakeMedicineLister struct {
	medicines []*repository.MedicineItem
}

func (f *fakeMedicineLister) List(_ context.Context) ([]*repository.MedicineItem, error) {
	return f.medicines, nil
}

type fakeIndentRegisterReader struct {
	headers []*repository.IndentHeader
	totals  map[int64]*repository.IndentTotals
}

func (f *fakeIndentRegisterReader) ListBetween(_ context.Context, filter repository.IndentFilter, from, to time.Time) ([]*repository.IndentHeader, error) {
	var out []*repository.IndentHeader
	for _, h := range f.headers {
		if h.IndentDate.Before(from) || h.IndentDate.After(to) {
			continue
		}
		if filter.CreatedBy != nil && h.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeIndentRegisterReader) ItemTotals(_ context.Context, indentID int64) (*repository.IndentTotals, error) {
	if t, ok := f.totals[indentID]; ok {
		return t, nil
	}
	return &repository.IndentTotals{}, nil
}

func newReportService(indents *fakeIndentRegisterReader, stock *fakeStockReader, medicines *fakeMedicineLister) *service.ReportService {
	resolver := newResolver(map[int64]*repository.Plant{
		1: {ID: 1, Code: "GEN1", Name: "General Plant"},
	})
	return service.NewReportService(indents, stock, medicines,
		&fakePlantLookup{plants: map[int64]*repository.Plant{
			1: {ID: 1, Code: "GEN1", Name: "General Plant"},
		}}, resolver, 10, testLogger())
}

func TestStockRegisterIncludesNeverStockedMedicines(t *testing.T) {
	medicines := &fakeMedicineLister{medicines: []*repository.MedicineItem{
		{ID: 1, Name: "Paracetamol"},
		{ID: 2, Name: "Ibuprofen", ReorderLevel: intPtr(20)},
		{ID: 3, Name: "Cetirizine"},
	}}
	stock := &fakeStockReader{
		store: []repository.StockRow{
			{MedItemID: 1, MedicineName: "Paracetamol", PlantID: 1, TotalAvailable: 30},
		},
		compounder: []repository.StockRow{
			{MedItemID: 1, MedicineName: "Paracetamol", PlantID: 1, TotalAvailable: 5},
		},
	}
	svc := newReportService(&fakeIndentRegisterReader{}, stock, medicines)

	report, err := svc.StockRegister(context.Background(), storeActor())
	require.NoError(t, err)
	require.Len(t, report.Rows, 3, "never-stocked medicines still get a row")

	// Rows come back alphabetically.
	assert.Equal(t, "Cetirizine", report.Rows[0].MedicineName)
	assert.Equal(t, "Ibuprofen", report.Rows[1].MedicineName)
	assert.Equal(t, "Paracetamol", report.Rows[2].MedicineName)

	cet := report.Rows[0]
	assert.Equal(t, 0, cet.TotalStock)
	assert.Equal(t, service.StockOut, cet.Status)
	assert.Equal(t, 10, cet.ReorderLevel, "fallback applies without a master level")

	ibu := report.Rows[1]
	assert.Equal(t, 20, ibu.ReorderLevel)
	assert.Equal(t, service.StockOut, ibu.Status)

	para := report.Rows[2]
	assert.Equal(t, 30, para.StoreStock)
	assert.Equal(t, 5, para.CompounderStock)
	assert.Equal(t, 35, para.TotalStock)
	assert.Equal(t, service.StockAdequate, para.Status)

	assert.Equal(t, "GEN1", report.Info.PlantCode)
	assert.Equal(t, "skumar - S Kumar", report.Info.GeneratedBy)
}

func TestIndentRegisterTotalsAndRange(t *testing.T) {
	indents := &fakeIndentRegisterReader{
		headers: []*repository.IndentHeader{
			{ID: 1, PlantID: 1, CreatedBy: "skumar - S Kumar", Status: repository.StatusApproved, IndentDate: date(2026, time.August, 5)},
			{ID: 2, PlantID: 1, CreatedBy: "skumar - S Kumar", Status: repository.StatusPending, IndentDate: date(2026, time.August, 20)},
			{ID: 3, PlantID: 1, CreatedBy: "skumar - S Kumar", Status: repository.StatusDraft, IndentDate: date(2026, time.July, 1)},
		},
		totals: map[int64]*repository.IndentTotals{
			1: {ItemCount: 2, RaisedTotal: 30, ReceivedTotal: 25},
			2: {ItemCount: 1, RaisedTotal: 10, ReceivedTotal: 0},
		},
	}
	svc := newReportService(indents, &fakeStockReader{}, &fakeMedicineLister{})

	report, err := svc.IndentRegister(context.Background(), storeActor(),
		date(2026, time.August, 1), date(2026, time.August, 31))
	require.NoError(t, err)
	require.Len(t, report.Rows, 2, "July indent is outside the range")
	assert.Equal(t, 40, report.TotalRaised)
	assert.Equal(t, 25, report.TotalReceived)
	assert.Equal(t, "05-08-2026", report.Rows[0].IndentDate)
	assert.Equal(t, "01-08-2026", report.Info.FromDate)
	assert.Equal(t, "31-08-2026", report.Info.ToDate)
}

func TestIndentRegisterAdminIsCrossPlant(t *testing.T) {
	indents := &fakeIndentRegisterReader{
		headers: []*repository.IndentHeader{
			{ID: 1, PlantID: 1, CreatedBy: "a - A", Status: repository.StatusApproved, IndentDate: date(2026, time.August, 5)},
			{ID: 2, PlantID: 2, CreatedBy: "b - B", Status: repository.StatusApproved, IndentDate: date(2026, time.August, 6)},
		},
		totals: map[int64]*repository.IndentTotals{},
	}
	svc := newReportService(indents, &fakeStockReader{}, &fakeMedicineLister{})
	admin := &actor.Actor{Login: "admin", FullName: "Admin", Role: actor.RoleAdmin}

	report, err := svc.IndentRegister(context.Background(), admin,
		date(2026, time.August, 1), date(2026, time.August, 31))
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, "ALL", report.Info.PlantCode)
}
