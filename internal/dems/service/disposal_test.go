package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
)

type fakeBatchDisposer struct {
	rows map[int64]*repository.ExpiryRow
}

func (f *fakeBatchDisposer) BatchDetail(_ context.Context, scope repository.Scope, id int64) (*repository.ExpiryRow, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NotFound("batch")
	}
	copied := *row
	copied.Source = scope
	return &copied, nil
}

// fakeDisposalStore mimics the transactional repository: the batch is zeroed
// and the row appended together, or neither happens.
type fakeDisposalStore struct {
	batches   map[int64]*repository.ExpiryRow
	disposals []*repository.Disposal
	recordErr error
}

func (f *fakeDisposalStore) Record(_ context.Context, d *repository.Disposal) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	if batch, ok := f.batches[d.BatchID]; ok {
		batch.AvailableStock = 0
	}
	d.ID = int64(len(f.disposals) + 1)
	d.DisposedAt = time.Now()
	f.disposals = append(f.disposals, d)
	return nil
}

func (f *fakeDisposalStore) List(_ context.Context, limit int) ([]*repository.Disposal, error) {
	if limit > len(f.disposals) {
		limit = len(f.disposals)
	}
	return f.disposals[:limit], nil
}

func TestRecordDisposal(t *testing.T) {
	rows := map[int64]*repository.ExpiryRow{
		7: {BatchID: 7, MedicineName: "Paracetamol", BatchNo: "B7",
			ExpiryDate: date(2026, time.January, 1), AvailableStock: 12},
	}
	inventory := &fakeBatchDisposer{rows: rows}
	store := &fakeDisposalStore{batches: rows}
	audit := &fakeAuditWriter{}
	svc := service.NewDisposalService(inventory, store, audit, nil, testLogger())

	disposal, err := svc.Record(context.Background(), storeActor(), &service.RecordDisposalRequest{
		Scope: "store", BatchID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, disposal.Quantity, "the written-off quantity is the stock at disposal time")
	assert.Equal(t, "Paracetamol", disposal.MedicineName)
	assert.Equal(t, "skumar - S Kumar", disposal.DisposedBy)
	assert.Equal(t, 0, rows[7].AvailableStock)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, repository.AuditDisposal, audit.entries[0].Action)

	// Second write-off of the same batch fails: no stock left.
	_, err = svc.Record(context.Background(), storeActor(), &service.RecordDisposalRequest{
		Scope: "store", BatchID: 7,
	})
	assert.Error(t, err)
}

func TestRecordDisposalRejectsUnexpiredBatch(t *testing.T) {
	rows := map[int64]*repository.ExpiryRow{
		8: {BatchID: 8, MedicineName: "Ibuprofen", BatchNo: "B8",
			ExpiryDate: time.Now().AddDate(1, 0, 0), AvailableStock: 5},
	}
	svc := service.NewDisposalService(&fakeBatchDisposer{rows: rows},
		&fakeDisposalStore{batches: rows}, &fakeAuditWriter{}, nil, testLogger())

	_, err := svc.Record(context.Background(), storeActor(), &service.RecordDisposalRequest{
		Scope: "store", BatchID: 8,
	})
	require.Error(t, err)
	assert.Equal(t, 5, rows[8].AvailableStock)
}

func TestRecordDisposalKeepsStockWhenWriteFails(t *testing.T) {
	rows := map[int64]*repository.ExpiryRow{
		9: {BatchID: 9, MedicineName: "Cetirizine", BatchNo: "B9",
			ExpiryDate: date(2026, time.January, 1), AvailableStock: 4},
	}
	store := &fakeDisposalStore{batches: rows, recordErr: apperrors.Conflict("disposal already recorded")}
	audit := &fakeAuditWriter{}
	svc := service.NewDisposalService(&fakeBatchDisposer{rows: rows}, store, audit, nil, testLogger())

	_, err := svc.Record(context.Background(), storeActor(), &service.RecordDisposalRequest{
		Scope: "store", BatchID: 9,
	})
	require.Error(t, err)
	assert.Equal(t, 4, rows[9].AvailableStock, "stock survives a failed disposal write")
	assert.Empty(t, store.disposals)
	assert.Empty(t, audit.entries)
}
