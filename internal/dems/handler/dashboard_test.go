package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/handler"
	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	apperrors "github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/logger"
)

type fakePlants struct{}

func (fakePlants) GetByID(_ context.Context, id int64) (*repository.Plant, error) {
	return &repository.Plant{ID: id, Code: "GEN1", Name: "General Plant"}, nil
}

type stubInventory struct {
	stockErr error
	stock    []repository.StockRow
	expiring []repository.ExpiryRow
}

func (s *stubInventory) StockTotals(_ context.Context, _ repository.Scope, _ repository.BatchFilter) ([]repository.StockRow, error) {
	return s.stock, s.stockErr
}

func (s *stubInventory) ExpiringBatches(_ context.Context, scope repository.Scope, _ repository.BatchFilter, _, _ time.Time) ([]repository.ExpiryRow, error) {
	if scope == repository.ScopeStore {
		return s.expiring, nil
	}
	return nil, nil
}

func (s *stubInventory) ExpiredBatches(context.Context, repository.Scope, repository.BatchFilter, time.Time) ([]repository.ExpiryRow, error) {
	return nil, nil
}

func (s *stubInventory) ExpiredPendingDisposal(context.Context, repository.Scope, repository.BatchFilter, time.Time) ([]repository.ExpiryRow, error) {
	return nil, nil
}

type stubCounter struct{ err error }

func (s stubCounter) CountByStatus(context.Context, repository.IndentFilter, string) (int, error) {
	return 1, s.err
}

func (s stubCounter) CountAwaitingReceipt(context.Context, repository.IndentFilter) (int, error) {
	return 1, s.err
}

func newDashboardHandler(inv *stubInventory, counter stubCounter) *handler.DashboardHandler {
	log := logger.New("test", "test")
	resolver := service.NewVisibilityResolver(fakePlants{}, log)
	agg := service.NewStockAggregator(inv, 10, log)
	classifier := service.NewExpiryClassifier(inv, 30, 180, log)
	svc := service.NewDashboardService(resolver, agg, classifier, counter, log)
	return handler.NewDashboardHandler(svc, 50, log)
}

func doRequest(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	plantID := int64(1)
	a := &actor.Actor{ID: 1, Login: "skumar", FullName: "S Kumar", Role: actor.RoleStore, PlantID: &plantID}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(actor.WithActor(req.Context(), a))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSummaryContractFieldNames(t *testing.T) {
	h := newDashboardHandler(&stubInventory{}, stubCounter{})

	rec := doRequest(t, h.Summary, "/api/v1/dashboard/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &fields))
	for _, name := range []string{
		"PendingIndents", "ApprovedAwaitingReceipt", "MyDraftIndents",
		"NearExpiryBatches", "ExpiredBatches", "ExpiredMedicinesPendingDisposal",
		"LowStockCount", "OutOfStockCount", "NearExpiryDays",
	} {
		assert.Contains(t, fields, name)
	}
}

func TestSummarySoftFailureShape(t *testing.T) {
	h := newDashboardHandler(&stubInventory{stockErr: errors.New("boom")}, stubCounter{})

	rec := doRequest(t, h.Summary, "/api/v1/dashboard/summary")

	// Internal dashboard errors surface as HTTP 200 with success=false.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestNearExpiryInvalidScopeIsHardError(t *testing.T) {
	h := newDashboardHandler(&stubInventory{}, stubCounter{})

	rec := doRequest(t, h.NearExpiry, "/api/v1/dashboard/near-expiry?scope=warehouse")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearExpiryParamClamping(t *testing.T) {
	inv := &stubInventory{expiring: []repository.ExpiryRow{
		{BatchID: 1, MedicineName: "A", ExpiryDate: time.Now().AddDate(0, 0, 3), AvailableStock: 2},
	}}
	h := newDashboardHandler(inv, stubCounter{})

	// A malformed days parameter falls back to the default window.
	rec := doRequest(t, h.NearExpiry, "/api/v1/dashboard/near-expiry?days=abc")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                   `json:"success"`
		Data    []repository.ExpiryRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
}

func TestLowStockSoftFailure(t *testing.T) {
	h := newDashboardHandler(&stubInventory{stockErr: apperrors.Internal("db down")}, stubCounter{})

	rec := doRequest(t, h.LowStock, "/api/v1/dashboard/low-stock")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}
