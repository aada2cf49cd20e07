package handler

import (
	"net/http"

	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// DisposalHandler handles expired-batch write-offs
type DisposalHandler struct {
	disposals *service.DisposalService
	dashboard *service.DashboardService
	logger    *logger.Logger
}

// NewDisposalHandler creates a new disposal handler
func NewDisposalHandler(disposals *service.DisposalService, dashboard *service.DashboardService, log *logger.Logger) *DisposalHandler {
	return &DisposalHandler{
		disposals: disposals,
		dashboard: dashboard,
		logger:    log,
	}
}

// Pending lists expired batches awaiting disposal. This is a dashboard-style
// read, so it follows the soft-failure contract.
func (h *DisposalHandler) Pending(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	top := queryInt(r, "top", 0)

	rows, err := h.dashboard.PendingDisposal(r.Context(), a, top)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("pending disposal listing failed")
		httputil.Fail(w, "Unable to load pending disposals")
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Record writes off one expired batch
func (h *DisposalHandler) Record(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())

	var req service.RecordDisposalRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	disposal, err := h.disposals.Record(r.Context(), a, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, disposal)
}

// List lists recorded disposals
func (h *DisposalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	disposals, err := h.disposals.List(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, disposals)
}
