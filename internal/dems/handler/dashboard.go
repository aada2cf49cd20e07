package handler

import (
	"net/http"
	"strconv"

	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// DashboardHandler handles dashboard endpoints.
//
// Dashboard reads use the soft-failure contract: an internal error yields
// HTTP 200 with success=false so dashboard widgets degrade instead of
// breaking the whole page.
type DashboardHandler struct {
	service *service.DashboardService
	topCap  int
	logger  *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler. topCap is the row
// limit applied to drill-down listings when the caller passes no ?top=.
func NewDashboardHandler(svc *service.DashboardService, topCap int, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		topCap:  topCap,
		logger:  log,
	}
}

// Summary returns the dashboard summary counts
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	nearDays := queryInt(r, "nearDays", -1)

	summary, err := h.service.Summary(r.Context(), a, nearDays)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("dashboard summary failed")
		httputil.Fail(w, "Unable to load dashboard summary")
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// NearExpiry returns batches expiring within the window
func (h *DashboardHandler) NearExpiry(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	days := queryInt(r, "days", -1)
	top := queryInt(r, "top", h.topCap)
	scope, err := service.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		httputil.Error(w, errors.BadRequest(err.Error()))
		return
	}

	rows, err := h.service.NearExpiry(r.Context(), a, scope, days, top)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("near-expiry listing failed")
		httputil.Fail(w, "Unable to load near-expiry batches")
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// Expired returns batches already past expiry
func (h *DashboardHandler) Expired(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	top := queryInt(r, "top", h.topCap)
	scope, err := service.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		httputil.Error(w, errors.BadRequest(err.Error()))
		return
	}

	rows, err := h.service.Expired(r.Context(), a, scope, top)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("expired listing failed")
		httputil.Fail(w, "Unable to load expired batches")
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// LowStock returns low and out-of-stock medicines
func (h *DashboardHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	fallback := queryInt(r, "fallback", 0)
	top := queryInt(r, "top", h.topCap)

	rows, err := h.service.LowStock(r.Context(), a, fallback, top)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("low-stock listing failed")
		httputil.Fail(w, "Unable to load low stock")
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// queryInt parses an integer query parameter, returning def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
