package handler

import (
	"net/http"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// AuditHandler serves the audit trail listing
type AuditHandler struct {
	audit  *repository.AuditRepository
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *repository.AuditRepository, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: log,
	}
}

// List lists audit rows, newest first
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 200)
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		PerPage: limit,
		Total:   int64(len(entries)),
	})
}
