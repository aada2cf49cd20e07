package handler

import (
	"net/http"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
)

const queryDateFormat = "2006-01-02"

// ReportHandler serves the tabular registers as JSON and as CSV/Excel
// downloads.
//
// Report reads follow the soft-failure contract like the dashboards; the
// export endpoints return real HTTP errors because a broken download cannot
// degrade gracefully.
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// StockRegister returns the stock register as JSON
func (h *ReportHandler) StockRegister(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())

	report, err := h.service.StockRegister(r.Context(), a)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("stock register failed")
		httputil.Fail(w, "Unable to build stock register")
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// IndentRegister returns the indent register as JSON
func (h *ReportHandler) IndentRegister(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	from, to, err := dateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.IndentRegister(r.Context(), a, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("actor", a.String()).Msg("indent register failed")
		httputil.Fail(w, "Unable to build indent register")
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// ExportStockRegister serves the stock register as a CSV or Excel download
func (h *ReportHandler) ExportStockRegister(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())

	report, err := h.service.StockRegister(r.Context(), a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := "stock-register-" + time.Now().Format(queryDateFormat)
	headers, rows := stockRegisterTable(report)
	h.export(w, r, filename, report.Info, headers, rows)
}

// ExportIndentRegister serves the indent register as a CSV or Excel download
func (h *ReportHandler) ExportIndentRegister(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	from, to, err := dateRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.IndentRegister(r.Context(), a, from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := "indent-register-" + report.Info.FromDate + "-to-" + report.Info.ToDate
	headers, rows := indentRegisterTable(report)
	h.export(w, r, filename, report.Info, headers, rows)
}

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request, filename string, info service.ReportInfo, headers []string, rows [][]string) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		if err := writeCSV(w, filename+".csv", info, headers, rows); err != nil {
			h.logger.Error().Err(err).Str("file", filename).Msg("csv export failed")
		}
	case "xlsx":
		if err := writeExcel(w, filename+".xlsx", info, headers, rows); err != nil {
			h.logger.Error().Err(err).Str("file", filename).Msg("excel export failed")
		}
	default:
		httputil.Error(w, errors.BadRequest("unsupported export format: "+format))
	}
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(queryDateFormat, raw); err != nil {
			return from, to, errors.BadRequest("invalid from date, expected YYYY-MM-DD")
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(queryDateFormat, raw); err != nil {
			return from, to, errors.BadRequest("invalid to date, expected YYYY-MM-DD")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.BadRequest("to date precedes from date")
	}
	return from, to, nil
}
