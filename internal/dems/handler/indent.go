package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/httputil"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// IndentHandler handles indent lifecycle endpoints
type IndentHandler struct {
	service *service.IndentService
	logger  *logger.Logger
}

// NewIndentHandler creates a new indent handler
func NewIndentHandler(svc *service.IndentService, log *logger.Logger) *IndentHandler {
	return &IndentHandler{
		service: svc,
		logger:  log,
	}
}

// Create creates a draft indent
func (h *IndentHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())

	var req service.CreateIndentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	indent, err := h.service.Create(r.Context(), a, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, indent)
}

// Update replaces a draft's line items
func (h *IndentHandler) Update(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	id, err := indentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		Items []service.IndentLine `json:"items" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	indent, err := h.service.UpdateDraft(r.Context(), a, id, req.Items)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, indent)
}

// List lists indents visible to the actor
func (h *IndentHandler) List(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	status := r.URL.Query().Get("status")
	mine := r.URL.Query().Get("mine") == "true"

	indents, err := h.service.List(r.Context(), a, status, mine)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, indents)
}

// Get gets one indent with its items
func (h *IndentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	id, err := indentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	indent, err := h.service.Get(r.Context(), a, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, indent)
}

// Submit moves a draft to pending
func (h *IndentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

// Approve approves a pending indent
func (h *IndentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject rejects a pending indent
func (h *IndentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// Receive records a receipt against an approved indent's line
func (h *IndentHandler) Receive(w http.ResponseWriter, r *http.Request) {
	a := actor.FromContext(r.Context())
	id, err := indentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.ReceiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.Receive(r.Context(), a, id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

func (h *IndentHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, *actor.Actor, int64) error) {
	a := actor.FromContext(r.Context())
	id, err := indentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := fn(r.Context(), a, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"id": id})
}

func indentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid indent id")
	}
	return id, nil
}
