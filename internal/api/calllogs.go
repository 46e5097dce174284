package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mplattner/supportline/internal/calllog"
	"github.com/mplattner/supportline/internal/metrics"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// CallLogsHandler provides REST endpoints for call log CRUD
type CallLogsHandler struct {
	calls  *calllog.Service
	logger zerolog.Logger
}

// NewCallLogsHandler creates a new CallLogsHandler
func NewCallLogsHandler(calls *calllog.Service, logger zerolog.Logger) *CallLogsHandler {
	return &CallLogsHandler{
		calls:  calls,
		logger: logger.With().Str("component", "calllogs_api").Logger(),
	}
}

// Routes mounts the call log routes on r
func (h *CallLogsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/phone/{phone}", h.GetByPhone)
}

// List handles GET /api/calllogs?page=1&pageSize=50
func (h *CallLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parseQueryInt(r, "page")
	pageSize := parseQueryInt(r, "pageSize")

	logs, err := h.calls.List(page, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list call logs")
		writeError(w, http.StatusInternalServerError, "failed to list call logs")
		return
	}
	if logs == nil {
		logs = []types.CallLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Get handles GET /api/calllogs/{id}
func (h *CallLogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	log, err := h.calls.ByID(id)
	if err != nil {
		h.logger.Error().Err(err).Int64("call_log_id", id).Msg("failed to get call log")
		writeError(w, http.StatusInternalServerError, "failed to get call log")
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "call log not found")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// GetByPhone handles GET /api/calllogs/phone/{phone}
func (h *CallLogsHandler) GetByPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	logs, err := h.calls.ByPhone(phone)
	if err != nil {
		h.logger.Error().Err(err).Str("phone", phone).Msg("failed to get call logs by phone")
		writeError(w, http.StatusInternalServerError, "failed to get call logs")
		return
	}
	if logs == nil {
		logs = []types.CallLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Create handles POST /api/calllogs
func (h *CallLogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCallLog
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	log, err := h.calls.Create(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.Get().RecordCallLogWritten()
	writeJSON(w, http.StatusCreated, log)
}

// Update handles PUT /api/calllogs/{id}
func (h *CallLogsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req types.UpdateCallLog
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	log, err := h.calls.Update(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "call log not found")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// Delete handles DELETE /api/calllogs/{id}
func (h *CallLogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.calls.Delete(id)
	if err != nil {
		h.logger.Error().Err(err).Int64("call_log_id", id).Msg("failed to delete call log")
		writeError(w, http.StatusInternalServerError, "failed to delete call log")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "call log not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseQueryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
