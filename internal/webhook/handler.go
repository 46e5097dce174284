package webhook

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mplattner/supportline/internal/metrics"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// CallLogger is the slice of the call log service the webhook layer
// needs
type CallLogger interface {
	LogIncomingCall(event types.IncomingCallEvent) (*types.CallLog, error)
	UpdateCallStatus(correlationID, status string, duration *int64) (*types.CallLog, error)
}

// Broadcaster is the slice of the hub the webhook layer needs
type Broadcaster interface {
	BroadcastIncomingCall(event types.IncomingCallEvent)
	BroadcastCallStatus(correlationID, status, agentID string)
}

// Handler receives inbound call webhooks from the telephony provider,
// persists them and relays events to connected consoles.
//
// The response never depends on whether any agent was listening;
// broadcast is fire-and-forget.
type Handler struct {
	calls  CallLogger
	hub    Broadcaster
	logger zerolog.Logger
}

// NewHandler creates a new webhook Handler
func NewHandler(calls CallLogger, h Broadcaster, logger zerolog.Logger) *Handler {
	return &Handler{
		calls:  calls,
		hub:    h,
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

// HandleIncomingCall handles POST /api/incomingcall. The provider
// sends application/x-www-form-urlencoded voice webhook fields.
func (h *Handler) HandleIncomingCall(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()
	m.RecordWebhook()

	if err := r.ParseForm(); err != nil {
		m.RecordWebhookError()
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	direction := r.PostFormValue("Direction")
	if direction == "" {
		direction = "inbound"
	}

	event := types.IncomingCallEvent{
		Type:          types.MsgIncomingCall,
		From:          r.PostFormValue("From"),
		To:            r.PostFormValue("To"),
		CorrelationID: r.PostFormValue("CallSid"),
		Direction:     direction,
		Timestamp:     time.Now().UTC(),
	}

	h.processIncomingCall(w, event)
}

// HandleCallStatus handles POST /api/incomingcall/status. An unknown
// correlation id still returns success so provider retries stay
// idempotent; only the rebroadcast step is skipped.
func (h *Handler) HandleCallStatus(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()
	m.RecordWebhook()

	if err := r.ParseForm(); err != nil {
		m.RecordWebhookError()
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	correlationID := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")

	// Duration applies only when present and a valid non-negative
	// integer; anything else leaves the stored value untouched
	var duration *int64
	if raw := r.PostFormValue("CallDuration"); raw != "" {
		if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil && seconds >= 0 {
			duration = &seconds
		}
	}

	log, err := h.calls.UpdateCallStatus(correlationID, status, duration)
	if err != nil {
		m.RecordWebhookError()
		h.logger.Error().Err(err).Str("correlation_id", correlationID).Msg("failed to update call status")
		writeError(w, http.StatusBadGateway, "failed to update call status")
		return
	}

	if log != nil {
		h.hub.BroadcastCallStatus(correlationID, status, r.PostFormValue("AgentId"))
	} else {
		h.logger.Debug().
			Str("correlation_id", correlationID).
			Msg("status update for unknown call, nothing to do")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"correlationId": correlationID,
		"status":        status,
	})
}

// simulateRequest is the JSON body of the manual test path
type simulateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HandleSimulate handles POST /api/incomingcall/test. It produces an
// event structurally identical to the real webhook path with a
// generated correlation id that cannot collide with provider ids.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	metrics.Get().RecordWebhook()

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := types.IncomingCallEvent{
		Type:          types.MsgIncomingCall,
		From:          req.From,
		To:            req.To,
		CorrelationID: "sim_" + uuid.New().String(),
		Direction:     "inbound",
		Timestamp:     time.Now().UTC(),
	}

	h.processIncomingCall(w, event)
}

// processIncomingCall persists the event and fans it out
func (h *Handler) processIncomingCall(w http.ResponseWriter, event types.IncomingCallEvent) {
	log, err := h.calls.LogIncomingCall(event)
	if err != nil {
		metrics.Get().RecordWebhookError()
		h.logger.Error().Err(err).Str("from", event.From).Msg("failed to log incoming call")
		writeError(w, http.StatusBadGateway, "failed to log incoming call")
		return
	}

	metrics.Get().RecordCallLogWritten()

	// Best-effort fan-out; the webhook response does not depend on it
	h.hub.BroadcastIncomingCall(event)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "incoming call logged and agents notified",
		"callLog": log,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
