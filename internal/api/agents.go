package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// AgentLister reports the currently registered agent ids
type AgentLister interface {
	ConnectedAgents() []string
}

// AgentsHandler exposes the hub's registered agent set
type AgentsHandler struct {
	hub    AgentLister
	logger zerolog.Logger
}

// NewAgentsHandler creates a new AgentsHandler
func NewAgentsHandler(h AgentLister, logger zerolog.Logger) *AgentsHandler {
	return &AgentsHandler{
		hub:    h,
		logger: logger.With().Str("component", "agents_api").Logger(),
	}
}

// List handles GET /api/agents
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	agents := h.hub.ConnectedAgents()
	if agents == nil {
		agents = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": agents,
		"count":  len(agents),
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
