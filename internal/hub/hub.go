package hub

import (
	"encoding/json"
	"sync"

	"github.com/mplattner/supportline/internal/metrics"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// Hub maintains the set of connected agent console sessions and the
// agent-id to connection mapping, and broadcasts call lifecycle events.
//
// Delivery is best-effort, at-most-once per connected session. Dropped
// deliveries are logged and never retried; no operation here can fail
// in a way that blocks call processing.
type Hub struct {
	// All connected sessions, registered or not
	clients map[*Client]bool

	// Registered agents: agentID -> connection
	agents map[string]*Client

	// Register requests from new connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	// Mutex protecting both maps. Sends happen on buffered per-client
	// channels outside any long-held critical section so a slow
	// consumer cannot stall other agents.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		agents:     make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's connection lifecycle loop
func (h *Hub) Run() {
	m := metrics.Get()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			m.RecordConnect()
			h.logger.Info().
				Str("connection_id", client.id).
				Int("total_clients", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Remove the first agent binding held by this
				// connection, if any
				for agentID, c := range h.agents {
					if c == client {
						delete(h.agents, agentID)
						break
					}
				}
				client.Close()
				m.RecordDisconnect()
				h.logger.Info().
					Str("connection_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()
		}
	}
}

// BindAgent binds a connection to agentID, last-register-wins. A prior
// binding for the same agent is silently displaced; the stale
// connection is not closed and dies on its own ping timeout. The
// acknowledgment goes to the registering connection only.
func (h *Hub) BindAgent(agentID string, client *Client) {
	h.mu.Lock()
	h.agents[agentID] = client
	h.mu.Unlock()

	ack := types.AgentRegistered{Type: types.MsgAgentRegistered, AgentID: agentID}
	if data, err := json.Marshal(ack); err == nil {
		client.safeSend(data)
	}

	metrics.Get().RecordRegister()
	h.logger.Info().
		Str("agent_id", agentID).
		Str("connection_id", client.id).
		Msg("agent registered")
}

// BroadcastIncomingCall sends the incoming-call event to every
// connected session, registered or not. There is no routing or
// assignment; all agents see all calls.
func (h *Hub) BroadcastIncomingCall(event types.IncomingCallEvent) {
	event.Type = types.MsgIncomingCall
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal incoming call event")
		return
	}

	h.broadcast(data)
	h.logger.Info().
		Str("correlation_id", event.CorrelationID).
		Str("from", event.From).
		Msg("incoming call broadcast")
}

// BroadcastCallStatus pushes a status update. When agentID names a
// currently registered agent the event goes only to that agent;
// otherwise it is broadcast to all connected sessions.
func (h *Hub) BroadcastCallStatus(correlationID, status, agentID string) {
	event := types.CallStatusEvent{
		Type:          types.MsgCallStatus,
		CorrelationID: correlationID,
		Status:        status,
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal call status event")
		return
	}

	if agentID != "" {
		h.mu.RLock()
		client, ok := h.agents[agentID]
		h.mu.RUnlock()
		if ok {
			h.deliver(client, data)
			return
		}
	}

	h.broadcast(data)
}

// NotifyAgent sends an event to one agent's connection if registered.
// An unknown agent is logged and the event dropped; never retried,
// never queued.
func (h *Hub) NotifyAgent(agentID string, event interface{}) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal agent event")
		return false
	}

	h.mu.RLock()
	client, ok := h.agents[agentID]
	h.mu.RUnlock()

	if !ok {
		metrics.Get().RecordDeliveryDropped()
		h.logger.Debug().Str("agent_id", agentID).Msg("agent not registered, event dropped")
		return false
	}

	return h.deliver(client, data)
}

// ConnectedAgents returns a snapshot of the registered agent ids
func (h *Hub) ConnectedAgents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of connected sessions
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends raw data to every connected session
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	m := metrics.Get()
	m.RecordBroadcast()

	for _, client := range clients {
		h.deliver(client, data)
	}
}

// deliver performs a single best-effort send
func (h *Hub) deliver(client *Client, data []byte) bool {
	if client.safeSend(data) {
		return true
	}

	metrics.Get().RecordDeliveryDropped()
	h.logger.Warn().
		Str("connection_id", client.id).
		Msg("send buffer full or connection closing, event dropped")
	return false
}
