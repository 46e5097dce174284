package hub

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mplattner/supportline/internal/config"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware
		return true
	},
}

// Handler handles websocket upgrade requests from agent consoles
type Handler struct {
	hub    *Hub
	config *config.Config
	logger zerolog.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(h *Hub, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    h,
		config: cfg,
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and hands it to the hub
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, conn, h.config, h.logger)

	h.hub.register <- client

	client.Start()
}
