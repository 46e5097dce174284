package console

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 10 * time.Second

	// Reconnect backoff
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// Connection maintains the websocket link between one console session
// and the hub, registering the agent on every (re)connect and feeding
// pushed events into the session.
type Connection struct {
	session    *Session
	serverURL  string
	conn       *websocket.Conn
	logger     zerolog.Logger
	mu         sync.Mutex
	connected  bool
	closed     bool // permanently closed, no reconnects
	registered chan struct{}
	regOnce    sync.Once
}

// NewConnection creates a console connection for the given session
func NewConnection(session *Session, serverURL string, logger zerolog.Logger) *Connection {
	return &Connection{
		session:    session,
		serverURL:  serverURL,
		logger:     logger.With().Str("component", "console_conn").Str("agent_id", session.agentID).Logger(),
		registered: make(chan struct{}),
	}
}

// Registered is closed after the hub acknowledges agent registration
func (c *Connection) Registered() <-chan struct{} {
	return c.registered
}

// Run starts the connection and maintains it with exponential backoff
func (c *Connection) Run(ctx context.Context) {
	reconnectDelay := initialReconnectDelay

	for {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		select {
		case <-ctx.Done():
			c.Close()
			return
		default:
		}

		if err := c.connect(); err != nil {
			c.logger.Debug().Err(err).Dur("retry_in", reconnectDelay).Msg("connection failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			reconnectDelay *= 2
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			continue
		}

		reconnectDelay = initialReconnectDelay

		c.sendRegister()
		c.readLoop(ctx)

		c.mu.Lock()
		c.connected = false
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}
}

// connect establishes the websocket connection
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wsURL := c.serverURL + "/ws"
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[len("http"):]
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true
	c.logger.Debug().Msg("websocket connected")
	return nil
}

// Close permanently closes the connection and prevents reconnects
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// IsConnected reports whether the link is currently up
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// readLoop receives hub events until the connection drops
func (c *Connection) readLoop(ctx context.Context) {
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			c.handleIncoming(message)
		}
	}()

	select {
	case <-ctx.Done():
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		<-readDone
	case <-readDone:
	}
}

// sendRegister binds this connection to the session's agent id
func (c *Connection) sendRegister() {
	reg := types.AgentRegister{
		Type:    types.MsgRegister,
		AgentID: c.session.agentID,
	}
	data, err := json.Marshal(reg)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal register message")
		return
	}
	c.writeMessage(data)
}

// handleIncoming dispatches hub messages into the session. Events for
// one call arrive on this single connection and are applied in receipt
// order.
func (c *Connection) handleIncoming(message []byte) {
	var msgType struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msgType); err != nil {
		return
	}

	switch msgType.Type {
	case types.MsgIncomingCall:
		var event types.IncomingCallEvent
		if err := json.Unmarshal(message, &event); err != nil {
			return
		}
		c.session.HandleIncomingCall(event)

	case types.MsgCallStatus:
		var event types.CallStatusEvent
		if err := json.Unmarshal(message, &event); err != nil {
			return
		}
		c.session.HandleStatusUpdate(event)

	case types.MsgAgentRegistered:
		c.logger.Info().Msg("registered with hub")
		c.regOnce.Do(func() { close(c.registered) })

	default:
		c.logger.Debug().Str("type", msgType.Type).Msg("unknown message type")
	}
}

// writeMessage writes a frame to the websocket
func (c *Connection) writeMessage(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug().Err(err).Msg("write error")
	}
}
