package console

import (
	"sync"
	"time"

	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// Status is the console's local view of the active call
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRinging   Status = "ringing"
	StatusConnected Status = "connected"
	StatusEnded     Status = "ended"
	StatusFailed    Status = "failed"
)

// CustomerLookup resolves customers by phone; nil with nil error means
// no match
type CustomerLookup interface {
	ByPhone(phone string) (*types.Customer, error)
}

// CallWriter persists call log entries through the service layer
type CallWriter interface {
	LogCall(req types.CreateCallLog) error
}

// CallState is a snapshot of the session for rendering
type CallState struct {
	AgentID  string
	Status   Status
	Call     *types.IncomingCallEvent
	Customer *types.Customer
	Duration int64 // accumulated seconds while connected
}

// Session keeps one agent's view of the active call consistent with
// hub-pushed events and local actions.
//
// Status updates may race local answer/reject/end actions; they are
// applied last-write-wins with the constraint that a terminal state is
// sticky until the next incoming call re-initializes the session.
type Session struct {
	mu sync.Mutex

	agentID  string
	status   Status
	call     *types.IncomingCallEvent
	customer *types.Customer
	duration int64

	// tickerStop cancels the duration ticker; nil when not running
	tickerStop chan struct{}

	// tickInterval is one second in production; tests shrink it
	tickInterval time.Duration

	lookup CustomerLookup
	writer CallWriter
	logger zerolog.Logger
}

// NewSession creates a console session for one agent
func NewSession(agentID string, lookup CustomerLookup, writer CallWriter, logger zerolog.Logger) *Session {
	return &Session{
		agentID:      agentID,
		status:       StatusIdle,
		tickInterval: time.Second,
		lookup:       lookup,
		writer:       writer,
		logger:       logger.With().Str("component", "console").Str("agent_id", agentID).Logger(),
	}
}

// State returns a snapshot of the current call state
func (s *Session) State() CallState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := CallState{
		AgentID:  s.agentID,
		Status:   s.status,
		Customer: s.customer,
		Duration: s.duration,
	}
	if s.call != nil {
		call := *s.call
		state.Call = &call
	}
	return state
}

// HandleIncomingCall transitions to ringing and starts an asynchronous
// customer lookup. A new incoming call always re-initializes the
// session, releasing any terminal state.
func (s *Session) HandleIncomingCall(event types.IncomingCallEvent) {
	s.mu.Lock()
	if s.call != nil && s.status != StatusEnded && s.status != StatusFailed {
		s.logger.Warn().
			Str("correlation_id", s.call.CorrelationID).
			Msg("incoming call replaces active call state")
	}
	s.stopTickerLocked()
	call := event
	s.call = &call
	s.customer = nil
	s.status = StatusRinging
	s.duration = 0
	s.mu.Unlock()

	s.logger.Info().
		Str("correlation_id", event.CorrelationID).
		Str("from", event.From).
		Msg("incoming call")

	// Lookup runs off the event path; a late result is attached only
	// if this call is still current, otherwise discarded
	go s.resolveCustomer(event.CorrelationID, event.From)
}

func (s *Session) resolveCustomer(correlationID, phone string) {
	customer, err := s.lookup.ByPhone(phone)
	if err != nil {
		// Degrades to an unresolved-customer call; answering is
		// never blocked on the lookup
		s.logger.Warn().Err(err).Str("phone", phone).Msg("customer lookup failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.call == nil || s.call.CorrelationID != correlationID {
		return
	}
	s.customer = customer
}

// Answer transitions ringing to connected and starts the duration
// counter
func (s *Session) Answer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRinging {
		return false
	}
	s.status = StatusConnected
	s.startTickerLocked()
	s.logger.Info().Str("correlation_id", s.call.CorrelationID).Msg("call answered")
	return true
}

// Reject declines a ringing call, returning the session to idle, and
// logs a rejected call. A failed write is a non-fatal warning; the
// state transition always completes.
func (s *Session) Reject() error {
	s.mu.Lock()
	if s.status != StatusRinging || s.call == nil {
		s.mu.Unlock()
		return nil
	}

	req := types.CreateCallLog{
		Phone:         s.call.From,
		Status:        "rejected",
		AgentID:       s.agentID,
		CorrelationID: s.call.CorrelationID,
	}
	if s.customer != nil {
		id := s.customer.ID
		req.CustomerID = &id
	}
	s.resetLocked(StatusIdle)
	s.mu.Unlock()

	if err := s.writer.LogCall(req); err != nil {
		s.logger.Warn().Err(err).Msg("failed to log rejected call")
		return err
	}
	return nil
}

// End hangs up a connected call, returning the session to idle, and
// logs a completed call with the accumulated duration and optional
// notes. A failed write is a non-fatal warning.
func (s *Session) End(notes string) error {
	s.mu.Lock()
	if s.status != StatusConnected || s.call == nil {
		s.mu.Unlock()
		return nil
	}

	duration := s.duration
	req := types.CreateCallLog{
		Phone:         s.call.From,
		Status:        "completed",
		Duration:      &duration,
		Notes:         notes,
		AgentID:       s.agentID,
		CorrelationID: s.call.CorrelationID,
	}
	if s.customer != nil {
		id := s.customer.ID
		req.CustomerID = &id
	}
	s.resetLocked(StatusIdle)
	s.mu.Unlock()

	if err := s.writer.LogCall(req); err != nil {
		s.logger.Warn().Err(err).Msg("failed to log completed call")
		return err
	}
	return nil
}

// HandleStatusUpdate applies a hub-pushed status event. Updates for a
// correlation id other than the current call are ignored. Terminal
// remote statuses clear the local call without writing a log; the
// record was already updated server-side by the status webhook.
func (s *Session) HandleStatusUpdate(event types.CallStatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.call == nil || s.call.CorrelationID != event.CorrelationID {
		return
	}

	// Terminal states are sticky until the next incoming call
	if s.status == StatusEnded || s.status == StatusFailed {
		return
	}

	switch event.Status {
	case "completed", "rejected", "missed", "canceled", "busy", "no-answer":
		s.logger.Info().
			Str("correlation_id", event.CorrelationID).
			Str("status", event.Status).
			Msg("call ended remotely")
		s.resetLocked(StatusEnded)

	case "failed":
		s.logger.Warn().
			Str("correlation_id", event.CorrelationID).
			Msg("call failed remotely")
		s.resetLocked(StatusFailed)

	case "in-progress", "answered":
		if s.status == StatusRinging {
			s.status = StatusConnected
			s.startTickerLocked()
		}

	default:
		s.logger.Debug().Str("status", event.Status).Msg("unmapped call status ignored")
	}
}

// resetLocked clears call state and parks the session in status,
// either idle or a sticky terminal state
func (s *Session) resetLocked(status Status) {
	s.stopTickerLocked()
	s.call = nil
	s.customer = nil
	s.duration = 0
	s.status = status
}

func (s *Session) startTickerLocked() {
	if s.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	s.tickerStop = stop

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.status == StatusConnected {
					s.duration++
				}
				s.mu.Unlock()
			}
		}
	}()
}

// stopTickerLocked cancels the duration ticker if running
func (s *Session) stopTickerLocked() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}
