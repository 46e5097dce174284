package types

import "time"

// Message type discriminators carried in the "type" field of every
// websocket frame exchanged between the hub and agent consoles.
const (
	MsgIncomingCall    = "incoming_call"
	MsgCallStatus      = "call_status"
	MsgRegister        = "register"
	MsgAgentRegistered = "agent_registered"
)

// IncomingCallEvent is pushed to every connected console when a call
// arrives. It has the same shape as the inbound webhook payload.
type IncomingCallEvent struct {
	Type          string    `json:"type"` // "incoming_call"
	From          string    `json:"from"`
	To            string    `json:"to"`
	CorrelationID string    `json:"correlationId"`
	Direction     string    `json:"direction"`
	Timestamp     time.Time `json:"timestamp"`
}

// CallStatusEvent is pushed when a status webhook updates a known call
type CallStatusEvent struct {
	Type          string `json:"type"` // "call_status"
	CorrelationID string `json:"correlationId"`
	Status        string `json:"status"`
}

// AgentRegister is sent by a console to bind its connection to an agent id
type AgentRegister struct {
	Type    string `json:"type"` // "register"
	AgentID string `json:"agentId"`
}

// AgentRegistered is the acknowledgment sent back to the registering
// connection only
type AgentRegistered struct {
	Type    string `json:"type"` // "agent_registered"
	AgentID string `json:"agentId"`
}
