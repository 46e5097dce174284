package types

import "time"

// Field length limits enforced at the service layer
const (
	MaxPhoneLen = 20
	MaxNotesLen = 500
)

// Customer represents a customer record
type Customer struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CallLog represents a single call history record
type CallLog struct {
	ID int64 `json:"id"`

	// Phone is the remote party's number
	Phone string `json:"phone"`

	// Timestamp is the call-event time, distinct from CreatedAt
	Timestamp time.Time `json:"timestamp"`

	// Status is free-form; the usual values are incoming, outgoing,
	// completed, missed, failed and rejected
	Status string `json:"status"`

	// Duration is elapsed call time in seconds, if known
	Duration *int64 `json:"duration,omitempty"`

	Notes   string `json:"notes,omitempty"`
	AgentID string `json:"agentId,omitempty"`

	// CorrelationID is the external call-session identifier (CallSid);
	// status webhooks join on this, never on ID
	CorrelationID string `json:"correlationId,omitempty"`

	// CustomerID is resolved once by phone match when the log is created.
	// Later customer edits do not retroactively change it.
	CustomerID *int64 `json:"customerId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// CreateCustomer is the payload for creating a customer
type CreateCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// UpdateCustomer is a partial update; empty fields are left untouched
type UpdateCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// CreateCallLog is the payload for logging a call
type CreateCallLog struct {
	Phone         string `json:"phone"`
	Status        string `json:"status"`
	Duration      *int64 `json:"duration,omitempty"`
	Notes         string `json:"notes,omitempty"`
	AgentID       string `json:"agentId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	CustomerID    *int64 `json:"customerId,omitempty"`
}

// UpdateCallLog is a partial update; empty fields are left untouched
type UpdateCallLog struct {
	Status   string `json:"status"`
	Duration *int64 `json:"duration,omitempty"`
	Notes    string `json:"notes"`
	AgentID  string `json:"agentId"`
}
