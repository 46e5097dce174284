package calllog

import (
	"errors"
	"fmt"
	"time"

	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// CustomerResolver resolves a customer by phone number at call-log
// creation time. A nil result with a nil error means no match.
type CustomerResolver interface {
	ByPhone(phone string) (*types.Customer, error)
}

// Service creates and updates call records and associates them with
// customers by phone match
type Service struct {
	store     store.Store
	customers CustomerResolver
	logger    zerolog.Logger
}

// NewService creates a new call log service
func NewService(st store.Store, customers CustomerResolver, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		customers: customers,
		logger:    logger.With().Str("component", "calllog").Logger(),
	}
}

// ByID returns a call log by id; missing records yield a nil result
func (s *Service) ByID(id int64) (*types.CallLog, error) {
	log, err := s.store.CallLogByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return log, err
}

// ByPhone returns all call logs for a phone number, most recent first
func (s *Service) ByPhone(phone string) ([]types.CallLog, error) {
	return s.store.CallLogsByPhone(phone)
}

// List returns call logs most-recent-first. page and pageSize are
// 1-indexed; zero values disable paging.
func (s *Service) List(page, pageSize int) ([]types.CallLog, error) {
	return s.store.ListCallLogs(page, pageSize)
}

// Create logs a call from an explicit request
func (s *Service) Create(req types.CreateCallLog) (*types.CallLog, error) {
	if err := validate(req.Phone, req.Notes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	log := &types.CallLog{
		Phone:         req.Phone,
		Timestamp:     now,
		Status:        req.Status,
		Duration:      req.Duration,
		Notes:         req.Notes,
		AgentID:       req.AgentID,
		CorrelationID: req.CorrelationID,
		CustomerID:    req.CustomerID,
		CreatedAt:     now,
	}

	if err := s.store.CreateCallLog(log); err != nil {
		return nil, err
	}
	return log, nil
}

// Update applies a partial update; only non-empty supplied fields
// overwrite
func (s *Service) Update(id int64, req types.UpdateCallLog) (*types.CallLog, error) {
	log, err := s.store.CallLogByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if req.Status != "" {
		log.Status = req.Status
	}
	if req.Duration != nil {
		log.Duration = req.Duration
	}
	if req.Notes != "" {
		if len(req.Notes) > types.MaxNotesLen {
			return nil, fmt.Errorf("notes exceed %d characters", types.MaxNotesLen)
		}
		log.Notes = req.Notes
	}
	if req.AgentID != "" {
		log.AgentID = req.AgentID
	}

	if err := s.store.UpdateCallLog(log); err != nil {
		return nil, err
	}
	return log, nil
}

// Delete removes a call log; returns false when no record matched
func (s *Service) Delete(id int64) (bool, error) {
	err := s.store.DeleteCallLog(id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LogIncomingCall persists a call log for an inbound call event with
// status "incoming". The customer is resolved by phone match once, at
// creation time; it is a snapshot, not a live link.
func (s *Service) LogIncomingCall(event types.IncomingCallEvent) (*types.CallLog, error) {
	var customerID *int64
	customer, err := s.customers.ByPhone(event.From)
	if err != nil {
		// A failed lookup degrades to an unresolved-customer log
		s.logger.Warn().Err(err).Str("phone", event.From).Msg("customer lookup failed")
	} else if customer != nil {
		customerID = &customer.ID
	}

	log := &types.CallLog{
		Phone:         event.From,
		Timestamp:     event.Timestamp,
		Status:        "incoming",
		CorrelationID: event.CorrelationID,
		CustomerID:    customerID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.CreateCallLog(log); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("call_log_id", log.ID).
		Str("correlation_id", log.CorrelationID).
		Str("phone", log.Phone).
		Msg("incoming call logged")
	return log, nil
}

// UpdateCallStatus updates the record matching correlationID. Records
// are addressed by correlation id only; the upstream provider does not
// know internal ids. No match yields (nil, nil) so retried webhooks
// stay idempotent. Concurrent writers are resolved last-write-wins.
func (s *Service) UpdateCallStatus(correlationID, status string, duration *int64) (*types.CallLog, error) {
	log, err := s.store.CallLogByCorrelationID(correlationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log.Status = status
	if duration != nil {
		log.Duration = duration
	}

	if err := s.store.UpdateCallLog(log); err != nil {
		return nil, err
	}
	return log, nil
}

func validate(phone, notes string) error {
	if phone == "" {
		return errors.New("phone is required")
	}
	if len(phone) > types.MaxPhoneLen {
		return fmt.Errorf("phone exceeds %d characters", types.MaxPhoneLen)
	}
	if len(notes) > types.MaxNotesLen {
		return fmt.Errorf("notes exceed %d characters", types.MaxNotesLen)
	}
	return nil
}
