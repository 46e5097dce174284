package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// Service provides customer lookups and CRUD over the store, enforcing
// phone number uniqueness
type Service struct {
	store  store.Store
	logger zerolog.Logger
}

// NewService creates a new customer directory service
func NewService(st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// ByPhone looks up a customer by phone number. A missing customer is
// not an error; the result is nil.
func (s *Service) ByPhone(phone string) (*types.Customer, error) {
	customer, err := s.store.CustomerByPhone(phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return customer, err
}

// ByID looks up a customer by id; missing customers yield a nil result
func (s *Service) ByID(id int64) (*types.Customer, error) {
	customer, err := s.store.CustomerByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return customer, err
}

// List returns all customers ordered by name
func (s *Service) List() ([]types.Customer, error) {
	return s.store.ListCustomers()
}

// Create adds a new customer. A duplicate phone number is rejected with
// store.ErrPhoneConflict and never silently overwrites.
func (s *Service) Create(req types.CreateCustomer) (*types.Customer, error) {
	if err := validatePhone(req.Phone); err != nil {
		return nil, err
	}

	customer := &types.Customer{
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateCustomer(customer); err != nil {
		if errors.Is(err, store.ErrPhoneConflict) {
			return nil, fmt.Errorf("customer with phone %s already exists: %w", req.Phone, err)
		}
		return nil, err
	}

	s.logger.Info().Int64("customer_id", customer.ID).Str("phone", customer.Phone).Msg("customer created")
	return customer, nil
}

// Update applies a partial update; only non-empty fields overwrite.
// Changing the phone to one held by another customer is rejected.
func (s *Service) Update(id int64, req types.UpdateCustomer) (*types.Customer, error) {
	customer, err := s.store.CustomerByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Phone != "" {
		if err := validatePhone(req.Phone); err != nil {
			return nil, err
		}
		customer.Phone = req.Phone
	}
	if req.Email != "" {
		customer.Email = req.Email
	}

	now := time.Now().UTC()
	customer.UpdatedAt = &now

	if err := s.store.UpdateCustomer(customer); err != nil {
		if errors.Is(err, store.ErrPhoneConflict) {
			return nil, fmt.Errorf("customer with phone %s already exists: %w", req.Phone, err)
		}
		return nil, err
	}

	return customer, nil
}

// Delete removes a customer. Call logs referencing it keep their
// history but lose the customer reference.
func (s *Service) Delete(id int64) (bool, error) {
	err := s.store.DeleteCustomer(id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info().Int64("customer_id", id).Msg("customer deleted")
	return true, nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return errors.New("phone is required")
	}
	if len(phone) > types.MaxPhoneLen {
		return fmt.Errorf("phone exceeds %d characters", types.MaxPhoneLen)
	}
	return nil
}
