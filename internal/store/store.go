package store

import (
	"errors"

	"github.com/mplattner/supportline/internal/types"
)

// ErrNotFound is returned when a lookup matches no record
var ErrNotFound = errors.New("record not found")

// ErrPhoneConflict is returned when a write would violate the
// customer phone uniqueness constraint
var ErrPhoneConflict = errors.New("phone number already in use")

// Store defines the persistence interface for customers and call logs
type Store interface {
	// Customers
	CustomerByID(id int64) (*types.Customer, error)
	CustomerByPhone(phone string) (*types.Customer, error)
	ListCustomers() ([]types.Customer, error)
	CreateCustomer(c *types.Customer) error
	UpdateCustomer(c *types.Customer) error
	DeleteCustomer(id int64) error

	// Call logs
	CallLogByID(id int64) (*types.CallLog, error)
	CallLogByCorrelationID(correlationID string) (*types.CallLog, error)
	CallLogsByPhone(phone string) ([]types.CallLog, error)
	ListCallLogs(page, pageSize int) ([]types.CallLog, error)
	CreateCallLog(l *types.CallLog) error
	UpdateCallLog(l *types.CallLog) error
	DeleteCallLog(id int64) error

	Close() error
}
