package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    phone TEXT NOT NULL,
    email TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);

CREATE TABLE IF NOT EXISTS call_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    phone TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    status TEXT NOT NULL,
    duration INTEGER,
    notes TEXT,
    agent_id TEXT,
    correlation_id TEXT,
    customer_id INTEGER,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_call_logs_phone ON call_logs(phone);
CREATE INDEX IF NOT EXISTS idx_call_logs_correlation_id ON call_logs(correlation_id);
`

// SQLiteStore implements Store using an embedded SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens (or creates) the database at dbPath and runs migrations
func New(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("store initialized")

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a unique-constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func (s *SQLiteStore) CustomerByID(id int64) (*types.Customer, error) {
	row := s.db.QueryRow(
		`SELECT id, name, phone, email, created_at, updated_at FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

func (s *SQLiteStore) CustomerByPhone(phone string) (*types.Customer, error) {
	row := s.db.QueryRow(
		`SELECT id, name, phone, email, created_at, updated_at FROM customers WHERE phone = ?`, phone)
	return scanCustomer(row)
}

func (s *SQLiteStore) ListCustomers() ([]types.Customer, error) {
	rows, err := s.db.Query(
		`SELECT id, name, phone, email, created_at, updated_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []types.Customer
	for rows.Next() {
		c, err := scanCustomerRows(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *SQLiteStore) CreateCustomer(c *types.Customer) error {
	res, err := s.db.Exec(
		`INSERT INTO customers (name, phone, email, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Phone, nullString(c.Email), c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhoneConflict
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read customer id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) UpdateCustomer(c *types.Customer) error {
	res, err := s.db.Exec(
		`UPDATE customers SET name = ?, phone = ?, email = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Phone, nullString(c.Email), c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhoneConflict
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCustomer removes the customer and clears the weak reference on
// any call logs pointing at it. Call logs themselves are kept.
func (s *SQLiteStore) DeleteCustomer(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE call_logs SET customer_id = NULL WHERE customer_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear call log references: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

const callLogColumns = `id, phone, timestamp, status, duration, notes, agent_id, correlation_id, customer_id, created_at`

func (s *SQLiteStore) CallLogByID(id int64) (*types.CallLog, error) {
	row := s.db.QueryRow(
		`SELECT `+callLogColumns+` FROM call_logs WHERE id = ?`, id)
	return scanCallLog(row)
}

func (s *SQLiteStore) CallLogByCorrelationID(correlationID string) (*types.CallLog, error) {
	row := s.db.QueryRow(
		`SELECT `+callLogColumns+` FROM call_logs WHERE correlation_id = ?`, correlationID)
	return scanCallLog(row)
}

func (s *SQLiteStore) CallLogsByPhone(phone string) ([]types.CallLog, error) {
	rows, err := s.db.Query(
		`SELECT `+callLogColumns+` FROM call_logs WHERE phone = ? ORDER BY timestamp DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query call logs: %w", err)
	}
	defer rows.Close()
	return collectCallLogs(rows)
}

// ListCallLogs returns call logs most-recent-first. Paging is 1-indexed;
// page or pageSize of zero returns everything.
func (s *SQLiteStore) ListCallLogs(page, pageSize int) ([]types.CallLog, error) {
	query := `SELECT ` + callLogColumns + ` FROM call_logs ORDER BY timestamp DESC`
	args := []interface{}{}

	if page > 0 && pageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query call logs: %w", err)
	}
	defer rows.Close()
	return collectCallLogs(rows)
}

func (s *SQLiteStore) CreateCallLog(l *types.CallLog) error {
	res, err := s.db.Exec(
		`INSERT INTO call_logs (phone, timestamp, status, duration, notes, agent_id, correlation_id, customer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Phone, l.Timestamp, l.Status, nullInt(l.Duration), nullString(l.Notes),
		nullString(l.AgentID), nullString(l.CorrelationID), nullInt(l.CustomerID), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read call log id: %w", err)
	}
	l.ID = id
	return nil
}

func (s *SQLiteStore) UpdateCallLog(l *types.CallLog) error {
	res, err := s.db.Exec(
		`UPDATE call_logs SET status = ?, duration = ?, notes = ?, agent_id = ?, customer_id = ? WHERE id = ?`,
		l.Status, nullInt(l.Duration), nullString(l.Notes), nullString(l.AgentID), nullInt(l.CustomerID), l.ID)
	if err != nil {
		return fmt.Errorf("failed to update call log: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteCallLog(id int64) error {
	res, err := s.db.Exec(`DELETE FROM call_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete call log: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row *sql.Row) (*types.Customer, error) {
	c, err := scanCustomerRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func scanCustomerRows(row rowScanner) (*types.Customer, error) {
	var c types.Customer
	var email sql.NullString
	var updatedAt sql.NullTime

	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &email, &c.CreatedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Email = email.String
	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}
	return &c, nil
}

func scanCallLog(row *sql.Row) (*types.CallLog, error) {
	l, err := scanCallLogRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func scanCallLogRows(row rowScanner) (*types.CallLog, error) {
	var l types.CallLog
	var duration, customerID sql.NullInt64
	var notes, agentID, correlationID sql.NullString

	err := row.Scan(&l.ID, &l.Phone, &l.Timestamp, &l.Status, &duration, &notes,
		&agentID, &correlationID, &customerID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan call log: %w", err)
	}

	if duration.Valid {
		d := duration.Int64
		l.Duration = &d
	}
	l.Notes = notes.String
	l.AgentID = agentID.String
	l.CorrelationID = correlationID.String
	if customerID.Valid {
		id := customerID.Int64
		l.CustomerID = &id
	}
	return &l, nil
}

func collectCallLogs(rows *sql.Rows) ([]types.CallLog, error) {
	var logs []types.CallLog
	for rows.Next() {
		l, err := scanCallLogRows(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
