package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

// Backend is the console's REST client for customer lookups and call
// log writes. It implements CustomerLookup and CallWriter.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBackend creates a REST client against the server's API
func NewBackend(baseURL string, logger zerolog.Logger) *Backend {
	return &Backend{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "console_api").Logger(),
	}
}

// ByPhone looks up a customer by phone number; a 404 yields (nil, nil)
func (b *Backend) ByPhone(phone string) (*types.Customer, error) {
	resp, err := b.httpClient.Get(b.baseURL + "/api/customers/phone/" + url.PathEscape(phone))
	if err != nil {
		return nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("customer lookup returned status %d", resp.StatusCode)
	}

	var customer types.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}
	return &customer, nil
}

// LogCall persists a call log entry
func (b *Backend) LogCall(req types.CreateCallLog) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal call log: %w", err)
	}

	resp, err := b.httpClient.Post(b.baseURL+"/api/calllogs", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("call log write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("call log write returned status %d", resp.StatusCode)
	}
	return nil
}
