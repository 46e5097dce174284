package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mplattner/supportline/internal/directory"
	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

func newCustomersRouter(t *testing.T) chi.Router {
	t.Helper()

	logger := zerolog.New(&bytes.Buffer{})
	st, err := store.New(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	handler := NewCustomersHandler(directory.NewService(st, logger), logger)
	r := chi.NewRouter()
	r.Route("/api/customers", handler.Routes)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCustomerCreateAndGet(t *testing.T) {
	r := newCustomersRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{
		Name:  "Sarah Johnson",
		Phone: "+1234567890",
		Email: "sarah@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created types.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned id")
	}

	rec = doJSON(t, r, http.MethodGet, "/api/customers/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got types.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Name != "Sarah Johnson" {
		t.Errorf("expected Sarah Johnson, got %s", got.Name)
	}
}

func TestCustomerDuplicatePhoneConflict(t *testing.T) {
	r := newCustomersRouter(t)

	first := doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{Name: "First", Phone: "+1234567890"})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}

	second := doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{Name: "Second", Phone: "+1234567890"})
	if second.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", second.Code)
	}
}

func TestCustomerGetByPhone(t *testing.T) {
	r := newCustomersRouter(t)

	doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{Name: "Sarah", Phone: "+1234567890"})

	rec := doJSON(t, r, http.MethodGet, "/api/customers/phone/%2B1234567890", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got types.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Phone != "+1234567890" {
		t.Errorf("expected phone +1234567890, got %s", got.Phone)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/customers/phone/%2B1999999999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestCustomerNotFound(t *testing.T) {
	r := newCustomersRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/customers/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestCustomerInvalidID(t *testing.T) {
	r := newCustomersRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/customers/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestCustomerUpdate(t *testing.T) {
	r := newCustomersRouter(t)

	doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{Name: "Sarah", Phone: "+1234567890"})

	rec := doJSON(t, r, http.MethodPut, "/api/customers/1", types.UpdateCustomer{Email: "new@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got types.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Email != "new@example.com" || got.Name != "Sarah" {
		t.Errorf("unexpected customer: %+v", got)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/customers/42", types.UpdateCustomer{Name: "Ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestCustomerDelete(t *testing.T) {
	r := newCustomersRouter(t)

	doJSON(t, r, http.MethodPost, "/api/customers", types.CreateCustomer{Name: "Sarah", Phone: "+1234567890"})

	rec := doJSON(t, r, http.MethodDelete, "/api/customers/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/customers/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", rec.Code)
	}
}

func TestCustomerListEmpty(t *testing.T) {
	r := newCustomersRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/customers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	// Empty list encodes as [] rather than null
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}
