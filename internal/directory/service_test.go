package directory

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	logger := zerolog.New(&bytes.Buffer{})
	st, err := store.New(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, logger)
}

func TestCreateAndLookup(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(types.CreateCustomer{
		Name:  "Sarah Johnson",
		Phone: "+1234567890",
		Email: "sarah@example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned id")
	}

	byPhone, err := svc.ByPhone("+1234567890")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if byPhone == nil || byPhone.Name != "Sarah Johnson" {
		t.Errorf("unexpected customer: %+v", byPhone)
	}

	byID, err := svc.ByID(created.ID)
	if err != nil {
		t.Fatalf("lookup by id failed: %v", err)
	}
	if byID == nil || byID.Phone != "+1234567890" {
		t.Errorf("unexpected customer: %+v", byID)
	}
}

func TestLookupMissingIsNotError(t *testing.T) {
	svc := newTestService(t)

	customer, err := svc.ByPhone("+1999999999")
	if err != nil {
		t.Fatalf("expected nil error for missing customer, got %v", err)
	}
	if customer != nil {
		t.Errorf("expected nil customer, got %+v", customer)
	}

	customer, err = svc.ByID(42)
	if err != nil {
		t.Fatalf("expected nil error for missing id, got %v", err)
	}
	if customer != nil {
		t.Errorf("expected nil customer, got %+v", customer)
	}
}

func TestCreateDuplicatePhoneRejected(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(types.CreateCustomer{Name: "First", Phone: "+1234567890"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.Create(types.CreateCustomer{Name: "Second", Phone: "+1234567890"})
	if !errors.Is(err, store.ErrPhoneConflict) {
		t.Fatalf("expected phone conflict, got %v", err)
	}

	// The original record is untouched
	customer, err := svc.ByPhone("+1234567890")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if customer.Name != "First" {
		t.Errorf("expected First, got %s", customer.Name)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(types.CreateCustomer{Name: "No Phone"}); err == nil {
		t.Error("expected error for missing phone")
	}

	long := strings.Repeat("1", types.MaxPhoneLen+1)
	if _, err := svc.Create(types.CreateCustomer{Name: "Long", Phone: long}); err == nil {
		t.Error("expected error for oversized phone")
	}
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(types.CreateCustomer{Name: "Sarah", Phone: "+1234567890", Email: "old@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(created.ID, types.UpdateCustomer{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Errorf("expected updated email, got %s", updated.Email)
	}
	// Untouched fields survive
	if updated.Name != "Sarah" || updated.Phone != "+1234567890" {
		t.Errorf("unexpected customer after update: %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestUpdatePhoneConflict(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(types.CreateCustomer{Name: "A", Phone: "+1111111111"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	b, err := svc.Create(types.CreateCustomer{Name: "B", Phone: "+2222222222"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Update(b.ID, types.UpdateCustomer{Phone: "+1111111111"}); !errors.Is(err, store.ErrPhoneConflict) {
		t.Fatalf("expected phone conflict, got %v", err)
	}
}

func TestUpdateMissingCustomer(t *testing.T) {
	svc := newTestService(t)

	customer, err := svc.Update(42, types.UpdateCustomer{Name: "Ghost"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if customer != nil {
		t.Errorf("expected nil customer, got %+v", customer)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(types.CreateCustomer{Name: "Sarah", Phone: "+1234567890"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := svc.Delete(created.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report success")
	}

	deleted, err = svc.Delete(created.ID)
	if err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report no match")
	}
}
