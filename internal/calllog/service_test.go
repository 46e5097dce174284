package calllog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mplattner/supportline/internal/directory"
	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/types"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T) (*Service, *directory.Service) {
	t.Helper()

	logger := zerolog.New(&bytes.Buffer{})
	st, err := store.New(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	customers := directory.NewService(st, logger)
	return NewService(st, customers, logger), customers
}

func incomingEvent(correlationID, from string) types.IncomingCallEvent {
	return types.IncomingCallEvent{
		Type:          types.MsgIncomingCall,
		From:          from,
		To:            "+1800555000",
		CorrelationID: correlationID,
		Direction:     "inbound",
		Timestamp:     time.Now().UTC(),
	}
}

func TestLogIncomingCallKnownCustomer(t *testing.T) {
	svc, customers := newTestService(t)

	customer, err := customers.Create(types.CreateCustomer{Name: "Sarah", Phone: "+1234567890"})
	if err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	log, err := svc.LogIncomingCall(incomingEvent("CA1", "+1234567890"))
	if err != nil {
		t.Fatalf("failed to log incoming call: %v", err)
	}

	if log.Status != "incoming" {
		t.Errorf("expected status incoming, got %s", log.Status)
	}
	if log.CorrelationID != "CA1" {
		t.Errorf("expected correlation id CA1, got %s", log.CorrelationID)
	}
	if log.CustomerID == nil || *log.CustomerID != customer.ID {
		t.Errorf("expected customer reference %d, got %v", customer.ID, log.CustomerID)
	}
}

func TestLogIncomingCallUnknownCaller(t *testing.T) {
	svc, _ := newTestService(t)

	log, err := svc.LogIncomingCall(incomingEvent("CA1", "+1999999999"))
	if err != nil {
		t.Fatalf("failed to log incoming call: %v", err)
	}
	if log.CustomerID != nil {
		t.Errorf("expected no customer reference, got %v", log.CustomerID)
	}
}

func TestCustomerSnapshotNotLiveLink(t *testing.T) {
	svc, customers := newTestService(t)

	log, err := svc.LogIncomingCall(incomingEvent("CA1", "+1234567890"))
	if err != nil {
		t.Fatalf("failed to log incoming call: %v", err)
	}
	if log.CustomerID != nil {
		t.Fatalf("expected unresolved customer, got %v", log.CustomerID)
	}

	// A customer created after the call does not retroactively attach
	if _, err := customers.Create(types.CreateCustomer{Name: "Late", Phone: "+1234567890"}); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	got, err := svc.ByID(log.ID)
	if err != nil {
		t.Fatalf("failed to get call log: %v", err)
	}
	if got.CustomerID != nil {
		t.Errorf("expected snapshot to stay unresolved, got %v", got.CustomerID)
	}
}

func TestUpdateCallStatus(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.LogIncomingCall(incomingEvent("CA1", "+1234567890")); err != nil {
		t.Fatalf("failed to log incoming call: %v", err)
	}

	duration := int64(125)
	log, err := svc.UpdateCallStatus("CA1", "completed", &duration)
	if err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	if log == nil {
		t.Fatal("expected updated log")
	}
	if log.Status != "completed" {
		t.Errorf("expected status completed, got %s", log.Status)
	}
	if log.Duration == nil || *log.Duration != 125 {
		t.Errorf("expected duration 125, got %v", log.Duration)
	}
}

func TestUpdateCallStatusUnknownCorrelation(t *testing.T) {
	svc, _ := newTestService(t)

	log, err := svc.UpdateCallStatus("CA-unknown", "completed", nil)
	if err != nil {
		t.Fatalf("expected nil error for unknown correlation id, got %v", err)
	}
	if log != nil {
		t.Errorf("expected nil log, got %+v", log)
	}
}

func TestUpdateCallStatusNilDurationKeepsExisting(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.LogIncomingCall(incomingEvent("CA1", "+1234567890")); err != nil {
		t.Fatalf("failed to log incoming call: %v", err)
	}

	duration := int64(60)
	if _, err := svc.UpdateCallStatus("CA1", "in-progress", &duration); err != nil {
		t.Fatalf("failed to set duration: %v", err)
	}

	log, err := svc.UpdateCallStatus("CA1", "completed", nil)
	if err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	if log.Duration == nil || *log.Duration != 60 {
		t.Errorf("expected duration 60 preserved, got %v", log.Duration)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create(types.CreateCallLog{Status: "completed"}); err == nil {
		t.Error("expected error for missing phone")
	}

	longNotes := strings.Repeat("x", types.MaxNotesLen+1)
	if _, err := svc.Create(types.CreateCallLog{Phone: "+1234567890", Notes: longNotes}); err == nil {
		t.Error("expected error for oversized notes")
	}
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(types.CreateCallLog{
		Phone:   "+1234567890",
		Status:  "incoming",
		AgentID: "agent001",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(created.ID, types.UpdateCallLog{Notes: "follow up next week"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Notes != "follow up next week" {
		t.Errorf("expected updated notes, got %s", updated.Notes)
	}
	if updated.Status != "incoming" || updated.AgentID != "agent001" {
		t.Errorf("unexpected log after update: %+v", updated)
	}
}

func TestUpdateMissingLog(t *testing.T) {
	svc, _ := newTestService(t)

	log, err := svc.Update(42, types.UpdateCallLog{Notes: "ghost"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if log != nil {
		t.Errorf("expected nil log, got %+v", log)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(types.CreateCallLog{Phone: "+1234567890", Status: "completed"})
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
