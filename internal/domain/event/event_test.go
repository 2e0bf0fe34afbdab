package event

import (
	"testing"
	"time"

	"github.com/garyjia/fund-review/internal/domain/workflow"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"application submitted", TypeApplicationSubmitted, true},
		{"application rejected", TypeApplicationRejected, true},
		{"reimbursement approved", TypeReimbursementApproved, true},
		{"reimbursement deleted", TypeReimbursementDeleted, true},
		{"unknown type", Type("instance.created"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeApplicationAdvanced, 12, 3, map[string]interface{}{
		KeyStep: workflow.StepParliamentChair,
	})

	if event.ID == "" || event.CorrelationID == "" {
		t.Fatal("Event IDs should not be empty")
	}
	if event.ID == event.CorrelationID {
		t.Error("Event ID and CorrelationID should differ")
	}
	if event.DocumentID != 12 || event.ActorID != 3 {
		t.Errorf("Event ids = %d/%d, want 12/3", event.DocumentID, event.ActorID)
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
	if got := event.GetPayloadString(KeyStep); got != "parliament_chair" {
		t.Errorf("GetPayloadString(step) = %q, want parliament_chair", got)
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	event := NewEventWithCorrelation(TypeReimbursementCreated, 1, 1, nil, "corr-1")
	if event.Payload == nil {
		t.Fatal("Payload should be initialized")
	}
	if event.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %q, want corr-1", event.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeApplicationSubmitted, 1, 9, map[string]interface{}{KeyFormNumber: "20260101071234"})
	modified := original.WithPayload(KeyComment, "first draft")

	if _, exists := original.Payload[KeyComment]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.Payload[KeyFormNumber] != "20260101071234" || modified.Payload[KeyComment] != "first draft" {
		t.Errorf("Modified payload = %v", modified.Payload)
	}
	if modified.ID != original.ID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity")
	}
}

func TestEvent_GetPayloadFloat(t *testing.T) {
	amount := 5000.0
	event := NewEvent(TypeApplicationAdvanced, 1, 1, map[string]interface{}{
		"float":   12.5,
		"pointer": &amount,
		"nil":     (*float64)(nil),
		"int":     3,
		"string":  "12",
	})

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"float", 12.5, true},
		{"pointer", 5000, true},
		{"nil", 0, false},
		{"int", 3, true},
		{"string", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := event.GetPayloadFloat(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetPayloadFloat(%s) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
