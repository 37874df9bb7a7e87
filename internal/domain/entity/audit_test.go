package entity

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAuditTrailAppendOrder(t *testing.T) {
	var trail AuditTrail

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trail.Append(NewAuditEvent(at, AuditDocumentCreated, "Dr. Chen", ""))
	trail.Append(NewAuditEvent(at.Add(time.Minute), AuditLinkAccessed, "Jane Roe", "IP: 203.0.113.9"))
	trail.Append(NewAuditEvent(at.Add(2*time.Minute), AuditDocumentSigned, "Jane Roe", ""))

	events := trail.Events()
	want := []string{AuditDocumentCreated, AuditLinkAccessed, AuditDocumentSigned}
	if len(events) != len(want) {
		t.Fatalf("len = %d, want %d", len(events), len(want))
	}
	for i, action := range want {
		if events[i].Action != action {
			t.Errorf("events[%d].Action = %s, want %s", i, events[i].Action, action)
		}
	}

	last, ok := trail.Last()
	if !ok || last.Action != AuditDocumentSigned {
		t.Errorf("Last = %+v, want the signing event", last)
	}
}

func TestAuditTrailEventsIsACopy(t *testing.T) {
	var trail AuditTrail
	trail.Append(NewAuditEvent(time.Now(), AuditDocumentCreated, "System", ""))

	events := trail.Events()
	events[0].Action = "TAMPERED"

	if got := trail.Events()[0].Action; got != AuditDocumentCreated {
		t.Errorf("mutating the returned slice changed the trail: %s", got)
	}
}

func TestAuditTrailJSON(t *testing.T) {
	t.Run("empty trail marshals to an empty array", func(t *testing.T) {
		var trail AuditTrail
		data, err := json.Marshal(trail)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("Marshal = %s, want []", data)
		}
	})

	t.Run("round trip preserves order and content", func(t *testing.T) {
		var trail AuditTrail
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		trail.Append(
			NewAuditEvent(at, AuditDocumentCreated, "Dr. Chen", "intake"),
			NewAuditEvent(at.Add(time.Hour), AuditOtpSent, "System", ""),
		)

		data, err := json.Marshal(trail)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}

		var restored AuditTrail
		if err := json.Unmarshal(data, &restored); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}

		if restored.Len() != trail.Len() {
			t.Fatalf("restored len = %d, want %d", restored.Len(), trail.Len())
		}
		orig, got := trail.Events(), restored.Events()
		for i := range orig {
			if orig[i] != got[i] {
				t.Errorf("events[%d] = %+v, want %+v", i, got[i], orig[i])
			}
		}
	})

	t.Run("client supplied timestamps survive verbatim", func(t *testing.T) {
		raw := `[{"timestamp":"2025-06-01T11:58:03.412331+00:00","action":"DOCUMENT_SCROLLED","actor":"Jane Roe"}]`

		var trail AuditTrail
		if err := json.Unmarshal([]byte(raw), &trail); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}

		events := trail.Events()
		if len(events) != 1 {
			t.Fatalf("len = %d, want 1", len(events))
		}
		if events[0].Timestamp != "2025-06-01T11:58:03.412331+00:00" {
			t.Errorf("timestamp reformatted: %s", events[0].Timestamp)
		}
	})
}

func TestDocumentStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		want   bool
	}{
		{StatusDraft, false},
		{StatusSent, false},
		{StatusViewed, false},
		{StatusSigned, true},
		{StatusExpired, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
