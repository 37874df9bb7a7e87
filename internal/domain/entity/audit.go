package entity

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the workflow.
const (
	AuditDocumentCreated   = "DOCUMENT_CREATED"
	AuditLinkAccessed      = "LINK_ACCESSED"
	AuditLinkExpired       = "LINK_EXPIRED"
	AuditOtpSent           = "OTP_SENT"
	AuditOtpVerified       = "OTP_VERIFIED"
	AuditDocumentSigned    = "DOCUMENT_SIGNED"
	AuditCertificateIssued = "CERTIFICATE_ISSUED"
	AuditPdfGenerated      = "PDF_GENERATED"
	AuditWhatsAppSent      = "WHATSAPP_SENT"
)

// AuditEvent is a single timestamped entry in a document's audit trail.
// Timestamp is an RFC3339 string so client-captured events survive
// round-trips without reformatting.
type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	Details   string `json:"details,omitempty"`
}

// NewAuditEvent builds an event stamped at the given time.
func NewAuditEvent(at time.Time, action, actor, details string) AuditEvent {
	return AuditEvent{
		Timestamp: at.UTC().Format(time.RFC3339),
		Action:    action,
		Actor:     actor,
		Details:   details,
	}
}

// AuditTrail is the append-only event log of a document. Entries can be
// appended and read, never reordered, replaced, or truncated.
type AuditTrail struct {
	events []AuditEvent
}

// Append adds events to the end of the trail.
func (t *AuditTrail) Append(events ...AuditEvent) {
	t.events = append(t.events, events...)
}

// Events returns a copy of the trail in insertion order.
func (t *AuditTrail) Events() []AuditEvent {
	out := make([]AuditEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of recorded events.
func (t *AuditTrail) Len() int {
	return len(t.events)
}

// Last returns the most recent event, or false when the trail is empty.
func (t *AuditTrail) Last() (AuditEvent, bool) {
	if len(t.events) == 0 {
		return AuditEvent{}, false
	}
	return t.events[len(t.events)-1], true
}

// MarshalJSON renders the trail as a plain JSON array, matching the
// persisted column layout.
func (t AuditTrail) MarshalJSON() ([]byte, error) {
	if t.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.events)
}

// UnmarshalJSON restores a trail from its persisted array form.
func (t *AuditTrail) UnmarshalJSON(data []byte) error {
	var events []AuditEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	t.events = events
	return nil
}
