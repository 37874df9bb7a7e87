package entity

import "time"

// DocumentStatus is the lifecycle state of a document.
// SIGNED and EXPIRED are terminal.
type DocumentStatus string

const (
	StatusDraft   DocumentStatus = "DRAFT"
	StatusSent    DocumentStatus = "SENT"
	StatusViewed  DocumentStatus = "VIEWED"
	StatusSigned  DocumentStatus = "SIGNED"
	StatusExpired DocumentStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is permitted.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusSigned || s == StatusExpired
}

// FieldType identifies what a placement field renders.
type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldText      FieldType = "TEXT"
	FieldDate      FieldType = "DATE"
	FieldTitle     FieldType = "TITLE"
)

// Field is a placement descriptor for captured data on a page.
// Page is 1-indexed; X/Y/W/H are percentages (0-100) of the page size,
// with the origin at the top-left corner.
type Field struct {
	Type       FieldType `json:"type"`
	Page       int       `json:"page"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	W          float64   `json:"w"`
	H          float64   `json:"h"`
	Value      string    `json:"value,omitempty"`
	FontSize   float64   `json:"fontSize,omitempty"`
	FontWeight string    `json:"fontWeight,omitempty"`
	TextAlign  string    `json:"textAlign,omitempty"`
}

// Document is the central signing entity. The internal ID never grants
// patient-facing access; only SecureToken does.
type Document struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	ProcedureName string         `json:"procedure_name"`
	FileURL       string         `json:"file_url,omitempty"`
	FilePath      string         `json:"-"`
	DoctorName    string         `json:"doctor_name,omitempty"`
	ClinicName    string         `json:"clinic_name,omitempty"`
	Status        DocumentStatus `json:"status"`

	PatientID  string `json:"patient_id"`
	TemplateID string `json:"template_id,omitempty"`

	// Secure link
	SecureToken    string     `json:"secure_token"`
	LinkExpiry     time.Time  `json:"link_expiry"`
	LinkAccessed   bool       `json:"link_accessed"`
	LinkAccessedAt *time.Time `json:"link_accessed_at,omitempty"`

	// Signature
	Signature  string     `json:"signature,omitempty"`
	SignedDate *time.Time `json:"signed_date,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`

	// Digital certificate, set exactly once
	CertificateHash     string     `json:"certificate_hash,omitempty"`
	CertificateIssuedAt *time.Time `json:"certificate_issued_at,omitempty"`

	// OTP verification. Only the hash of the code is ever stored.
	OtpCodeHash   string     `json:"-"`
	OtpSentAt     *time.Time `json:"otp_sent_at,omitempty"`
	OtpVerifiedAt *time.Time `json:"otp_verified_at,omitempty"`
	OtpAttempts   int        `json:"otp_attempts"`

	Fields     []Field    `json:"fields"`
	AuditTrail AuditTrail `json:"audit_trail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Patient is populated on detail reads.
	Patient *Patient `json:"patient,omitempty"`
}
