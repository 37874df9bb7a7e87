package usecase

import (
	"context"
	"time"

	"wizesign/internal/domain/entity"
)

// DocumentLocker serialises read-modify-write sequences on a single
// document. Documents are independent units of concurrency; no
// cross-document locking exists.
type DocumentLocker interface {
	WithLock(ctx context.Context, documentID string, fn func(ctx context.Context) error) error
}

// Messenger is the WhatsApp delivery collaborator. Failures are reported
// to the caller and never alter document state.
type Messenger interface {
	SendLink(ctx context.Context, phone, recipientName, documentName, link string, expiresInHours int) error
	SendOtp(ctx context.Context, phone, recipientName, code string, expiresInMinutes int) error
	SendCompletion(ctx context.Context, phone, recipientName, documentName, downloadLink string) error
}

// ComposeInput carries everything the composer needs to render the
// signed artifact. Original is nil when no source file was stored, which
// selects the certificate-only fallback.
type ComposeInput struct {
	DocumentID      string
	DocumentName    string
	PatientName     string
	SignedAt        time.Time
	CertificateHash string
	SignatureImage  []byte
	Fields          []entity.Field
	Original        []byte
}

// ArtifactComposer renders the signed artifact for a document. It is a
// pure function of committed document state and must be invoked at most
// once per document.
type ArtifactComposer interface {
	Compose(input ComposeInput) ([]byte, error)
}
