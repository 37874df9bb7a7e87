package repository

import (
	"context"
	"time"

	"wizesign/internal/domain/entity"
)

// DocumentRepository persists the document aggregate. Status transitions
// are conditional updates so two racing writers can never both apply the
// same transition; callers must treat a false return as "someone else won".
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByID(ctx context.Context, id string) (*entity.Document, error)
	FindByToken(ctx context.Context, token string) (*entity.Document, error)
	List(ctx context.Context, status entity.DocumentStatus, limit, offset int) ([]*entity.Document, error)

	// MarkViewed flips link_accessed once and sets status VIEWED.
	// Returns false when the link was already accessed.
	MarkViewed(ctx context.Context, id string, at time.Time) (bool, error)

	// MarkExpired moves any non-terminal document to EXPIRED.
	// Returns false when the document was already terminal.
	MarkExpired(ctx context.Context, id string) (bool, error)

	// SaveSignature stores the signature payload and moves a non-terminal
	// document to SIGNED. Returns false when the terminal guard rejected it.
	SaveSignature(ctx context.Context, id, signature, ip string, signedAt time.Time) (bool, error)

	SaveCertificate(ctx context.Context, id, hash string, issuedAt time.Time) error

	// SaveOtp stores a fresh code hash, resets the attempt counter and
	// clears any previous verification.
	SaveOtp(ctx context.Context, id, codeHash string, sentAt time.Time) error
	IncrementOtpAttempts(ctx context.Context, id string) error
	MarkOtpVerified(ctx context.Context, id string, at time.Time) error

	// AppendAudit appends events to the end of the document's audit trail
	// without touching prior entries.
	AppendAudit(ctx context.Context, id string, events ...entity.AuditEvent) error
}
