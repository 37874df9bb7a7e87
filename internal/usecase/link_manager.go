package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
	"wizesign/internal/domain/repository"
)

// LinkManager issues the one-time secure access token and owns the
// expiry transition. The token is a bearer credential entirely separate
// from the document's internal id.
type LinkManager struct {
	config *config.Config
	docs   repository.DocumentRepository
	audit  *AuditRecorder
	logger *zap.Logger
}

func NewLinkManager(cfg *config.Config, docs repository.DocumentRepository, audit *AuditRecorder, logger *zap.Logger) *LinkManager {
	return &LinkManager{
		config: cfg,
		docs:   docs,
		audit:  audit,
		logger: logger,
	}
}

// NewToken returns a fresh unguessable secure token.
func (m *LinkManager) NewToken() string {
	return uuid.NewString()
}

// Expiry computes the link deadline from the configured policy.
func (m *LinkManager) Expiry(from time.Time) time.Time {
	return from.Add(time.Duration(m.config.Link.ExpiryDays) * 24 * time.Hour)
}

// IsExpired reports whether the link deadline has passed.
func (m *LinkManager) IsExpired(doc *entity.Document, now time.Time) bool {
	return now.After(doc.LinkExpiry)
}

// IsValid reports whether the link still grants access.
func (m *LinkManager) IsValid(doc *entity.Document, now time.Time) bool {
	return doc.Status != entity.StatusExpired && !m.IsExpired(doc, now)
}

// Expire moves the document to the terminal EXPIRED state. Idempotent:
// an already-terminal document is left untouched.
func (m *LinkManager) Expire(ctx context.Context, doc *entity.Document, now time.Time) error {
	if doc.Status.IsTerminal() {
		return nil
	}

	moved, err := m.docs.MarkExpired(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to expire document: %w", err)
	}
	if moved {
		doc.Status = entity.StatusExpired
		m.audit.Record(ctx, doc.ID, now, entity.AuditLinkExpired, "System", "Secure link passed its expiry date")
		m.logger.Info("Document link expired",
			zap.String("document_id", doc.ID),
			zap.Time("link_expiry", doc.LinkExpiry),
		)
	}

	return nil
}

// PatientLink builds the patient-facing URL for a secure token.
func (m *LinkManager) PatientLink(token string) string {
	return fmt.Sprintf("%s/patient/view?token=%s", m.config.App.FrontendURL, token)
}
