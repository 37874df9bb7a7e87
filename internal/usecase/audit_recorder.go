package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
	"wizesign/internal/domain/repository"
)

// AuditRecorder appends events to a document's audit trail. Callers
// record strictly after the state mutation they describe has committed,
// so a crash mid-operation can lose an audit entry but never invent one.
// Recording failures are logged and swallowed: the trail is
// observability, not the source of truth for state.
type AuditRecorder struct {
	docs   repository.DocumentRepository
	logger *zap.Logger
}

func NewAuditRecorder(docs repository.DocumentRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		docs:   docs,
		logger: logger,
	}
}

func (r *AuditRecorder) Record(ctx context.Context, documentID string, at time.Time, action, actor, details string) {
	r.RecordEvents(ctx, documentID, entity.NewAuditEvent(at, action, actor, details))
}

func (r *AuditRecorder) RecordEvents(ctx context.Context, documentID string, events ...entity.AuditEvent) {
	if len(events) == 0 {
		return
	}
	if err := r.docs.AppendAudit(ctx, documentID, events...); err != nil {
		r.logger.Warn("Failed to record audit events",
			zap.String("document_id", documentID),
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
