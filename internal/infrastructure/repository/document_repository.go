package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
	"wizesign/internal/infrastructure/database"
)

const documentColumns = `
	id, transaction_id, procedure_name, file_url, file_path,
	doctor_name, clinic_name, status, patient_id, COALESCE(template_id::text, ''),
	secure_token, link_expiry, link_accessed, link_accessed_at,
	signature, signed_date, ip_address,
	certificate_hash, certificate_issued_at,
	otp_code_hash, otp_sent_at, otp_verified_at, otp_attempts,
	fields, audit_trail, created_at, updated_at`

type documentRepository struct {
	db     *database.Database
	logger *zap.Logger
}

// NewDocumentRepository creates the Postgres-backed document repository.
func NewDocumentRepository(db *database.Database, logger *zap.Logger) *documentRepository {
	return &documentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	auditJSON, err := json.Marshal(doc.AuditTrail)
	if err != nil {
		return fmt.Errorf("failed to encode audit trail: %w", err)
	}

	query := `
		INSERT INTO documents (
			id, transaction_id, procedure_name, file_url, file_path,
			doctor_name, clinic_name, status, patient_id, template_id,
			secure_token, link_expiry, fields, audit_trail, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, '')::uuid, $11, $12, $13, $14, $15, $15)
	`

	_, err = r.db.DB.ExecContext(ctx, query,
		doc.ID,
		doc.TransactionID,
		doc.ProcedureName,
		doc.FileURL,
		doc.FilePath,
		doc.DoctorName,
		doc.ClinicName,
		string(doc.Status),
		doc.PatientID,
		doc.TemplateID,
		doc.SecureToken,
		doc.LinkExpiry,
		fieldsJSON,
		auditJSON,
		doc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert document",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

func (r *documentRepository) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id))
}

func (r *documentRepository) FindByToken(ctx context.Context, token string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE secure_token = $1`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, token))
}

func (r *documentRepository) List(ctx context.Context, status entity.DocumentStatus, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.DB.QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// MarkViewed is conditional on link_accessed so two concurrent openers
// cannot both apply the VIEWED transition, and on status so a stalled
// opener cannot pull a terminal document back to VIEWED.
func (r *documentRepository) MarkViewed(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE documents
		SET link_accessed = TRUE, link_accessed_at = $2, status = $3, updated_at = $2
		WHERE id = $1 AND link_accessed = FALSE AND status NOT IN ($4, $5)
	`

	return r.conditional(ctx, "mark viewed", query, id, at,
		string(entity.StatusViewed), string(entity.StatusSigned), string(entity.StatusExpired))
}

func (r *documentRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE documents
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`

	return r.conditional(ctx, "mark expired", query, id,
		string(entity.StatusExpired), string(entity.StatusSigned), string(entity.StatusExpired))
}

// SaveSignature is the SIGNED transition; the status guard in the WHERE
// clause makes the terminal transition single-shot.
func (r *documentRepository) SaveSignature(ctx context.Context, id, signature, ip string, signedAt time.Time) (bool, error) {
	query := `
		UPDATE documents
		SET signature = $2, ip_address = $3, signed_date = $4, status = $5, updated_at = $4
		WHERE id = $1 AND status NOT IN ($5, $6)
	`

	return r.conditional(ctx, "save signature", query, id, signature, ip, signedAt,
		string(entity.StatusSigned), string(entity.StatusExpired))
}

func (r *documentRepository) SaveCertificate(ctx context.Context, id, hash string, issuedAt time.Time) error {
	query := `
		UPDATE documents
		SET certificate_hash = $2, certificate_issued_at = $3, updated_at = $3
		WHERE id = $1 AND certificate_hash = ''
	`

	if _, err := r.db.DB.ExecContext(ctx, query, id, hash, issuedAt); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	return nil
}

func (r *documentRepository) SaveOtp(ctx context.Context, id, codeHash string, sentAt time.Time) error {
	query := `
		UPDATE documents
		SET otp_code_hash = $2, otp_sent_at = $3, otp_verified_at = NULL,
		    otp_attempts = 0, updated_at = $3
		WHERE id = $1
	`

	if _, err := r.db.DB.ExecContext(ctx, query, id, codeHash, sentAt); err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

func (r *documentRepository) IncrementOtpAttempts(ctx context.Context, id string) error {
	query := `UPDATE documents SET otp_attempts = otp_attempts + 1, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return nil
}

func (r *documentRepository) MarkOtpVerified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE documents SET otp_verified_at = $2, updated_at = $2 WHERE id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

// AppendAudit concatenates onto the stored JSONB array, so existing
// entries are never rewritten.
func (r *documentRepository) AppendAudit(ctx context.Context, id string, events ...entity.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode audit events: %w", err)
	}

	query := `
		UPDATE documents
		SET audit_trail = audit_trail || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.DB.ExecContext(ctx, query, id, eventsJSON); err != nil {
		r.logger.Error("Failed to append audit events",
			zap.String("document_id", id),
			zap.Error(err),
		)
		return fmt.Errorf("failed to append audit events: %w", err)
	}

	return nil
}

func (r *documentRepository) conditional(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	res, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *documentRepository) scanOne(row *sql.Row) (*entity.Document, error) {
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	return doc, err
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc            entity.Document
		status         string
		linkAccessedAt sql.NullTime
		signedDate     sql.NullTime
		certIssuedAt   sql.NullTime
		otpSentAt      sql.NullTime
		otpVerifiedAt  sql.NullTime
		fieldsJSON     []byte
		auditJSON      []byte
	)

	err := row.Scan(
		&doc.ID,
		&doc.TransactionID,
		&doc.ProcedureName,
		&doc.FileURL,
		&doc.FilePath,
		&doc.DoctorName,
		&doc.ClinicName,
		&status,
		&doc.PatientID,
		&doc.TemplateID,
		&doc.SecureToken,
		&doc.LinkExpiry,
		&doc.LinkAccessed,
		&linkAccessedAt,
		&doc.Signature,
		&signedDate,
		&doc.IPAddress,
		&doc.CertificateHash,
		&certIssuedAt,
		&doc.OtpCodeHash,
		&otpSentAt,
		&otpVerifiedAt,
		&doc.OtpAttempts,
		&fieldsJSON,
		&auditJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = entity.DocumentStatus(status)
	doc.LinkAccessedAt = nullableTime(linkAccessedAt)
	doc.SignedDate = nullableTime(signedDate)
	doc.CertificateIssuedAt = nullableTime(certIssuedAt)
	doc.OtpSentAt = nullableTime(otpSentAt)
	doc.OtpVerifiedAt = nullableTime(otpVerifiedAt)

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields: %w", err)
		}
	}
	if len(auditJSON) > 0 {
		if err := json.Unmarshal(auditJSON, &doc.AuditTrail); err != nil {
			return nil, fmt.Errorf("failed to decode audit trail: %w", err)
		}
	}

	return &doc, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
