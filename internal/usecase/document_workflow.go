package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
	"wizesign/internal/domain/repository"
	"wizesign/internal/infrastructure/storage"
)

// PatientInfo identifies the signer at intake time.
type PatientInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	DOB      string `json:"dob"`
}

// CreateDocumentRequest is the intake payload from the clinical system.
type CreateDocumentRequest struct {
	Patient       PatientInfo    `json:"patient"`
	ProcedureName string         `json:"procedure_name"`
	FileURL       string         `json:"file_url"`
	FileBytes     string         `json:"file_bytes"` // base64, optional
	TemplateID    string         `json:"template_id"`
	DoctorName    string         `json:"doctor_name"`
	ClinicName    string         `json:"clinic_name"`
	Fields        []entity.Field `json:"fields"`
}

// CreateDocumentResult returns the created document and the link to hand
// to the messaging collaborator.
type CreateDocumentResult struct {
	Document    *entity.Document `json:"document"`
	PatientLink string           `json:"patient_link"`
}

// SignatureSubmission is the patient's captured signature plus any audit
// events the client recorded while the document was on screen.
type SignatureSubmission struct {
	Signature   string              `json:"signature"`
	IPAddress   string              `json:"ip_address"`
	AuditEvents []entity.AuditEvent `json:"audit_events"`
}

// DocumentWorkflow is the lifecycle state machine. It is the only
// component that mutates document status; every mutation is serialised
// per document and recorded in the audit trail after it commits.
type DocumentWorkflow interface {
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*CreateDocumentResult, error)
	OpenLink(ctx context.Context, token, ip string) (*entity.Document, error)
	SubmitSignature(ctx context.Context, documentID string, sub *SignatureSubmission) (*entity.Document, error)
	Download(ctx context.Context, documentID string) ([]byte, error)
	GetDocument(ctx context.Context, documentID string) (*entity.Document, error)
	ListDocuments(ctx context.Context, status entity.DocumentStatus, limit, offset int) ([]*entity.Document, error)
	SendLink(ctx context.Context, documentID, phone string) error
}

type documentWorkflow struct {
	config    *config.Config
	docs      repository.DocumentRepository
	patients  repository.PatientRepository
	locker    DocumentLocker
	links     *LinkManager
	certs     *CertificateIssuer
	composer  ArtifactComposer
	blobs     storage.BlobStorage
	messenger Messenger
	audit     *AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewDocumentWorkflow(
	cfg *config.Config,
	docs repository.DocumentRepository,
	patients repository.PatientRepository,
	locker DocumentLocker,
	links *LinkManager,
	certs *CertificateIssuer,
	composer ArtifactComposer,
	blobs storage.BlobStorage,
	messenger Messenger,
	audit *AuditRecorder,
	logger *zap.Logger,
) DocumentWorkflow {
	return &documentWorkflow{
		config:    cfg,
		docs:      docs,
		patients:  patients,
		locker:    locker,
		links:     links,
		certs:     certs,
		composer:  composer,
		blobs:     blobs,
		messenger: messenger,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

func (w *documentWorkflow) CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*CreateDocumentResult, error) {
	if req.Patient.FullName == "" {
		return nil, fmt.Errorf("%w: patient full name is required", entity.ErrInvalidInput)
	}
	if req.ProcedureName == "" {
		return nil, fmt.Errorf("%w: procedure name is required", entity.ErrInvalidInput)
	}

	now := w.now()

	patient, err := w.findOrCreatePatient(ctx, &req.Patient, now)
	if err != nil {
		return nil, err
	}

	actor := req.DoctorName
	if actor == "" {
		actor = "System"
	}

	doc := &entity.Document{
		ID:            uuid.NewString(),
		TransactionID: uuid.NewString(),
		ProcedureName: req.ProcedureName,
		FileURL:       req.FileURL,
		DoctorName:    req.DoctorName,
		ClinicName:    req.ClinicName,
		Status:        entity.StatusSent,
		PatientID:     patient.ID,
		TemplateID:    req.TemplateID,
		SecureToken:   w.links.NewToken(),
		LinkExpiry:    w.links.Expiry(now),
		Fields:        req.Fields,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc.AuditTrail.Append(entity.NewAuditEvent(now, entity.AuditDocumentCreated, actor,
		fmt.Sprintf("Document created for %s", patient.FullName)))

	if req.FileBytes != "" {
		content, err := decodeBase64Payload(req.FileBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid file payload", entity.ErrInvalidInput)
		}
		path, err := w.blobs.SaveOriginal(doc.ID, content)
		if err != nil {
			return nil, fmt.Errorf("failed to store original file: %w", err)
		}
		doc.FilePath = path
	}

	if err := w.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	doc.Patient = patient

	w.logger.Info("Document created",
		zap.String("document_id", doc.ID),
		zap.String("patient_id", patient.ID),
		zap.Time("link_expiry", doc.LinkExpiry),
	)

	return &CreateDocumentResult{
		Document:    doc,
		PatientLink: w.links.PatientLink(doc.SecureToken),
	}, nil
}

// OpenLink resolves a document by secure token and applies the VIEWED
// transition on first access. The expiry check runs before the accessed
// transition; repeat opens after the first are plain reads.
func (w *documentWorkflow) OpenLink(ctx context.Context, token, ip string) (*entity.Document, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("%w: malformed token", entity.ErrInvalidInput)
	}

	// Resolve outside the lock to learn the document id the lock is
	// keyed by, then re-read the authoritative state inside it.
	resolved, err := w.docs.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var doc *entity.Document
	err = w.locker.WithLock(ctx, resolved.ID, func(ctx context.Context) error {
		doc, err = w.docs.FindByID(ctx, resolved.ID)
		if err != nil {
			return err
		}

		now := w.now()

		if doc.Status == entity.StatusExpired {
			return entity.ErrLinkExpired
		}
		if w.links.IsExpired(doc, now) {
			if err := w.links.Expire(ctx, doc, now); err != nil {
				return err
			}
			return entity.ErrLinkExpired
		}

		if !doc.LinkAccessed && !doc.Status.IsTerminal() {
			moved, err := w.docs.MarkViewed(ctx, doc.ID, now)
			if err != nil {
				return err
			}
			if moved {
				doc.LinkAccessed = true
				doc.LinkAccessedAt = &now
				doc.Status = entity.StatusViewed

				actor := "Patient"
				if patient, err := w.patients.FindByID(ctx, doc.PatientID); err == nil {
					actor = patient.FullName
				}
				event := entity.NewAuditEvent(now, entity.AuditLinkAccessed, actor, fmt.Sprintf("IP: %s", ip))
				w.audit.RecordEvents(ctx, doc.ID, event)
				doc.AuditTrail.Append(event)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	w.attachPatient(ctx, doc)
	return doc, nil
}

// SubmitSignature accepts the captured signature and drives the SIGNED
// transition, then issues the certificate and composes the signed
// artifact. Composition failure is logged and swallowed: the document
// stays SIGNED and download reports not found until composition is
// repaired.
func (w *documentWorkflow) SubmitSignature(ctx context.Context, documentID string, sub *SignatureSubmission) (*entity.Document, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, fmt.Errorf("%w: malformed document id", entity.ErrInvalidInput)
	}
	if sub == nil || sub.Signature == "" {
		return nil, fmt.Errorf("%w: signature payload is required", entity.ErrInvalidInput)
	}

	var doc *entity.Document
	err := w.locker.WithLock(ctx, documentID, func(ctx context.Context) error {
		var err error
		doc, err = w.docs.FindByID(ctx, documentID)
		if err != nil {
			return err
		}

		now := w.now()

		// Guards run before any mutation.
		switch {
		case doc.Status == entity.StatusExpired:
			return entity.ErrLinkExpired
		case doc.Status == entity.StatusSigned:
			return entity.ErrAlreadySigned
		case w.links.IsExpired(doc, now):
			if err := w.links.Expire(ctx, doc, now); err != nil {
				return err
			}
			return entity.ErrLinkExpired
		}

		moved, err := w.docs.SaveSignature(ctx, doc.ID, sub.Signature, sub.IPAddress, now)
		if err != nil {
			return err
		}
		if !moved {
			// A concurrent writer won the terminal transition.
			return entity.ErrAlreadySigned
		}

		doc.Signature = sub.Signature
		doc.IPAddress = sub.IPAddress
		doc.SignedDate = &now
		doc.Status = entity.StatusSigned

		events := append([]entity.AuditEvent{
			entity.NewAuditEvent(now, entity.AuditDocumentSigned, "Patient",
				fmt.Sprintf("Signature captured from IP %s", sub.IPAddress)),
		}, sub.AuditEvents...)
		w.audit.RecordEvents(ctx, doc.ID, events...)
		doc.AuditTrail.Append(events...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Certificate issuance and composition are pure functions of the
	// committed state and run outside the lock; the terminal SIGNED
	// guard above makes this path single-shot.
	w.issueCertificate(ctx, doc)
	w.composeArtifact(ctx, doc)
	w.attachPatient(ctx, doc)
	w.notifyCompletion(ctx, doc)

	return doc, nil
}

func (w *documentWorkflow) issueCertificate(ctx context.Context, doc *entity.Document) {
	now := w.now()

	hash := w.certs.Issue(doc.ID, doc.PatientID, *doc.SignedDate, doc.Signature, doc.IPAddress)
	if err := w.docs.SaveCertificate(ctx, doc.ID, hash, now); err != nil {
		w.logger.Error("Failed to persist certificate",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	doc.CertificateHash = hash
	doc.CertificateIssuedAt = &now
	w.audit.Record(ctx, doc.ID, now, entity.AuditCertificateIssued, "System",
		fmt.Sprintf("Certificate %s...%s", hash[:8], hash[len(hash)-8:]))
}

func (w *documentWorkflow) composeArtifact(ctx context.Context, doc *entity.Document) {
	var original []byte
	if w.blobs.HasOriginal(doc.ID) {
		content, err := w.blobs.ReadOriginal(doc.ID)
		if err != nil {
			w.logger.Warn("Failed to read original file, falling back to certificate-only artifact",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
		} else {
			original = content
		}
	}

	sigImage, err := decodeBase64Payload(doc.Signature)
	if err != nil {
		w.logger.Warn("Signature payload is not valid base64",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}

	artifact, err := w.composer.Compose(ComposeInput{
		DocumentID:      doc.ID,
		DocumentName:    doc.ProcedureName,
		PatientName:     w.patientName(ctx, doc),
		SignedAt:        *doc.SignedDate,
		CertificateHash: doc.CertificateHash,
		SignatureImage:  sigImage,
		Fields:          doc.Fields,
		Original:        original,
	})
	if err != nil {
		// Composition failure never rolls back the accepted signature.
		w.logger.Error("Failed to compose signed artifact",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	if _, err := w.blobs.SaveSigned(doc.ID, artifact); err != nil {
		w.logger.Error("Failed to store signed artifact",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	w.audit.Record(ctx, doc.ID, w.now(), entity.AuditPdfGenerated, "System", "Signed artifact generated")
}

func (w *documentWorkflow) notifyCompletion(ctx context.Context, doc *entity.Document) {
	if doc.Patient == nil || doc.Patient.Phone == "" {
		return
	}

	downloadLink := fmt.Sprintf("%s/api/v1/documents/%s/download", w.config.App.BaseURL, doc.ID)
	if err := w.messenger.SendCompletion(ctx, doc.Patient.Phone, doc.Patient.FullName, doc.ProcedureName, downloadLink); err != nil {
		w.logger.Warn("Failed to send completion notice",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}

// Download streams the composed artifact for a signed document.
func (w *documentWorkflow) Download(ctx context.Context, documentID string) ([]byte, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, fmt.Errorf("%w: malformed document id", entity.ErrInvalidInput)
	}

	doc, err := w.docs.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.StatusSigned {
		return nil, entity.ErrNotSigned
	}

	// Absent artifact means composition never succeeded; the signature
	// itself remains accepted.
	return w.blobs.ReadSigned(documentID)
}

func (w *documentWorkflow) GetDocument(ctx context.Context, documentID string) (*entity.Document, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, fmt.Errorf("%w: malformed document id", entity.ErrInvalidInput)
	}

	doc, err := w.docs.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	w.attachPatient(ctx, doc)
	return doc, nil
}

func (w *documentWorkflow) ListDocuments(ctx context.Context, status entity.DocumentStatus, limit, offset int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return w.docs.List(ctx, status, limit, offset)
}

// SendLink delivers the patient link over WhatsApp. Delivery failure is
// reported to the caller without touching document state.
func (w *documentWorkflow) SendLink(ctx context.Context, documentID, phone string) error {
	if _, err := uuid.Parse(documentID); err != nil {
		return fmt.Errorf("%w: malformed document id", entity.ErrInvalidInput)
	}

	doc, err := w.docs.FindByID(ctx, documentID)
	if err != nil {
		return err
	}

	patient, err := w.patients.FindByID(ctx, doc.PatientID)
	if err != nil {
		return err
	}

	if phone == "" {
		phone = patient.Phone
	}
	if phone == "" {
		return fmt.Errorf("%w: no phone number for patient", entity.ErrInvalidInput)
	}

	now := w.now()
	expiresInHours := int(doc.LinkExpiry.Sub(now).Hours())
	if expiresInHours < 1 {
		expiresInHours = 1
	}

	if err := w.messenger.SendLink(ctx, phone, patient.FullName, doc.ProcedureName, w.links.PatientLink(doc.SecureToken), expiresInHours); err != nil {
		return err
	}

	w.audit.Record(ctx, doc.ID, now, entity.AuditWhatsAppSent, "System",
		fmt.Sprintf("WhatsApp message sent to %s", phone))

	return nil
}

func (w *documentWorkflow) findOrCreatePatient(ctx context.Context, info *PatientInfo, now time.Time) (*entity.Patient, error) {
	if info.Email != "" {
		if patient, err := w.patients.FindByEmail(ctx, info.Email); err == nil {
			return patient, nil
		}
	}
	if info.Phone != "" {
		if patient, err := w.patients.FindByPhone(ctx, info.Phone); err == nil {
			return patient, nil
		}
	}

	patient := &entity.Patient{
		ID:        uuid.NewString(),
		FullName:  info.FullName,
		Email:     info.Email,
		Phone:     info.Phone,
		DOB:       info.DOB,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.patients.Create(ctx, patient); err != nil {
		return nil, err
	}

	return patient, nil
}

func (w *documentWorkflow) attachPatient(ctx context.Context, doc *entity.Document) {
	if doc.Patient != nil {
		return
	}
	patient, err := w.patients.FindByID(ctx, doc.PatientID)
	if err != nil {
		w.logger.Warn("Failed to load patient",
			zap.String("document_id", doc.ID),
			zap.String("patient_id", doc.PatientID),
			zap.Error(err),
		)
		return
	}
	doc.Patient = patient
}

func (w *documentWorkflow) patientName(ctx context.Context, doc *entity.Document) string {
	w.attachPatient(ctx, doc)
	if doc.Patient != nil {
		return doc.Patient.FullName
	}
	return "Patient"
}

// decodeBase64Payload accepts either a bare base64 string or a data URL
// and returns the decoded bytes.
func decodeBase64Payload(payload string) ([]byte, error) {
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
