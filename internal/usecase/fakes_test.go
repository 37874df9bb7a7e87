package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "wizesign-test",
			BaseURL:     "http://localhost:8080",
			FrontendURL: "http://localhost:3000",
		},
		Link: config.LinkConfig{ExpiryDays: 7},
		OTP:  config.OTPConfig{TTLMinutes: 10, MaxAttempts: 5},
	}
}

// testClock is a settable time source shared by a test's collaborators.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeDocumentRepo is an in-memory DocumentRepository with the same
// conditional-transition semantics as the SQL implementation.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]*entity.Document)}
}

func cloneDocument(d *entity.Document) *entity.Document {
	clone := *d
	var trail entity.AuditTrail
	trail.Append(d.AuditTrail.Events()...)
	clone.AuditTrail = trail
	fields := make([]entity.Field, len(d.Fields))
	copy(fields, d.Fields)
	clone.Fields = fields
	return &clone
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return fmt.Errorf("duplicate document id %s", doc.ID)
	}
	r.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (r *fakeDocumentRepo) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return cloneDocument(d), nil
}

func (r *fakeDocumentRepo) FindByToken(ctx context.Context, token string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.SecureToken == token {
			return cloneDocument(d), nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r *fakeDocumentRepo) List(ctx context.Context, status entity.DocumentStatus, limit, offset int) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.docs {
		if status == "" || d.Status == status {
			out = append(out, cloneDocument(d))
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) MarkViewed(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, entity.ErrNotFound
	}
	if d.LinkAccessed || d.Status.IsTerminal() {
		return false, nil
	}
	d.LinkAccessed = true
	d.LinkAccessedAt = &at
	d.Status = entity.StatusViewed
	return true, nil
}

func (r *fakeDocumentRepo) MarkExpired(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, entity.ErrNotFound
	}
	if d.Status.IsTerminal() {
		return false, nil
	}
	d.Status = entity.StatusExpired
	return true, nil
}

func (r *fakeDocumentRepo) SaveSignature(ctx context.Context, id, signature, ip string, signedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, entity.ErrNotFound
	}
	if d.Status.IsTerminal() {
		return false, nil
	}
	d.Signature = signature
	d.IPAddress = ip
	d.SignedDate = &signedAt
	d.Status = entity.StatusSigned
	return true, nil
}

func (r *fakeDocumentRepo) SaveCertificate(ctx context.Context, id, hash string, issuedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	if d.CertificateHash == "" {
		d.CertificateHash = hash
		d.CertificateIssuedAt = &issuedAt
	}
	return nil
}

func (r *fakeDocumentRepo) SaveOtp(ctx context.Context, id, codeHash string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	d.OtpCodeHash = codeHash
	d.OtpSentAt = &sentAt
	d.OtpAttempts = 0
	d.OtpVerifiedAt = nil
	return nil
}

func (r *fakeDocumentRepo) IncrementOtpAttempts(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	d.OtpAttempts++
	return nil
}

func (r *fakeDocumentRepo) MarkOtpVerified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	d.OtpVerifiedAt = &at
	return nil
}

func (r *fakeDocumentRepo) AppendAudit(ctx context.Context, id string, events ...entity.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return entity.ErrNotFound
	}
	d.AuditTrail.Append(events...)
	return nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[string]*entity.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[string]*entity.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, patient *entity.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *patient
	r.patients[patient.ID] = &clone
	return nil
}

func (r *fakePatientRepo) FindByID(ctx context.Context, id string) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, entity.ErrNotFound
}

func (r *fakePatientRepo) FindByEmail(ctx context.Context, email string) (*entity.Patient, error) {
	return r.findBy(func(p *entity.Patient) bool { return p.Email == email })
}

func (r *fakePatientRepo) FindByPhone(ctx context.Context, phone string) (*entity.Patient, error) {
	return r.findBy(func(p *entity.Patient) bool { return p.Phone == phone })
}

func (r *fakePatientRepo) findBy(match func(*entity.Patient) bool) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if match(p) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, entity.ErrNotFound
}

// fakeLocker runs the critical section inline and counts acquisitions.
type fakeLocker struct {
	mu    sync.Mutex
	calls int
}

func (l *fakeLocker) WithLock(ctx context.Context, documentID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return fn(ctx)
}

type sentMessage struct {
	Phone string
	Name  string
	Body  string
}

type fakeMessenger struct {
	mu          sync.Mutex
	failSend    bool
	links       []sentMessage
	otpCodes    []string
	completions []sentMessage
}

func (m *fakeMessenger) SendLink(ctx context.Context, phone, recipientName, documentName, link string, expiresInHours int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return fmt.Errorf("%w: gateway unreachable", entity.ErrDelivery)
	}
	m.links = append(m.links, sentMessage{Phone: phone, Name: recipientName, Body: link})
	return nil
}

func (m *fakeMessenger) SendOtp(ctx context.Context, phone, recipientName, code string, expiresInMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return fmt.Errorf("%w: gateway unreachable", entity.ErrDelivery)
	}
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *fakeMessenger) SendCompletion(ctx context.Context, phone, recipientName, documentName, downloadLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return fmt.Errorf("%w: gateway unreachable", entity.ErrDelivery)
	}
	m.completions = append(m.completions, sentMessage{Phone: phone, Name: recipientName, Body: downloadLink})
	return nil
}

func (m *fakeMessenger) lastOtpCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.otpCodes) == 0 {
		return ""
	}
	return m.otpCodes[len(m.otpCodes)-1]
}

type fakeComposer struct {
	mu        sync.Mutex
	fail      bool
	calls     int
	lastInput ComposeInput
}

func (c *fakeComposer) Compose(input ComposeInput) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastInput = input
	if c.fail {
		return nil, fmt.Errorf("render failed")
	}
	return []byte("%PDF-1.3 fake artifact"), nil
}

type fakeBlobStorage struct {
	mu        sync.Mutex
	originals map[string][]byte
	signed    map[string][]byte
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{
		originals: make(map[string][]byte),
		signed:    make(map[string][]byte),
	}
}

func (s *fakeBlobStorage) SaveOriginal(documentID string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals[documentID] = content
	return "/originals/" + documentID + ".pdf", nil
}

func (s *fakeBlobStorage) ReadOriginal(documentID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.originals[documentID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return content, nil
}

func (s *fakeBlobStorage) HasOriginal(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.originals[documentID]
	return ok
}

func (s *fakeBlobStorage) SaveSigned(documentID string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signed[documentID] = content
	return "/signed/signed_" + documentID + ".pdf", nil
}

func (s *fakeBlobStorage) ReadSigned(documentID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.signed[documentID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return content, nil
}

func (s *fakeBlobStorage) HasSigned(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.signed[documentID]
	return ok
}
