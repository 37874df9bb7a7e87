package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
)

type otpFixture struct {
	clock     *testClock
	docs      *fakeDocumentRepo
	messenger *fakeMessenger
	verifier  OtpVerifier
	docID     string
}

func newOtpFixture(t *testing.T) *otpFixture {
	t.Helper()

	f := &otpFixture{
		clock:     newTestClock(),
		docs:      newFakeDocumentRepo(),
		messenger: &fakeMessenger{},
	}

	cfg := testConfig()
	logger := zap.NewNop()
	patients := newFakePatientRepo()
	audit := NewAuditRecorder(f.docs, logger)

	f.verifier = NewOtpVerifier(cfg, f.docs, patients, &fakeLocker{}, f.messenger, audit, logger)
	f.verifier.(*otpVerifier).now = f.clock.Now

	patient := &entity.Patient{ID: "patient-1", FullName: "Jane Roe", Phone: "+6281234567890"}
	if err := patients.Create(context.Background(), patient); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	f.docID = "0d9c07fa-64cc-4b5f-9a3e-2a2e63c95a11"
	doc := &entity.Document{
		ID:          f.docID,
		Status:      entity.StatusViewed,
		PatientID:   patient.ID,
		SecureToken: "b7f4a7aa-0f8f-4f2b-9a69-58a10f54bf02",
		LinkExpiry:  f.clock.Now().Add(7 * 24 * time.Hour),
	}
	if err := f.docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	return f
}

func TestOtpIssue(t *testing.T) {
	t.Run("delivers a six digit code and stores only its hash", func(t *testing.T) {
		f := newOtpFixture(t)

		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}

		code := f.messenger.lastOtpCode()
		if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
			t.Errorf("delivered code %q is not six digits", code)
		}

		doc, _ := f.docs.FindByID(context.Background(), f.docID)
		if doc.OtpCodeHash == "" || doc.OtpCodeHash == code {
			t.Errorf("stored hash %q must be set and never the plaintext", doc.OtpCodeHash)
		}
		if doc.OtpSentAt == nil {
			t.Error("issuance time not recorded")
		}
		if countAction(doc.AuditTrail.Events(), entity.AuditOtpSent) != 1 {
			t.Error("trail missing OTP_SENT entry")
		}
	})

	t.Run("failed delivery leaves no send entry in the trail", func(t *testing.T) {
		f := newOtpFixture(t)
		f.messenger.failSend = true

		if err := f.verifier.Issue(context.Background(), f.docID); !errors.Is(err, entity.ErrDelivery) {
			t.Fatalf("err = %v, want ErrDelivery", err)
		}

		doc, _ := f.docs.FindByID(context.Background(), f.docID)
		if countAction(doc.AuditTrail.Events(), entity.AuditOtpSent) != 0 {
			t.Error("failed delivery recorded an OTP_SENT entry")
		}
	})

	t.Run("expired document refuses issuance", func(t *testing.T) {
		f := newOtpFixture(t)
		if _, err := f.docs.MarkExpired(context.Background(), f.docID); err != nil {
			t.Fatalf("MarkExpired: %v", err)
		}

		if err := f.verifier.Issue(context.Background(), f.docID); !errors.Is(err, entity.ErrLinkExpired) {
			t.Errorf("err = %v, want ErrLinkExpired", err)
		}
	})
}

func TestOtpVerify(t *testing.T) {
	t.Run("correct code verifies and is recorded", func(t *testing.T) {
		f := newOtpFixture(t)
		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}

		if err := f.verifier.Verify(context.Background(), f.docID, f.messenger.lastOtpCode()); err != nil {
			t.Fatalf("Verify: %v", err)
		}

		doc, _ := f.docs.FindByID(context.Background(), f.docID)
		if doc.OtpVerifiedAt == nil {
			t.Error("verification time not recorded")
		}
		if countAction(doc.AuditTrail.Events(), entity.AuditOtpVerified) != 1 {
			t.Error("trail missing OTP_VERIFIED entry")
		}
	})

	t.Run("verification before issuance fails", func(t *testing.T) {
		f := newOtpFixture(t)

		if err := f.verifier.Verify(context.Background(), f.docID, "123456"); !errors.Is(err, entity.ErrNoOtpIssued) {
			t.Errorf("err = %v, want ErrNoOtpIssued", err)
		}
	})

	t.Run("wrong code counts an attempt", func(t *testing.T) {
		f := newOtpFixture(t)
		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}

		if err := f.verifier.Verify(context.Background(), f.docID, "000000"); !errors.Is(err, entity.ErrOtpInvalid) {
			t.Fatalf("err = %v, want ErrOtpInvalid", err)
		}

		doc, _ := f.docs.FindByID(context.Background(), f.docID)
		if doc.OtpAttempts != 1 {
			t.Errorf("attempts = %d, want 1", doc.OtpAttempts)
		}
	})

	t.Run("attempt cap rejects even the correct code", func(t *testing.T) {
		f := newOtpFixture(t)
		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}
		code := f.messenger.lastOtpCode()

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		for i := 0; i < 5; i++ {
			if err := f.verifier.Verify(context.Background(), f.docID, wrong); !errors.Is(err, entity.ErrOtpInvalid) {
				t.Fatalf("attempt %d: err = %v, want ErrOtpInvalid", i+1, err)
			}
		}

		if err := f.verifier.Verify(context.Background(), f.docID, code); !errors.Is(err, entity.ErrOtpAttemptsExceeded) {
			t.Errorf("err = %v, want ErrOtpAttemptsExceeded", err)
		}
	})

	t.Run("reissue resets the attempt counter", func(t *testing.T) {
		f := newOtpFixture(t)
		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}
		for i := 0; i < 5; i++ {
			_ = f.verifier.Verify(context.Background(), f.docID, "999999")
		}

		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("reissue: %v", err)
		}
		if err := f.verifier.Verify(context.Background(), f.docID, f.messenger.lastOtpCode()); err != nil {
			t.Errorf("Verify after reissue: %v", err)
		}
	})

	t.Run("stale code expires", func(t *testing.T) {
		f := newOtpFixture(t)
		if err := f.verifier.Issue(context.Background(), f.docID); err != nil {
			t.Fatalf("Issue: %v", err)
		}
		code := f.messenger.lastOtpCode()

		f.clock.Advance(11 * time.Minute)

		if err := f.verifier.Verify(context.Background(), f.docID, code); !errors.Is(err, entity.ErrOtpExpired) {
			t.Errorf("err = %v, want ErrOtpExpired", err)
		}
	})
}
