package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
	"wizesign/internal/domain/repository"
)

// OtpVerifier issues and checks the one-time code used as a secondary
// identity check before signing.
type OtpVerifier interface {
	// Issue generates a fresh 6-digit code, stores only its hash, resets
	// the attempt counter and delivers the plaintext out of band. The
	// plaintext is never persisted or logged.
	Issue(ctx context.Context, documentID string) error

	// Verify checks a submitted code. Failed attempts are persisted, and
	// once the attempt cap is reached every verification fails until a
	// new code is issued.
	Verify(ctx context.Context, documentID, code string) error
}

type otpVerifier struct {
	config    *config.Config
	docs      repository.DocumentRepository
	patients  repository.PatientRepository
	locker    DocumentLocker
	messenger Messenger
	audit     *AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewOtpVerifier(
	cfg *config.Config,
	docs repository.DocumentRepository,
	patients repository.PatientRepository,
	locker DocumentLocker,
	messenger Messenger,
	audit *AuditRecorder,
	logger *zap.Logger,
) OtpVerifier {
	return &otpVerifier{
		config:    cfg,
		docs:      docs,
		patients:  patients,
		locker:    locker,
		messenger: messenger,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

func (v *otpVerifier) Issue(ctx context.Context, documentID string) error {
	code, err := generateOtpCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp code: %w", err)
	}

	var doc *entity.Document
	var sentAt time.Time
	err = v.locker.WithLock(ctx, documentID, func(ctx context.Context) error {
		var err error
		doc, err = v.docs.FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.Status == entity.StatusExpired {
			return entity.ErrLinkExpired
		}

		sentAt = v.now()
		return v.docs.SaveOtp(ctx, documentID, string(hash), sentAt)
	})
	if err != nil {
		return err
	}

	patient, err := v.patients.FindByID(ctx, doc.PatientID)
	if err != nil {
		return fmt.Errorf("failed to load patient for otp delivery: %w", err)
	}

	if err := v.messenger.SendOtp(ctx, patient.Phone, patient.FullName, code, v.config.OTP.TTLMinutes); err != nil {
		v.logger.Error("Failed to deliver otp code",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return err
	}

	// Recorded only once delivery succeeded, so the trail never claims a
	// send that did not happen.
	v.audit.Record(ctx, documentID, sentAt, entity.AuditOtpSent, "System", "Verification code sent to patient")

	v.logger.Info("OTP issued",
		zap.String("document_id", documentID),
	)

	return nil
}

func (v *otpVerifier) Verify(ctx context.Context, documentID, code string) error {
	return v.locker.WithLock(ctx, documentID, func(ctx context.Context) error {
		doc, err := v.docs.FindByID(ctx, documentID)
		if err != nil {
			return err
		}

		now := v.now()

		// Guard order matters: issuance, then expiry, then the attempt
		// cap. The cap check runs before any hash comparison so a capped
		// document rejects even the correct code.
		if doc.OtpSentAt == nil || doc.OtpCodeHash == "" {
			return entity.ErrNoOtpIssued
		}
		ttl := time.Duration(v.config.OTP.TTLMinutes) * time.Minute
		if now.Sub(*doc.OtpSentAt) > ttl {
			return entity.ErrOtpExpired
		}
		if doc.OtpAttempts >= v.config.OTP.MaxAttempts {
			return entity.ErrOtpAttemptsExceeded
		}

		if err := bcrypt.CompareHashAndPassword([]byte(doc.OtpCodeHash), []byte(code)); err != nil {
			if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return fmt.Errorf("failed to compare otp hash: %w", err)
			}
			// The failed attempt persists even though verification fails.
			if err := v.docs.IncrementOtpAttempts(ctx, documentID); err != nil {
				return err
			}
			v.logger.Info("OTP verification failed",
				zap.String("document_id", documentID),
				zap.Int("attempts", doc.OtpAttempts+1),
			)
			return entity.ErrOtpInvalid
		}

		if err := v.docs.MarkOtpVerified(ctx, documentID, now); err != nil {
			return err
		}
		v.audit.Record(ctx, documentID, now, entity.AuditOtpVerified, "Patient", "Identity confirmed via verification code")

		return nil
	})
}

// generateOtpCode draws a 6-digit code from a cryptographic source.
func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
