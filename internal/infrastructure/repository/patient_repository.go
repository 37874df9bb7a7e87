package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"wizesign/internal/domain/entity"
	"wizesign/internal/infrastructure/database"
)

type patientRepository struct {
	db     *database.Database
	logger *zap.Logger
}

// NewPatientRepository creates the Postgres-backed patient repository.
func NewPatientRepository(db *database.Database, logger *zap.Logger) *patientRepository {
	return &patientRepository{
		db:     db,
		logger: logger,
	}
}

func (r *patientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	query := `
		INSERT INTO patients (id, full_name, email, phone, dob, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		patient.Email,
		patient.Phone,
		patient.DOB,
		patient.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert patient",
			zap.String("patient_id", patient.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert patient: %w", err)
	}

	return nil
}

func (r *patientRepository) FindByID(ctx context.Context, id string) (*entity.Patient, error) {
	return r.findBy(ctx, "id", id)
}

func (r *patientRepository) FindByEmail(ctx context.Context, email string) (*entity.Patient, error) {
	return r.findBy(ctx, "email", email)
}

func (r *patientRepository) FindByPhone(ctx context.Context, phone string) (*entity.Patient, error) {
	return r.findBy(ctx, "phone", phone)
}

func (r *patientRepository) findBy(ctx context.Context, column, value string) (*entity.Patient, error) {
	query := fmt.Sprintf(`
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(dob, ''), created_at, updated_at
		FROM patients WHERE %s = $1
		LIMIT 1
	`, column)

	var patient entity.Patient
	err := r.db.DB.QueryRowContext(ctx, query, value).Scan(
		&patient.ID,
		&patient.FullName,
		&patient.Email,
		&patient.Phone,
		&patient.DOB,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find patient by %s: %w", column, err)
	}

	return &patient, nil
}
