package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wizesign/internal/config"
)

type Database struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewDatabase(cfg *config.Config, logger *zap.Logger) (*Database, error) {
	// Build PostgreSQL connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	database := &Database{
		DB:     db,
		logger: logger,
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

func (d *Database) migrate() error {
	createPatientsSQL := `
	CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		phone VARCHAR(50),
		dob VARCHAR(50),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := d.DB.Exec(createPatientsSQL); err != nil {
		return fmt.Errorf("failed to create patients table: %w", err)
	}

	createDocumentsSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL UNIQUE,
		procedure_name VARCHAR(255) NOT NULL,
		file_url TEXT DEFAULT '',
		file_path TEXT DEFAULT '',
		doctor_name VARCHAR(255) DEFAULT '',
		clinic_name VARCHAR(255) DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
		patient_id UUID NOT NULL REFERENCES patients(id),
		template_id UUID,
		secure_token UUID NOT NULL UNIQUE,
		link_expiry TIMESTAMP NOT NULL,
		link_accessed BOOLEAN NOT NULL DEFAULT FALSE,
		link_accessed_at TIMESTAMP,
		signature TEXT DEFAULT '',
		signed_date TIMESTAMP,
		ip_address VARCHAR(64) DEFAULT '',
		certificate_hash VARCHAR(64) DEFAULT '',
		certificate_issued_at TIMESTAMP,
		otp_code_hash TEXT DEFAULT '',
		otp_sent_at TIMESTAMP,
		otp_verified_at TIMESTAMP,
		otp_attempts INTEGER NOT NULL DEFAULT 0,
		fields JSONB NOT NULL DEFAULT '[]',
		audit_trail JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := d.DB.Exec(createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	// Indexes are created separately (PostgreSQL has no inline IF NOT EXISTS)
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_patients_email ON patients(email);`,
		`CREATE INDEX IF NOT EXISTS idx_patients_phone ON patients(phone);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_patient_id ON documents(patient_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_secure_token ON documents(secure_token);`,
	}

	for _, stmt := range indexes {
		if _, err := d.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

var Module = fx.Module("database",
	fx.Provide(NewDatabase),
)
