package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"wizesign/internal/config"
	"wizesign/internal/domain/entity"
)

// BlobStorage keeps original and signed document files keyed by document id.
type BlobStorage interface {
	SaveOriginal(documentID string, content []byte) (path string, err error)
	ReadOriginal(documentID string) ([]byte, error)
	HasOriginal(documentID string) bool

	SaveSigned(documentID string, content []byte) (path string, err error)
	ReadSigned(documentID string) ([]byte, error)
	HasSigned(documentID string) bool
}

type fileStorage struct {
	config *config.StorageConfig
	logger *zap.Logger
}

func NewBlobStorage(cfg *config.Config, logger *zap.Logger) (BlobStorage, error) {
	s := &fileStorage{
		config: &cfg.Storage,
		logger: logger,
	}

	// Ensure all directories exist
	if err := s.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create storage directories: %w", err)
	}

	logger.Info("Blob storage initialized",
		zap.String("base_path", cfg.Storage.BasePath),
		zap.String("originals", s.originalsPath()),
		zap.String("signed", s.signedPath()),
	)

	return s, nil
}

func (s *fileStorage) ensureDirectories() error {
	for _, dir := range []string{s.originalsPath(), s.signedPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (s *fileStorage) originalsPath() string {
	return filepath.Join(s.config.BasePath, s.config.OriginalsFolder)
}

func (s *fileStorage) signedPath() string {
	return filepath.Join(s.config.BasePath, s.config.SignedFolder)
}

func (s *fileStorage) originalFile(documentID string) string {
	return filepath.Join(s.originalsPath(), documentID+".pdf")
}

func (s *fileStorage) signedFile(documentID string) string {
	return filepath.Join(s.signedPath(), "signed_"+documentID+".pdf")
}

func (s *fileStorage) SaveOriginal(documentID string, content []byte) (string, error) {
	path := s.originalFile(documentID)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write original file: %w", err)
	}

	s.logger.Info("Original document stored",
		zap.String("document_id", documentID),
		zap.String("path", path),
		zap.Int("size", len(content)),
	)

	return path, nil
}

func (s *fileStorage) ReadOriginal(documentID string) ([]byte, error) {
	content, err := os.ReadFile(s.originalFile(documentID))
	if os.IsNotExist(err) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read original file: %w", err)
	}
	return content, nil
}

func (s *fileStorage) HasOriginal(documentID string) bool {
	_, err := os.Stat(s.originalFile(documentID))
	return err == nil
}

func (s *fileStorage) SaveSigned(documentID string, content []byte) (string, error) {
	path := s.signedFile(documentID)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write signed file: %w", err)
	}

	s.logger.Info("Signed artifact stored",
		zap.String("document_id", documentID),
		zap.String("path", path),
		zap.Int("size", len(content)),
	)

	return path, nil
}

func (s *fileStorage) ReadSigned(documentID string) ([]byte, error) {
	content, err := os.ReadFile(s.signedFile(documentID))
	if os.IsNotExist(err) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read signed file: %w", err)
	}
	return content, nil
}

func (s *fileStorage) HasSigned(documentID string) bool {
	_, err := os.Stat(s.signedFile(documentID))
	return err == nil
}

var Module = fx.Module("storage",
	fx.Provide(NewBlobStorage),
)
