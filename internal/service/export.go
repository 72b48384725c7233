package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jdjkelly/snowdoge/internal/logger"
	"github.com/jdjkelly/snowdoge/internal/storage"
)

// ExportService publishes a snapshot of the flagged-contract log to
// object storage after a run. The local log remains the source of truth;
// the upload is a copy for sharing.
type ExportService struct {
	storage storage.ObjectStorage
	logger  *logger.Logger
}

// NewExportService creates a new export service.
func NewExportService(objectStorage storage.ObjectStorage, log *logger.Logger) *ExportService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ExportService{
		storage: objectStorage,
		logger:  log,
	}
}

// ExportLog uploads the flagged-contract log at path under a timestamped
// key and returns the URL of the uploaded object. A missing or empty log
// is not an error; nothing is uploaded and the returned URL is empty.
func (s *ExportService) ExportLog(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("path", path).Info("No flagged log to export")
			return "", nil
		}
		return "", fmt.Errorf("failed to stat flagged log: %w", err)
	}
	if info.Size() == 0 {
		s.logger.WithField("path", path).Info("Flagged log is empty, skipping export")
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open flagged log: %w", err)
	}
	defer f.Close()

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("failed to ensure report bucket: %w", err)
	}

	key := fmt.Sprintf("reports/flagged_contracts_%s.jsonl", time.Now().UTC().Format("20060102T150405Z"))

	// Keys are timestamped, so a collision means a concurrent or rapidly
	// repeated export. Never overwrite a published report.
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check for existing report: %w", err)
	}
	if exists {
		return "", fmt.Errorf("report %s already exists", key)
	}

	if err := s.storage.Upload(ctx, key, f, info.Size(), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	url := s.storage.GetURL(key)
	s.logger.WithFields(logger.Fields{
		"key":             key,
		"url":             url,
		logger.FieldCount: info.Size(),
	}).Info("Exported flagged-contract report")

	return url, nil
}
