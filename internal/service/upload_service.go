package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type uploadBlobStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// UploadService stores supporting documents and photos for student profiles.
// Storage failures are surfaced to the caller untouched; there is no retry.
type UploadService struct {
	blobs        uploadBlobStore
	maxSizeBytes int64
	allowedMIMEs map[string]bool
	logger       *zap.Logger
}

// NewUploadService constructs the service. With no allow-list every MIME type
// is accepted.
func NewUploadService(blobs uploadBlobStore, maxSizeBytes int64, allowedMIMEs []string, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &UploadService{blobs: blobs, maxSizeBytes: maxSizeBytes, allowedMIMEs: allowed, logger: logger}
}

// Store validates and persists one uploaded file, returning its stored path.
func (s *UploadService) Store(studentID, originalName, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSizeBytes > 0 && size > s.maxSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxSizeBytes))
	}
	if len(s.allowedMIMEs) > 0 && !s.allowedMIMEs[strings.ToLower(contentType)] {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %q is not allowed", contentType))
	}

	ext := filepath.Ext(originalName)
	name := fmt.Sprintf("documents/%s/%s%s", studentID, uuid.NewString(), ext)
	stored, err := s.blobs.SaveStream(name, r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	return stored, nil
}

// Remove deletes a previously stored document.
func (s *UploadService) Remove(path string) error {
	if err := s.blobs.Delete(path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete upload")
	}
	return nil
}
