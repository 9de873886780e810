package storage

import (
	"context"

	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ upload.Storage = UnconfiguredStorage{}

// UnconfiguredStorage is used when no bucket is configured. Uploads fail
// with STORAGE_UNAVAILABLE and deletes are no-ops.
type UnconfiguredStorage struct{}

// Configured always reports false
func (UnconfiguredStorage) Configured() bool { return false }

// Upload always fails
func (UnconfiguredStorage) Upload(context.Context, string, upload.Image) (upload.Stored, error) {
	return upload.Stored{}, upload.ErrStorageUnavailable
}

// Delete does nothing
func (UnconfiguredStorage) Delete(context.Context, string) error { return nil }

// New returns S3 storage when a bucket is configured, UnconfiguredStorage otherwise
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (upload.Storage, error) {
	if cfg == nil || !cfg.Configured() {
		logger.Warn("Object storage not configured, image uploads are disabled")
		return UnconfiguredStorage{}, nil
	}
	s, err := NewS3ObjectStorage(ctx, cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("Object storage ready", zap.String("bucket", cfg.Bucket))
	return s, nil
}
