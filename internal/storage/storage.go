package storage

import (
	"context"
	"errors"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrNotConfigured is returned by every operation when no bucket is set.
var ErrNotConfigured = errors.New("media storage is not configured")

// FileStorage defines the interface for object storage operations.
// Exercise media is uploaded and downloaded by clients directly through
// presigned URLs; the API only hands out URLs and records keys.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

type disabledStorage struct{}

// Disabled returns a FileStorage that refuses every call.
func Disabled() FileStorage { return disabledStorage{} }

func (disabledStorage) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (disabledStorage) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (disabledStorage) DeleteObject(context.Context, string) error {
	return ErrNotConfigured
}
