// Package storage provides the object-storage layer used to publish
// copies of the flagged-contract log. The local JSONL log stays the
// source of truth; uploads here are shareable snapshots only.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for report storage operations
type ObjectStorage interface {
	// EnsureBucket creates the bucket if it doesn't exist
	EnsureBucket(ctx context.Context) error

	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
