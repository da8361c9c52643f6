// Package storage keeps uploaded invoice PDFs and generated exports on
// disk, grouped by conversion batch. Each stored file gets a uuid and a
// JSON metadata sidecar, so batches can be listed and expired without a
// database round trip.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the interface for batch file storage
type Store interface {
	// Save stores a file under a batch and returns its metadata
	Save(ctx context.Context, batchID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Open retrieves a stored file with its metadata
	Open(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Info returns metadata for a file without opening it
	Info(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) (*FileInfo, error)

	// List returns all files in a batch
	List(ctx context.Context, batchID uuid.UUID) ([]*FileInfo, error)

	// Delete removes a single file from a batch
	Delete(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) error

	// DeleteBatch removes a batch directory and everything in it
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error

	// PurgeOlderThan removes batches whose newest file predates the
	// cutoff, returning how many batches were removed
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
