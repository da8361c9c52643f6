package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore implements Store using the local filesystem
type LocalStore struct {
	basePath string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a filesystem store rooted at basePath
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{basePath: basePath}, nil
}

// Save stores a file under a batch and returns its metadata
func (s *LocalStore) Save(ctx context.Context, batchID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	batchDir := filepath.Join(s.basePath, batchID.String())
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	// uuid prefix keeps same-named uploads from clobbering each other
	safeFilename := sanitizeFilename(filename)
	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], safeFilename)
	filePath := filepath.Join(batchDir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   time.Now(),
	}

	if err := s.saveMetadata(batchID, fileID, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	return info, nil
}

// Open retrieves a stored file with its metadata
func (s *LocalStore) Open(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.Info(ctx, batchID, fileID)
	if err != nil {
		return nil, nil, err
	}

	filePath := filepath.Join(s.basePath, batchID.String(), info.Path)
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// Info returns metadata for a file without opening it
func (s *LocalStore) Info(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) (*FileInfo, error) {
	metaPath := filepath.Join(s.basePath, batchID.String(), ".meta", fileID.String()+".json")

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

// List returns all files in a batch
func (s *LocalStore) List(ctx context.Context, batchID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.basePath, batchID.String(), ".meta")
	if _, err := os.Stat(metaDir); os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}

	entries, err := os.ReadDir(metaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.Info(ctx, batchID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

// Delete removes a single file from a batch
func (s *LocalStore) Delete(ctx context.Context, batchID uuid.UUID, fileID uuid.UUID) error {
	info, err := s.Info(ctx, batchID, fileID)
	if err != nil {
		return err
	}

	filePath := filepath.Join(s.basePath, batchID.String(), info.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	metaPath := filepath.Join(s.basePath, batchID.String(), ".meta", fileID.String()+".json")
	os.Remove(metaPath)

	return nil
}

// DeleteBatch removes a batch directory and everything in it
func (s *LocalStore) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	batchDir := filepath.Join(s.basePath, batchID.String())
	if err := os.RemoveAll(batchDir); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// PurgeOlderThan removes batches whose newest file predates the cutoff
func (s *LocalStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list batches: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		batchID, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}

		files, err := s.List(ctx, batchID)
		if err != nil {
			continue
		}

		newest := time.Time{}
		for _, f := range files {
			if f.CreatedAt.After(newest) {
				newest = f.CreatedAt
			}
		}
		if newest.IsZero() {
			// No readable metadata; fall back to directory mtime.
			if fi, err := entry.Info(); err == nil {
				newest = fi.ModTime()
			}
		}

		if newest.Before(cutoff) {
			if err := s.DeleteBatch(ctx, batchID); err != nil {
				return removed, err
			}
			removed++
		}
	}

	return removed, nil
}

// saveMetadata saves file metadata to a JSON sidecar
func (s *LocalStore) saveMetadata(batchID, fileID uuid.UUID, info *FileInfo) error {
	metaDir := filepath.Join(s.basePath, batchID.String(), ".meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	metaPath := filepath.Join(metaDir, fileID.String()+".json")
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
