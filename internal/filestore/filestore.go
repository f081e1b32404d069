// Package filestore holds attachments keyed to an object id, consumed by the
// fetch_file and write_file rule handlers.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// filePermissions is the mode for written attachment files
const filePermissions = 0644

// Service is the narrow file capability the rule pipeline consumes
type Service interface {
	Fetch(ctx context.Context, objectID, name string) ([]byte, error)
	Save(ctx context.Context, objectID, name string, data []byte) error
	Delete(ctx context.Context, objectID, name string) error
}

// DiskService stores attachments under a base directory, one subdirectory
// per object id.
type DiskService struct {
	baseDir string
}

// NewDiskService creates a disk-backed file service rooted at baseDir
func NewDiskService(baseDir string) *DiskService {
	return &DiskService{baseDir: baseDir}
}

func (s *DiskService) path(objectID, name string) (string, error) {
	clean := filepath.Join(s.baseDir, objectID, filepath.Base(name))
	if !strings.HasPrefix(clean, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path for object %s: %s", objectID, name)
	}
	return clean, nil
}

// Fetch reads an attachment
func (s *DiskService) Fetch(_ context.Context, objectID, name string) ([]byte, error) {
	path, err := s.path(objectID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// Save writes an attachment, creating the object directory as needed
func (s *DiskService) Save(_ context.Context, objectID, name string, data []byte) error {
	path, err := s.path(objectID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// Delete removes an attachment
func (s *DiskService) Delete(_ context.Context, objectID, name string) error {
	path, err := s.path(objectID, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}
