package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DocumentExtension is the file extension of stored documents.
	DocumentExtension = ".json"
)

// DocumentStore persists one JSON document per id below a root directory.
// Writes are two-phase: the document is written to a unique temporary file in the
// same directory and then renamed over the final path, so readers never observe a
// partially written document.
type DocumentStore struct {
	rootDir string
}

// NewDocumentStore creates a store rooted at rootDir. The directory is created lazily
// on first write.
func NewDocumentStore(rootDir string) *DocumentStore {
	return &DocumentStore{rootDir: rootDir}
}

// Path returns the file path holding the document with the given id.
func (s *DocumentStore) Path(id string) string {
	return filepath.Join(s.rootDir, RemoveInvalidFileNameChars(id)+DocumentExtension)
}

// Read decodes the document with the given id into v. It reports false without error
// when no document exists.
func (s *DocumentStore) Read(id string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read document %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode document %s: %w", id, err)
	}
	return true, nil
}

// Write encodes v and atomically replaces the document with the given id.
func (s *DocumentStore) Write(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}

	target := s.Path(id)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}

	newFile := target + fmt.Sprintf("-new.%d", time.Now().UnixNano())
	if err := os.WriteFile(newFile, data, 0644); err != nil {
		_ = os.Remove(newFile)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(newFile, target); err != nil {
		// Windows refuses to rename over an existing file
		_ = os.Remove(target)
		if err := os.Rename(newFile, target); err != nil {
			_ = os.Remove(newFile)
			return fmt.Errorf("move document %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes the document with the given id. Missing documents are ignored.
func (s *DocumentStore) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// RemoveInvalidFileNameChars replaces characters that are invalid in file names on
// any supported platform with underscores and collapses repeated underscores.
func RemoveInvalidFileNameChars(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))

	for _, ch := range value {
		switch ch {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*', '\x00':
			sb.WriteRune('_')
		default:
			sb.WriteRune(ch)
		}
	}

	result := sb.String()
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	return result
}
