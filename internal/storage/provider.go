// Package storage defines the graph-source directory abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/graphflow/internal/models"
)

// Provider is the interface for descriptor file operations.
type Provider interface {
	// List returns metadata for every descriptor file under dir (relative to the root).
	List(dir string) ([]models.SourceMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
}

// IsDescriptor reports whether name is a graph-source descriptor file.
func IsDescriptor(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
