package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/checksum"
	"github.com/starford/graphflow/internal/models"
)

// tmpPattern names in-flight writes. The dot prefix makes IsDescriptor reject
// them, so neither List nor the watcher sees half-written descriptors.
const tmpPattern = ".graphflow-tmp-*"

// FS is a Provider over a sources directory on the local disk. Only
// descriptor files (.yaml/.yml, not hidden) can be read, written or deleted.
type FS struct {
	root string
}

// NewFS opens the existing sources directory root.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: sources dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: sources dir %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute sources directory.
func (f *FS) Root() string { return f.root }

// resolve maps rel onto the sources directory, refusing anything outside it.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: %s: absolute path: %w", rel, apperr.ErrInvalidPayload)
	}
	abs := filepath.Join(f.root, filepath.Clean(rel))
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %s: outside sources dir: %w", rel, apperr.ErrInvalidPayload)
	}
	return abs, nil
}

// descriptor resolves rel and checks that it names a descriptor file.
func (f *FS) descriptor(rel string) (string, error) {
	if !IsDescriptor(rel) {
		return "", fmt.Errorf("storage: %s: not a graph descriptor: %w", rel, apperr.ErrInvalidPayload)
	}
	return f.resolve(rel)
}

// List returns every descriptor under dir (relative to the root) in lexical
// order. Hidden directories are not descended into.
func (f *FS) List(dir string) ([]models.SourceMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.SourceMetadata
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDescriptor(d.Name()) {
			return nil
		}
		meta, err := f.describe(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, err)
	}
	return out, nil
}

func (f *FS) describe(p string, d fs.DirEntry) (models.SourceMetadata, error) {
	info, err := d.Info()
	if err != nil {
		return models.SourceMetadata{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.SourceMetadata{}, err
	}
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return models.SourceMetadata{}, err
	}
	return models.SourceMetadata{
		Path:      rel,
		Name:      strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns a descriptor's bytes. A missing file is apperr.ErrNotFound.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.descriptor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: descriptor %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces a descriptor atomically (temp file, fsync, rename), creating
// parent directories as needed.
func (f *FS) Write(path string, content []byte) (err error) {
	abs, err := f.descriptor(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: replace %s: %w", path, err)
	}
	return nil
}

// Delete removes a descriptor. A missing file is apperr.ErrNotFound.
func (f *FS) Delete(path string) error {
	abs, err := f.descriptor(path)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: descriptor %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}
