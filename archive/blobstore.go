package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// BlobStore isolates blob side effects so dedup and eviction logic can be
// exercised against an in-memory implementation independent of real disk I/O.
// Paths are slash-separated and relative to the store root.
type BlobStore interface {
	Write(relPath string, data []byte) error
	Read(relPath string) ([]byte, error)
	// Delete is idempotent: removing an already missing blob is not an error.
	Delete(relPath string) error
	Exists(relPath string) bool
	// Location resolves a blob to an absolute filesystem path when the store
	// is backed by a real filesystem. ok is false otherwise.
	Location(relPath string) (path string, ok bool)
}

// DiskBlobStore persists blobs as plain files under a root directory.
type DiskBlobStore struct {
	root string
}

// NewDiskBlobStore creates the root directory if absent.
func NewDiskBlobStore(root string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &DiskBlobStore{root: root}, nil
}

// fullPath confines relPath under the root. Channel keys reach blob paths
// from external input, so traversal and absolute segments are rejected.
func (d *DiskBlobStore) fullPath(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidBlobPath, relPath)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DiskBlobStore) Write(relPath string, data []byte) error {
	full, err := d.fullPath(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", relPath, err)
	}
	return nil
}

func (d *DiskBlobStore) Read(relPath string) ([]byte, error) {
	full, err := d.fullPath(relPath)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("read blob %s: %w", relPath, err)
	}
	return b, nil
}

func (d *DiskBlobStore) Delete(relPath string) error {
	full, err := d.fullPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", relPath, err)
	}
	return nil
}

func (d *DiskBlobStore) Exists(relPath string) bool {
	full, err := d.fullPath(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (d *DiskBlobStore) Location(relPath string) (string, bool) {
	full, err := d.fullPath(relPath)
	if err != nil {
		return "", false
	}
	return full, true
}

// MemoryBlobStore keeps blobs in a map. Used by tests and in-memory trials.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: map[string][]byte{}}
}

func (m *MemoryBlobStore) Write(relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[relPath] = cp
	return nil
}

func (m *MemoryBlobStore) Read(relPath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[relPath]
	if !ok {
		return nil, ErrBlobMissing
	}
	return b, nil
}

func (m *MemoryBlobStore) Delete(relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, relPath)
	return nil
}

func (m *MemoryBlobStore) Exists(relPath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[relPath]
	return ok
}

func (m *MemoryBlobStore) Location(string) (string, bool) {
	return "", false
}

// Len reports the number of stored blobs.
func (m *MemoryBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
