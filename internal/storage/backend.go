// Package storage provides the named-document persistence layer shared by
// all repositories. Each store owns exactly one document (checklists,
// assignments, users, notifications, reports, secret) serialized as JSON.
// A backend only moves opaque bytes; "document does not exist yet" is an
// ordinary outcome reported as (nil, nil), which repositories turn into
// their empty default.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend loads and saves named documents.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// FileBackend keeps each document as <dir>/<name>.json. This is the
// default backend and matches the layout the bot has always used on disk.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates the data directory if needed and returns a
// backend rooted at it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{Dir: dir}, nil
}

func (f *FileBackend) path(name string) string {
	return filepath.Join(f.Dir, name+".json")
}

// Load reads a document. A missing file is not an error.
func (f *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// Save writes the document atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// leaves a truncated document behind.
func (f *FileBackend) Save(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(f.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// MemoryBackend holds documents in a map. Used in tests and as a
// last-resort fallback; nothing survives a restart.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (m *MemoryBackend) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.docs[name] = cp
	return nil
}
