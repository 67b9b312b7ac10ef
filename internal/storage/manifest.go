package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Manifest appends one tab-separated line per persisted utterance:
// path, label, duration in seconds.
type Manifest struct {
	path string
	mu   sync.Mutex
}

func NewManifest(path string) *Manifest {
	if path == "" {
		path = filepath.Join("data", "manifest.tsv")
	}
	return &Manifest{path: path}
}

func (m *Manifest) Append(audioPath, label string, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(m.path), err)
	}

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", m.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintf(f, "%s\t%s\t%.3f\n", audioPath, label, seconds); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}

	return nil
}

func (m *Manifest) Path() string {
	return m.path
}
