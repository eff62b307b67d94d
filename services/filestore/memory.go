package filestore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

// Memory keeps files in a map; used by tests and the in-memory setup.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte

	// FailDelete makes Delete fail, to exercise best-effort cleanups.
	FailDelete bool
}

var _ core.FileStorage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", errors.Wrap(err, "reading content")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return "", ErrExists
	}
	m.files[name] = data
	return name, nil
}

func (m *Memory) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[ref]
	if !ok {
		return nil, core.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return errors.New("delete failed")
	}
	delete(m.files, ref)
	return nil
}

// Names lists the stored names, sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
