//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Mapping emulates a file mapping with a heap buffer. Changes reach the
// file when the mapping is closed.
type Mapping struct {
	data []byte
	path string
}

// Anonymous allocates size bytes of zeroed memory.
func Anonymous(size int) (*Mapping, error) {
	return &Mapping{data: make([]byte, size)}, nil
}

// Create creates (or truncates) the file at path to size bytes.
func Create(path string, size int) (*Mapping, error) {
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return nil, err
	}
	return &Mapping{data: make([]byte, size), path: path}, nil
}

// Open reads the whole file at path.
func Open(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, path: path}, nil
}

// Bytes returns the buffer.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the buffer size in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// FD returns -1; there is no descriptor to sync.
func (m *Mapping) FD() int { return -1 }

// Resize grows or shrinks the buffer, moving it.
func (m *Mapping) Resize(size int) error {
	if m.data == nil {
		return ErrClosed
	}
	data := make([]byte, size)
	copy(data, m.data)
	m.data = data
	return nil
}

// Close writes the buffer back to its file.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if m.path == "" {
		return nil
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("mmfile: write back %s: %w", m.path, err)
	}
	return nil
}

// Map reads the entire file when mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}
