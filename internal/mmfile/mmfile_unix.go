//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a read-write memory mapping, either anonymous or shared with a file.
//
// Resize may move the mapping; slices returned by Bytes before the call must
// not be used afterwards.
type Mapping struct {
	data []byte
	f    *os.File // nil for anonymous mappings
}

// Anonymous maps size bytes of zeroed private memory.
func Anonymous(size int) (*Mapping, error) {
	data, err := mapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Create creates (or truncates) the file at path to size bytes and maps it shared.
func Create(path string, size int) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}
	return mapShared(f, size)
}

// Open maps the whole file at path shared, for reading and writing.
func Open(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size > int64(^uint(0)>>1) {
		f.Close()
		return nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	return mapShared(f, int(size))
}

func mapShared(f *os.File, size int) (*Mapping, error) {
	if size == 0 {
		return &Mapping{data: []byte{}, f: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Mapping{data: data, f: f}, nil
}

func mapAnon(size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// Bytes returns the mapped memory.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the mapping size in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// FD returns the descriptor of the backing file, -1 for anonymous mappings.
func (m *Mapping) FD() int {
	if m.f == nil {
		return -1
	}
	return int(m.f.Fd())
}

// Resize changes the mapping (and the backing file) to size bytes. The
// contents up to the smaller of the two sizes are preserved.
func (m *Mapping) Resize(size int) error {
	if m.data == nil {
		return ErrClosed
	}
	if size == len(m.data) {
		return nil
	}
	if m.f != nil {
		if err := m.f.Truncate(int64(size)); err != nil {
			return err
		}
	}
	data, err := m.remap(size)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// Close unmaps the memory and closes the backing file.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	var err error
	if len(m.data) > 0 {
		err = unix.Munmap(m.data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			err = nil
		}
	}
	m.data = nil
	if m.f != nil {
		err = errors.Join(err, m.f.Close())
		m.f = nil
	}
	return err
}

// Map maps the file at path read-only and returns its contents with a
// cleanup function that unmaps it.
func Map(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // safe before return; mapping keeps pages alive

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return err
	}
	return data, cleanup, nil
}
