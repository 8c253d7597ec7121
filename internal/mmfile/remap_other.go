//go:build unix && !linux

package mmfile

import "golang.org/x/sys/unix"

// remap maps the new size and drops the old mapping. File mappings see the
// same pages again; anonymous memory is copied.
func (m *Mapping) remap(size int) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case size == 0:
		data = []byte{}
	case m.f != nil:
		data, err = unix.Mmap(int(m.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	default:
		if data, err = mapAnon(size); err == nil {
			copy(data, m.data)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(m.data) > 0 {
		if err := unix.Munmap(m.data); err != nil {
			return nil, err
		}
	}
	return data, nil
}
