//go:build linux

package mmfile

import "golang.org/x/sys/unix"

// remap resizes the mapping with mremap, letting the kernel move it.
func (m *Mapping) remap(size int) ([]byte, error) {
	switch {
	case len(m.data) == 0:
		if m.f != nil {
			return unix.Mmap(int(m.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		}
		return mapAnon(size)
	case size == 0:
		if err := unix.Munmap(m.data); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}
	return unix.Mremap(m.data, size, unix.MREMAP_MAYMOVE)
}
