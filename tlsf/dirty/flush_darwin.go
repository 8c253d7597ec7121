//go:build darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges flushes dirty ranges to disk.
//
// On macOS, msync() requires the address to match the original mmap() address,
// so the entire mapping is flushed. The kernel only writes dirty pages anyway.
func (t *Tracker) flushRanges(_ context.Context, data []byte) error {
	if len(t.dataRanges(int64(len(data)))) == 0 {
		return nil
	}
	return unix.Msync(data, unix.MS_SYNC)
}

// msync flushes a memory region to disk.
func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync performs file descriptor sync.
//
// If fullfsync is true, F_FULLFSYNC forces data to the physical disk, not
// just the drive cache. Otherwise, use regular fsync.
func fdatasync(fd int, fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	// macOS doesn't have fdatasync, use fsync
	return unix.Fsync(fd)
}
