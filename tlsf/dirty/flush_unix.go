//go:build linux || freebsd

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges flushes individual dirty ranges to disk.
//
// On Linux and FreeBSD, msync() handles page-aligned sub-slices correctly.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.dataRanges(int64(len(data))) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := unix.Msync(data[r.Off:r.End()], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

// msync flushes a memory region to disk.
func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync performs file descriptor sync.
//
// The fullfsync parameter is ignored on Linux/FreeBSD.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
