//go:build !linux && !freebsd && !darwin

package dirty

import "context"

// Without mmap the mapping is a private copy that mmfile writes back on
// close, so there is nothing to flush here.

func (t *Tracker) flushRanges(_ context.Context, _ []byte) error { return nil }

func msync(_ []byte) error { return nil }

func fdatasync(_ int, _ bool) error { return nil }
