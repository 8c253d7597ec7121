package dirty

import "context"

// DirtyTracker is the minimal interface for tracking dirty (modified) byte ranges.
// Allocators only need to report which regions they wrote; flushing is left to
// whoever owns the mapping.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the tracked region, length is the number of bytes.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with methods for flushing dirty regions to disk.
type FlushableTracker interface {
	DirtyTracker

	// FlushDataOnly flushes only the data regions (not header/metadata).
	FlushDataOnly(ctx context.Context) error

	// FlushHeaderAndMeta flushes header and metadata based on the specified mode.
	FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error
}

// Mapping is the memory-mapped file a Tracker flushes.
type Mapping interface {
	// Bytes returns the current mapping. It may change between calls when
	// the mapping is resized.
	Bytes() []byte

	// FD returns the file descriptor backing the mapping, -1 if none.
	FD() int
}

// Offset returns a tracker that adds delta to every offset before passing it
// to dt. It lets an allocator report arena offsets into a file whose arena
// starts after a header.
func Offset(dt DirtyTracker, delta int) DirtyTracker {
	if dt == nil {
		return nil
	}
	return shifted{dt: dt, delta: delta}
}

type shifted struct {
	dt    DirtyTracker
	delta int
}

func (s shifted) Add(off, length int) { s.dt.Add(off+s.delta, length) }
