package dirty

import (
	"context"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	// This reduces allocations during typical workloads.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees for a sync.
type FlushMode int

const (
	// FlushAuto provides safe defaults for most use cases:
	// - msync() dirty data pages
	// - fdatasync() after header write
	FlushAuto FlushMode = iota

	// FlushDataOnly only flushes dirty data pages via msync().
	// The caller is responsible for calling fdatasync() later.
	FlushDataOnly

	// FlushFull provides ultra-safe durability:
	// - msync() dirty data pages
	// - msync() header
	// - fdatasync() file descriptor
	// - On macOS, uses F_FULLFSYNC
	FlushFull
)

// Range represents a dirty byte range (absolute file offsets).
type Range struct {
	Off int64 // Absolute offset in file
	Len int64 // Length in bytes
}

// End returns the offset one past the range.
func (r Range) End() int64 { return r.Off + r.Len }

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// The first headerLen bytes of the mapping are the header. They are only
// flushed by FlushHeaderAndMeta, after the data they describe.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	m         Mapping
	ranges    []Range // Dirty data ranges (will be coalesced at flush time)
	pageSize  int64   // OS page size (typically 4096)
	headerLen int64
}

var _ FlushableTracker = (*Tracker)(nil)

// NewTracker creates a dirty tracker for the given mapping.
func NewTracker(m Mapping, headerLen int) *Tracker {
	return &Tracker{
		m:         m,
		ranges:    make([]Range, 0, defaultRangeCapacity), // Pre-allocate to avoid allocs
		pageSize:  standardPageSize,
		headerLen: int64(headerLen),
	}
}

// Add records a dirty range.
//
// The range will be page-aligned and coalesced with other ranges at flush time.
// This only appends to a slice.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// FlushDataOnly flushes all dirty data ranges (not header) to disk.
//
// This method:
//  1. Coalesces all ranges into page-aligned, non-overlapping ranges
//  2. Flushes each range past the header using msync()
//  3. Clears the ranges slice
//
// If ctx is cancelled during flushing, some ranges may have been flushed
// while others have not; the ranges are kept for the next attempt.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}

	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Bytes()
	if len(data) == 0 {
		return nil
	}

	// Platform-specific flushing
	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the header and optionally syncs the file descriptor.
//
// This method:
//  1. Flushes the header bytes using msync()
//  2. Calls fdatasync() based on the FlushMode:
//     - FlushAuto: fdatasync()
//     - FlushDataOnly: no fdatasync()
//     - FlushFull: fdatasync() + F_FULLFSYNC on macOS
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Bytes()
	if len(data) == 0 {
		return nil
	}

	headerLen := min(t.alignUp(t.headerLen), int64(len(data)))
	if headerLen > 0 {
		if err := msync(data[:headerLen]); err != nil {
			return err
		}
	}

	// Check for cancellation before fdatasync
	if err := ctx.Err(); err != nil {
		return err
	}

	if mode == FlushDataOnly {
		return nil
	}
	fd := t.m.FD()
	if fd < 0 {
		return nil
	}
	return fdatasync(fd, mode == FlushFull)
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns the current dirty ranges (for testing/debugging).
//
// The returned ranges are the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the coalesced dirty ranges (for testing/debugging).
//
// These are page-aligned, sorted, and merged ranges that will be flushed.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

func (t *Tracker) alignUp(n int64) int64 {
	return (n + t.pageSize - 1) / t.pageSize * t.pageSize
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
//
// Returns a new slice of non-overlapping, sorted ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := t.alignUp(r.End())
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.End() {
			current.Len = max(current.End(), next.End()) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// dataRanges returns the coalesced ranges clipped to the data area of a
// mapping of n bytes.
func (t *Tracker) dataRanges(n int64) []Range {
	var out []Range
	hdr := t.alignUp(t.headerLen)
	for _, r := range t.coalesce() {
		start := max(r.Off, hdr)
		end := min(r.End(), n)
		if start >= end {
			continue
		}
		out = append(out, Range{Off: start, Len: end - start})
	}
	return out
}
