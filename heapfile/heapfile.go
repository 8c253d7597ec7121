package heapfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
	"github.com/joshuapare/tlsfkit/internal/mmfile"
	"github.com/joshuapare/tlsfkit/tlsf"
	"github.com/joshuapare/tlsfkit/tlsf/dirty"
)

// Heap is the allocator kept in heap files. Its 64-bit bitmaps accept every
// tlsf.Config.
type Heap = tlsf.TLSF[uint64, uint64]

var (
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("heapfile: file closed")
	// ErrUnclean indicates the last writer did not commit: its sequence
	// numbers differ, or another File has the heap open.
	ErrUnclean = errors.New("heapfile: heap was not closed cleanly")
	// ErrChecksum indicates the header checksum does not match its contents.
	ErrChecksum = errors.New("heapfile: header checksum mismatch")
	// ErrStateTooLarge indicates the control block outgrew the header,
	// usually because a small Config split the arena into too many pools.
	ErrStateTooLarge = errors.New("heapfile: control block does not fit the header")
)

// Options configures Create and Open.
type Options struct {
	// Config selects the size classes of a new heap (nil for
	// tlsf.DefaultConfig). Open takes it from the file.
	Config *tlsf.Config

	// FlushMode controls the durability of Sync and Close.
	FlushMode dirty.FlushMode
}

// File is a heap stored in a memory mapped file: a fixed header holding the
// allocator control block, followed by the arena.
//
// The header carries two sequence numbers. Opening a heap bumps the primary
// one; Sync and Close write the control block and set the secondary one to
// match, so a heap whose numbers differ was not closed cleanly.
//
// NOT thread-safe. Wrap Allocator() with tlsf.NewLocked and serialize Sync,
// Grow and Close for shared use.
type File struct {
	m      *mmfile.Mapping
	dt     dirty.FlushableTracker
	a      *Heap
	mode   dirty.FlushMode
	seq    uint32 // Primary sequence of the open transaction
	closed bool
}

// Create creates (or truncates) the heap file at path with an arena of size
// bytes, registered with the allocator in full.
func Create(path string, size int, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: arena of %d bytes", tlsf.ErrBadSize, size)
	}
	total, ok := buf.AddOverflowSafe(format.HeapHeaderSize, size)
	if !ok {
		return nil, fmt.Errorf("%w: arena of %d bytes", tlsf.ErrBadSize, size)
	}

	m, err := mmfile.Create(path, total)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	f := newFile(m, opts)

	a, err := tlsf.New[uint64, uint64](f.arena(), dirty.Offset(f.dt, format.HeapHeaderSize), opts.Config)
	if err != nil {
		return nil, errors.Join(err, m.Close())
	}
	if _, err := a.AddPool(f.arena()); err != nil {
		return nil, errors.Join(err, m.Close())
	}
	f.a = a

	data := m.Bytes()
	copy(data[format.HeapSignatureOffset:], format.HeapSignature)
	format.PutU32(data, format.HeapVersionOffset, format.HeapVersion)
	f.begin()
	if err := f.Sync(context.Background()); err != nil {
		return nil, errors.Join(err, m.Close())
	}
	return f, nil
}

// Open maps an existing heap file and restores its allocator. The heap must
// have been closed cleanly.
func Open(path string, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}
	m, err := mmfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fail := func(err error) (*File, error) {
		return nil, errors.Join(fmt.Errorf("open %s: %w", path, err), m.Close())
	}

	_, state, err := readHeader(m.Bytes(), true)
	if err != nil {
		return fail(err)
	}

	f := newFile(m, opts)
	f.a, err = tlsf.Restore[uint64, uint64](f.arena(), state, dirty.Offset(f.dt, format.HeapHeaderSize))
	if err != nil {
		return fail(err)
	}
	f.begin()
	return f, nil
}

// readHeader validates the header of the heap file in data and returns it
// with the committed control block. The checksum only covers a committed
// header, so it is skipped for an unclean heap unless requireClean rejects
// that heap first.
func readHeader(data []byte, requireClean bool) (format.HeapHeader, []byte, error) {
	hdr, err := format.ParseHeapHeader(data)
	if err != nil {
		return hdr, nil, err
	}
	if hdr.Version != format.HeapVersion {
		return hdr, nil, fmt.Errorf("%w: heap version %d", format.ErrUnsupported, hdr.Version)
	}
	if requireClean && !hdr.Clean() {
		return hdr, nil, fmt.Errorf("%w: sequence %d, committed %d", ErrUnclean, hdr.PrimarySequence, hdr.SecondarySequence)
	}
	state, err := format.HeapState(data, hdr)
	if err != nil {
		return hdr, nil, err
	}
	if hdr.Clean() {
		if sum := format.HeapChecksum(data, int(hdr.StateLen)); sum != hdr.CheckSum {
			return hdr, nil, fmt.Errorf("%w: %#x, stored %#x", ErrChecksum, sum, hdr.CheckSum)
		}
	}
	if len(data) < format.HeapHeaderSize || uint64(len(data)-format.HeapHeaderSize) != hdr.ArenaLen {
		return hdr, nil, fmt.Errorf("%w: file of %d bytes, arena of %d", format.ErrTruncated, len(data), hdr.ArenaLen)
	}
	return hdr, state, nil
}

func newFile(m *mmfile.Mapping, opts *Options) *File {
	return &File{
		m:    m,
		dt:   dirty.NewTracker(m, format.HeapHeaderSize),
		mode: opts.FlushMode,
	}
}

// Allocator returns the heap allocator. Refs it hands out stay valid across
// Grow and across Close and Open; slices do not survive Grow.
func (f *File) Allocator() *Heap { return f.a }

// Header returns the decoded file header.
func (f *File) Header() (format.HeapHeader, error) {
	if f.closed {
		return format.HeapHeader{}, ErrClosed
	}
	return format.ParseHeapHeader(f.m.Bytes())
}

// Touch marks n payload bytes at ref as written so Sync flushes them.
// Allocator metadata is tracked without it.
func (f *File) Touch(ref tlsf.Ref, n int) {
	f.dt.Add(format.HeapHeaderSize+ref, n)
}

func (f *File) arena() []byte { return f.m.Bytes()[format.HeapHeaderSize:] }

// begin opens a new transaction by bumping the primary sequence number.
func (f *File) begin() {
	data := f.m.Bytes()
	f.seq = format.ReadU32(data, format.HeapPrimarySeqOffset) + 1
	format.PutU32(data, format.HeapPrimarySeqOffset, f.seq)
	format.PutU64(data, format.HeapTimeStampOffset, format.TimeToStamp(time.Now()))
	f.dt.Add(0, format.HeapStateOffset)
}

// commit flushes the arena, then writes the control block, sets the
// secondary sequence number and flushes the header.
func (f *File) commit(ctx context.Context) error {
	state, err := f.a.MarshalBinary()
	if err != nil {
		return err
	}
	if len(state) > format.HeapMaxStateSize {
		return fmt.Errorf("%w: %d bytes, room for %d", ErrStateTooLarge, len(state), format.HeapMaxStateSize)
	}

	if err := f.dt.FlushDataOnly(ctx); err != nil {
		return fmt.Errorf("flush arena: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := f.m.Bytes()
	copy(data[format.HeapStateOffset:], state)
	format.PutU32(data, format.HeapStateLenOffset, uint32(len(state)))
	format.PutU64(data, format.HeapArenaLenOffset, uint64(len(f.arena())))
	format.PutU32(data, format.HeapSecondarySeqOffset, f.seq)
	format.PutU64(data, format.HeapTimeStampOffset, format.TimeToStamp(time.Now()))
	format.PutU32(data, format.HeapCheckSumOffset, format.HeapChecksum(data, len(state)))
	f.dt.Add(0, format.HeapStateOffset+len(state))

	if err := f.dt.FlushHeaderAndMeta(ctx, f.mode); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	return nil
}

// Sync commits the current allocator state to the file and starts a new
// transaction.
//
// If ctx is cancelled mid-way the heap stays uncommitted; a later Sync or
// Close retries.
func (f *File) Sync(ctx context.Context) error {
	if f.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.commit(ctx); err != nil {
		return err
	}
	f.begin()
	return nil
}

// Grow extends the file and the arena by n bytes. The last pool grows over
// the new space; what it cannot hold becomes a new pool.
//
// The mapping may move. Allocations aligned past the OS page size pin the
// arena and make Grow fail with tlsf.ErrMisaligned without changing anything.
func (f *File) Grow(ctx context.Context, n int) error {
	if f.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("%w: grow by %d", tlsf.ErrBadSize, n)
	}
	if ma := f.a.MaxAlign(); ma > os.Getpagesize() {
		return fmt.Errorf("%w: allocations aligned to %d cannot move with the mapping", tlsf.ErrMisaligned, ma)
	}
	old := len(f.arena())
	total, ok := buf.AddAll(format.HeapHeaderSize, old, n)
	if !ok {
		return fmt.Errorf("%w: grow by %d", tlsf.ErrBadSize, n)
	}

	if err := f.m.Resize(total); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	arena := f.arena()
	if err := f.a.Rebase(arena); err != nil {
		return err
	}

	last := tlsf.Pool{}
	for _, p := range f.a.Pools() {
		if p.End() > last.End() {
			last = p
		}
	}
	grown, err := f.a.GrowPool(last, len(arena)-last.End())
	switch {
	case err == nil:
		last = grown
	case !errors.Is(err, tlsf.ErrPoolTooSmall):
		return err
	}
	if last.End() < len(arena) {
		if _, err := f.a.AddPool(arena[last.End():]); err != nil && !errors.Is(err, tlsf.ErrPoolTooSmall) {
			return err
		}
	}

	format.PutU64(f.m.Bytes(), format.HeapArenaLenOffset, uint64(len(arena)))
	f.dt.Add(format.HeapArenaLenOffset, format.WordSize)
	return nil
}

// Close commits the allocator state and unmaps the file. Calling Close more
// than once is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.commit(context.Background())
	return errors.Join(err, f.m.Close())
}
