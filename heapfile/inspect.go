package heapfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/tlsfkit/internal/format"
	"github.com/joshuapare/tlsfkit/internal/mmfile"
	"github.com/joshuapare/tlsfkit/tlsf"
	"github.com/joshuapare/tlsfkit/tlsf/verify"
)

// Snapshot is a read-only view of a heap file's last committed state.
//
// The file is mapped read-only and its sequence numbers are left alone, so
// a heap can be inspected while another File has it open. In that case the
// arena may have moved on from the committed control block and Inspect or
// Verify report the mismatch.
type Snapshot struct {
	// Header is the header as found in the file.
	Header format.HeapHeader

	a     *Heap
	unmap func() error
}

// Inspect maps the heap file at path read-only and restores its committed
// allocator state without writing to the file.
func Inspect(path string) (*Snapshot, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	fail := func(err error) (*Snapshot, error) {
		return nil, errors.Join(fmt.Errorf("inspect %s: %w", path, err), unmap())
	}

	hdr, state, err := readHeader(data, false)
	if err != nil {
		return fail(err)
	}
	a, err := tlsf.Restore[uint64, uint64](data[format.HeapHeaderSize:], state, nil)
	if err != nil {
		return fail(err)
	}
	return &Snapshot{Header: hdr, a: a, unmap: unmap}, nil
}

// Pools returns the committed pools.
func (s *Snapshot) Pools() []tlsf.Pool { return s.a.Pools() }

// Stats returns the free space of the committed state. Call counters are
// not persisted and read zero.
func (s *Snapshot) Stats() tlsf.Stats { return s.a.Stats() }

// Verify runs every heap invariant check over the snapshot.
func (s *Snapshot) Verify() error { return verify.AllInvariants(s.a) }

// Dump writes the pools and blocks of the snapshot to out as JSON.
func (s *Snapshot) Dump(out io.Writer) error { return verify.Dump(out, s.a) }

// Close unmaps the file. Calling Close more than once is a no-op.
func (s *Snapshot) Close() error {
	if s.unmap == nil {
		return nil
	}
	unmap := s.unmap
	s.unmap = nil
	s.a = nil
	return unmap()
}
