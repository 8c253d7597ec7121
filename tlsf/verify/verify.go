package verify

import (
	"fmt"
	"iter"
	"sort"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
	"github.com/joshuapare/tlsfkit/tlsf"
)

// Walker is the read-only view of an allocator the checks need.
type Walker interface {
	Pools() []tlsf.Pool
	IterBlocks(p tlsf.Pool) iter.Seq[tlsf.BlockInfo]
	CheckFreeLists() error
	Arena() []byte
}

// ValidationError describes the first violation a check found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(w Walker) error {
	if err := PoolLayout(w); err != nil {
		return err
	}
	for _, p := range w.Pools() {
		if err := BlockChain(w, p); err != nil {
			return err
		}
	}
	return FreeLists(w)
}

// PoolLayout validates that every pool holds whole blocks plus a sentinel
// and that no two pools overlap.
func PoolLayout(w Walker) error {
	pools := w.Pools()
	for _, p := range pools {
		if p.Len < format.Granularity+format.SentinelSize {
			return &ValidationError{
				Type:    "PoolLayout",
				Message: fmt.Sprintf("pool length %d below minimum %d", p.Len, format.Granularity+format.SentinelSize),
				Offset:  p.Off,
			}
		}
		if (p.Len-format.SentinelSize)%format.Granularity != 0 {
			return &ValidationError{
				Type:    "PoolLayout",
				Message: fmt.Sprintf("pool block span %d not a multiple of %d", p.Len-format.SentinelSize, format.Granularity),
				Offset:  p.Off,
			}
		}
	}

	spans := make([]Span, len(pools))
	for i, p := range pools {
		spans[i] = Span{Off: p.Off, Len: p.Len}
	}
	if err := NoOverlap(spans); err != nil {
		ve := err.(*ValidationError)
		ve.Type = "PoolLayout"
		return ve
	}
	return nil
}

// BlockChain walks pool p and validates that blocks tile it exactly:
// sizes are multiples of Granularity, each boundary tag names the block
// before it and no two free blocks are adjacent. The last block must end at
// a tail sentinel whose boundary tag names it.
func BlockChain(w Walker, p tlsf.Pool) error {
	expect := p.Off
	prev := -1
	prevFree := false
	for b := range w.IterBlocks(p) {
		if b.Off != expect {
			return &ValidationError{
				Type:    "BlockChain",
				Message: fmt.Sprintf("block found at 0x%X, expected 0x%X", b.Off, expect),
				Offset:  b.Off,
			}
		}
		if b.Size < format.Granularity || b.Size%format.Granularity != 0 {
			return &ValidationError{
				Type:    "BlockChain",
				Message: fmt.Sprintf("invalid block size %d", b.Size),
				Offset:  b.Off,
			}
		}
		if b.PrevPhys != prev {
			return &ValidationError{
				Type:    "BlockChain",
				Message: fmt.Sprintf("boundary tag points to 0x%X, expected 0x%X", b.PrevPhys, prev),
				Offset:  b.Off,
				Details: map[string]any{"prev": prev, "tag": b.PrevPhys},
			}
		}
		if b.Free && prevFree {
			return &ValidationError{
				Type:    "BlockChain",
				Message: "adjacent free blocks were not merged",
				Offset:  b.Off,
			}
		}
		prev, prevFree = b.Off, b.Free
		expect += b.Size
	}

	sentinel := p.End() - format.SentinelSize
	if expect != sentinel {
		return &ValidationError{
			Type:    "BlockChain",
			Message: fmt.Sprintf("blocks end at 0x%X, sentinel at 0x%X", expect, sentinel),
			Offset:  p.Off,
		}
	}
	return checkSentinel(w.Arena(), sentinel, prev)
}

// checkSentinel validates the tail sentinel at s: a zero size, the Used and
// LastInPool flags, and a boundary tag naming last.
func checkSentinel(arena []byte, s, last int) error {
	if !buf.Has(arena, s, format.SentinelSize) {
		return &ValidationError{
			Type:    "BlockChain",
			Message: fmt.Sprintf("sentinel at 0x%X lies outside the arena", s),
			Offset:  s,
		}
	}
	if word := format.ReadU64(arena, s+format.BlockSizeOffset); word != format.SizeUsed|format.SizeLastInPool {
		return &ValidationError{
			Type:    "BlockChain",
			Message: fmt.Sprintf("sentinel size word %#x, expected %#x", word, format.SizeUsed|format.SizeLastInPool),
			Offset:  s,
		}
	}
	tag := -1
	if r := tlsf.RelPtr(format.ReadU64(arena, s+format.BlockPrevPhysOffset)); !r.IsNil() {
		tag = int(r.Get(0))
	}
	if tag != last {
		return &ValidationError{
			Type:    "BlockChain",
			Message: fmt.Sprintf("sentinel boundary tag points to 0x%X, expected 0x%X", tag, last),
			Offset:  s,
			Details: map[string]any{"prev": last, "tag": tag},
		}
	}
	return nil
}

// FreeLists runs the allocator's own bucket and bitmap check.
func FreeLists(w Walker) error {
	if err := w.CheckFreeLists(); err != nil {
		return &ValidationError{
			Type:    "FreeLists",
			Message: err.Error(),
			Offset:  -1,
		}
	}
	return nil
}

// Span is a half-open byte range [Off, Off+Len).
type Span struct {
	Off int
	Len int
}

// NoOverlap validates that no two spans share a byte. Empty spans never overlap.
func NoOverlap(spans []Span) error {
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Len > 0 {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Off < sorted[j].Off })
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if a.Off+a.Len > b.Off {
			return &ValidationError{
				Type:    "NoOverlap",
				Message: fmt.Sprintf("[0x%X, +%d) overlaps [0x%X, +%d)", a.Off, a.Len, b.Off, b.Len),
				Offset:  b.Off,
			}
		}
	}
	return nil
}
