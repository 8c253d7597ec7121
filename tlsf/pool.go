package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// AddPool registers region, which must be a sub-slice of the arena that
// overlaps no existing pool, and returns the number of bytes it added as
// free blocks.
//
// The first block starts at the first Granularity-aligned address in
// region. A region larger than one block may span is carved into several
// back-to-back pools, each closed by its own tail sentinel.
func (t *TLSF[FL, SL]) AddPool(region []byte) (int, error) {
	if len(region) == 0 {
		return 0, ErrPoolTooSmall
	}
	start, end, err := t.regionBounds(region)
	if err != nil {
		return 0, err
	}

	maxBlock := t.cls.maxBlockSize()
	added := 0
	for {
		start = int(format.AlignUp(t.abs(start), format.Granularity) - t.base)
		avail := end - start - format.SentinelSize
		if avail < format.Granularity {
			break
		}
		size := min(format.AlignDownGranularity(avail), maxBlock)

		t.setPrevPhys(start, -1)
		t.insertFree(start, size)
		t.writeSentinel(start+size, start)

		p := Pool{Off: start, Len: size + format.SentinelSize}
		t.pools = append(t.pools, p)
		added += size
		logger.Debug("add pool", "off", p.Off, "len", p.Len, "block", size)

		start = p.End()
	}

	if added == 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrPoolTooSmall, len(region))
	}
	return added, nil
}

// regionBounds converts region to arena offsets [start, end).
func (t *TLSF[FL, SL]) regionBounds(region []byte) (int, int, error) {
	addr := addrOf(region)
	if addr < t.base || addr-t.base > uintptr(len(t.mem)) {
		return 0, 0, ErrForeignRegion
	}
	start := int(addr - t.base)
	end, ok := buf.AddOverflowSafe(start, len(region))
	if !ok || end > len(t.mem) {
		return 0, 0, ErrForeignRegion
	}
	for _, p := range t.pools {
		if start < p.End() && p.Off < end {
			return 0, 0, fmt.Errorf("%w: [%d, %d) overlaps pool at %d", ErrForeignRegion, start, end, p.Off)
		}
	}
	return start, end, nil
}

// GrowPool extends pool p over the n arena bytes that follow it. The added
// space is merged with a free last block and the tail sentinel moves to the
// new end.
//
// Growth stops at the largest block size a pool may hold; the returned Pool
// tells how far it got. Bytes that did not fit can be passed to AddPool.
func (t *TLSF[FL, SL]) GrowPool(p Pool, n int) (Pool, error) {
	if n < 0 {
		return Pool{}, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	i := t.poolIndex(p)
	if i < 0 {
		return Pool{}, fmt.Errorf("%w: no pool at %d", ErrForeignRegion, p.Off)
	}
	p = t.pools[i]
	newEnd, ok := buf.AddOverflowSafe(p.End(), n)
	if !ok || newEnd > len(t.mem) {
		return Pool{}, fmt.Errorf("%w: growing pool at %d by %d", ErrForeignRegion, p.Off, n)
	}
	for _, q := range t.pools {
		if q.Off >= p.End() && q.Off < newEnd {
			return Pool{}, fmt.Errorf("%w: growth overlaps pool at %d", ErrForeignRegion, q.Off)
		}
	}

	span := p.Len - format.SentinelSize
	add := min(format.AlignDownGranularity(n), t.cls.maxBlockSize()-span)
	if add < format.Granularity {
		return Pool{}, fmt.Errorf("%w: cannot grow pool at %d by %d", ErrPoolTooSmall, p.Off, n)
	}

	// The old sentinel header becomes the new free block.
	b := p.End() - format.SentinelSize
	size := add
	if last := t.prevPhys(b); last >= 0 && t.isFree(last) {
		lsize := t.blockSize(last)
		t.removeFree(last, lsize)
		b = last
		size += lsize
		t.stats.coalesceBackward++
	}
	t.insertFree(b, size)
	t.writeSentinel(b+size, b)

	t.pools[i].Len += add
	logger.Debug("grow pool", "off", p.Off, "len", t.pools[i].Len, "added", add)
	return t.pools[i], nil
}

func (t *TLSF[FL, SL]) poolIndex(p Pool) int {
	for i, q := range t.pools {
		if q.Off == p.Off {
			return i
		}
	}
	return -1
}

// Rebase points the allocator at arena, a copy or new mapping of the bytes it
// managed so far. Refs keep their values; slices obtained before the call
// refer to the old memory.
//
// The new base must have the same remainder as the old one modulo the largest
// alignment served so far, otherwise live aligned allocations would move off
// their alignment.
func (t *TLSF[FL, SL]) Rebase(arena []byte) error {
	need := 0
	for _, p := range t.pools {
		need = max(need, p.End())
	}
	if len(arena) < need {
		return fmt.Errorf("%w: arena of %d bytes, pools end at %d", ErrForeignRegion, len(arena), need)
	}
	base := addrOf(arena)
	ma := uintptr(t.maxAlign)
	if base%ma != t.base%ma {
		return fmt.Errorf("%w: base %#x, want %#x modulo %d", ErrMisaligned, base%ma, t.base%ma, ma)
	}
	logger.Debug("rebase", "from", t.base, "to", base, "len", len(arena))
	t.mem = arena
	t.base = base
	return nil
}
