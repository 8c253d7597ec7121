package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// Allocate returns size bytes whose address is a multiple of align.
//
// The bucket search is a constant number of bit scans. When no bucket holds a
// large enough block, or when no size class could ever hold the request,
// the error satisfies errors.Is(err, ErrNoSpace) and nothing changes; the
// caller may add a pool and retry.
//
// The returned slice has length and capacity size. A zero size is valid and
// yields a distinct allocation that must still be deallocated.
func (t *TLSF[FL, SL]) Allocate(size, align int) (Ref, []byte, error) {
	t.stats.allocCalls++
	ref, err := t.allocate(size, align)
	if err != nil {
		t.stats.allocFailures++
		logger.Debug("allocate failed", "size", size, "align", align, "err", err)
		return 0, nil, err
	}
	return ref, t.Bytes(ref, size), nil
}

func checkArgs(size, align int) error {
	if size < 0 {
		return fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if !format.IsPowerOfTwo(align) {
		return fmt.Errorf("%w: %d", ErrBadAlign, align)
	}
	return nil
}

// searchSize returns the smallest block size that can hold size bytes at any
// placement an align-aligned payload may need inside a block.
func searchSize(size, align int) (int, bool) {
	overhead := max(align-format.UsedHeaderSize, 0) + format.UsedHeaderSize
	n, ok := buf.AddAll(size, overhead, format.GranularityMask)
	if !ok {
		return 0, false
	}
	return format.AlignDownGranularity(n), true
}

func (t *TLSF[FL, SL]) allocate(size, align int) (Ref, error) {
	if err := checkArgs(size, align); err != nil {
		return 0, err
	}
	need, ok := searchSize(size, align)
	if !ok {
		return 0, fmt.Errorf("%w: size %d align %d overflows", ErrNoSpace, size, align)
	}
	fl, sl, ok := t.cls.mapCeil(uint64(need))
	if !ok {
		return 0, fmt.Errorf("%w: %d bytes exceeds every size class", ErrNoSpace, need)
	}
	fl, sl, ok = t.idx.search(fl, sl)
	if !ok {
		return 0, ErrNoSpace
	}

	b := t.heads[t.bucket(fl, sl)].off()
	bsize := t.blockSize(b)
	t.removeFree(b, bsize)

	payload := int(format.AlignUp(t.abs(b+format.UsedHeaderSize), uintptr(align)) - t.base)
	used := format.AlignGranularity(payload - b + size)
	if used < bsize {
		t.split(b, used, bsize-used)
	}
	t.setSize(b, used, format.SizeUsed)

	if align >= format.Granularity {
		format.PutU64(t.mem, payload-format.PadSize, uint64(relTo(b)))
		t.touch(payload-format.PadSize, format.PadSize)
		if align > t.maxAlign {
			t.maxAlign = align
		}
	}
	return payload, nil
}

// split turns the tail of block b, starting at b+keep, into a free block of
// rest bytes. The block after it gets its boundary tag updated.
func (t *TLSF[FL, SL]) split(b, keep, rest int) {
	r := b + keep
	t.setPrevPhys(r, b)
	t.setPrevPhys(r+rest, r)
	t.insertFree(r, rest)
	t.stats.splitCount++
}

// Deallocate returns an allocation to its pool, merging it with free
// physical neighbors. align must be the alignment passed when the
// allocation was made.
//
// Freeing a Ref twice, or a Ref this allocator did not return, corrupts the
// heap. Nothing is checked.
func (t *TLSF[FL, SL]) Deallocate(ref Ref, align int) {
	t.stats.freeCalls++
	t.release(t.blockOf(ref, align))
}

func (t *TLSF[FL, SL]) release(b int) {
	size := t.blockSize(b)

	// Sentinels are marked used, so this never leaves the pool.
	if next := b + size; t.isFree(next) {
		nsize := t.blockSize(next)
		t.removeFree(next, nsize)
		size += nsize
		t.stats.coalesceForward++
	}

	if prev := t.prevPhys(b); prev >= 0 && t.isFree(prev) {
		psize := t.blockSize(prev)
		t.removeFree(prev, psize)
		b = prev
		size += psize
		t.stats.coalesceBackward++
	}

	t.setPrevPhys(b+size, b)
	t.insertFree(b, size)
}

// SizeOfAllocation returns the number of bytes usable at ref, which is at
// least the size requested.
func (t *TLSF[FL, SL]) SizeOfAllocation(ref Ref, align int) int {
	b := t.blockOf(ref, align)
	return b + t.blockSize(b) - ref
}
