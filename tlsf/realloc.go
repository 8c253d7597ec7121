package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// Reallocate resizes the allocation at ref to newSize bytes, keeping align.
//
// Shrinking always happens in place: the freed tail becomes a free block
// (merged with a free successor) once it spans at least Granularity bytes.
// Growing happens in place when the physically following block is free and
// large enough. Otherwise a new block is allocated, the old contents copied
// and the old block released.
//
// On error the original allocation is left untouched and stays valid.
func (t *TLSF[FL, SL]) Reallocate(ref Ref, newSize, align int) (Ref, []byte, error) {
	t.stats.reallocCalls++
	if err := checkArgs(newSize, align); err != nil {
		return 0, nil, err
	}

	b := t.blockOf(ref, align)
	old := t.blockSize(b)
	n, ok := buf.AddAll(ref-b, newSize, format.GranularityMask)
	if !ok {
		return 0, nil, fmt.Errorf("%w: size %d overflows", ErrNoSpace, newSize)
	}
	need := format.AlignDownGranularity(n)

	if need <= old {
		if need < old {
			t.shrink(b, old, need)
		}
		t.stats.reallocInPlace++
		return ref, t.Bytes(ref, newSize), nil
	}

	if t.growInPlace(b, old, need) {
		t.stats.reallocInPlace++
		return ref, t.Bytes(ref, newSize), nil
	}

	nref, err := t.allocate(newSize, align)
	if err != nil {
		logger.Debug("reallocate failed", "ref", ref, "size", newSize, "err", err)
		return 0, nil, err
	}
	n = min(b+old-ref, newSize)
	copy(t.mem[nref:nref+n], t.mem[ref:ref+n])
	t.touch(nref, n)
	t.release(b)
	t.stats.reallocMoved++
	return nref, t.Bytes(nref, newSize), nil
}

// shrink cuts used block b from old to keep bytes and frees the tail.
func (t *TLSF[FL, SL]) shrink(b, old, keep int) {
	r := b + keep
	rest := old - keep
	if next := b + old; t.isFree(next) {
		nsize := t.blockSize(next)
		t.removeFree(next, nsize)
		rest += nsize
		t.stats.coalesceForward++
	}
	t.setSize(b, keep, format.SizeUsed)
	t.setPrevPhys(r, b)
	t.setPrevPhys(r+rest, r)
	t.insertFree(r, rest)
	t.stats.splitCount++
}

// growInPlace extends used block b to need bytes by absorbing its free
// successor, splitting off whatever is left of it.
func (t *TLSF[FL, SL]) growInPlace(b, old, need int) bool {
	next := b + old
	if !t.isFree(next) {
		return false
	}
	nsize := t.blockSize(next)
	total := old + nsize
	if total < need {
		return false
	}
	t.removeFree(next, nsize)
	t.stats.coalesceForward++
	if total > need {
		t.split(b, need, total-need)
	} else {
		t.setPrevPhys(b+total, b)
	}
	t.setSize(b, need, format.SizeUsed)
	return true
}
