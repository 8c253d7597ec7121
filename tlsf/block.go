package tlsf

import "github.com/joshuapare/tlsfkit/internal/format"

// Block header accessors. b is always the arena offset of a block start.
//
// A used block carries the size word and the previous-physical link. A free
// block adds its bucket links in the first 16 bytes of what would otherwise
// be payload.

func (t *TLSF[FL, SL]) sizeWord(b int) uint64 {
	return format.ReadU64(t.mem, b+format.BlockSizeOffset)
}

func (t *TLSF[FL, SL]) blockSize(b int) int {
	return int(t.sizeWord(b) & format.SizeMask)
}

func (t *TLSF[FL, SL]) isFree(b int) bool {
	return t.sizeWord(b)&format.SizeUsed == 0
}

func (t *TLSF[FL, SL]) setSize(b, size int, flags uint64) {
	format.PutU64(t.mem, b+format.BlockSizeOffset, uint64(size)|flags)
	t.touch(b+format.BlockSizeOffset, format.WordSize)
}

func (t *TLSF[FL, SL]) link(b, field int) int {
	return RelPtr(format.ReadU64(t.mem, b+field)).off()
}

func (t *TLSF[FL, SL]) setLink(b, field, target int) {
	var r RelPtr
	if target >= 0 {
		r = relTo(target)
	}
	format.PutU64(t.mem, b+field, uint64(r))
	t.touch(b+field, format.WordSize)
}

// prevPhys returns the block physically before b, -1 at the pool head.
func (t *TLSF[FL, SL]) prevPhys(b int) int { return t.link(b, format.BlockPrevPhysOffset) }

func (t *TLSF[FL, SL]) setPrevPhys(b, prev int) { t.setLink(b, format.BlockPrevPhysOffset, prev) }

func (t *TLSF[FL, SL]) writeSentinel(s, last int) {
	t.setSize(s, 0, format.SizeUsed|format.SizeLastInPool)
	t.setPrevPhys(s, last)
}

func (t *TLSF[FL, SL]) bucket(fl, sl int) int { return fl*t.cfg.SLLen + sl }

// insertFree pushes free block b of size bytes at the head of its bucket.
func (t *TLSF[FL, SL]) insertFree(b, size int) {
	fl, sl, ok := t.cls.mapFloor(uint64(size))
	if !ok {
		panic("tlsf: free block size has no class")
	}
	i := t.bucket(fl, sl)
	head := t.heads[i].off()

	t.setSize(b, size, 0)
	t.setLink(b, format.FreeNextOffset, head)
	t.setLink(b, format.FreePrevOffset, -1)
	if head >= 0 {
		t.setLink(head, format.FreePrevOffset, b)
	}
	t.heads[i] = relTo(b)
	t.idx.set(fl, sl)

	t.stats.freeBytes += size
	t.stats.freeBlocks++
}

// removeFree unlinks free block b of size bytes from its bucket.
func (t *TLSF[FL, SL]) removeFree(b, size int) {
	fl, sl, ok := t.cls.mapFloor(uint64(size))
	if !ok {
		panic("tlsf: free block size has no class")
	}
	next := t.link(b, format.FreeNextOffset)
	prev := t.link(b, format.FreePrevOffset)

	if prev >= 0 {
		t.setLink(prev, format.FreeNextOffset, next)
	} else {
		i := t.bucket(fl, sl)
		if next >= 0 {
			t.heads[i] = relTo(next)
		} else {
			t.heads[i] = 0
			t.idx.clear(fl, sl)
		}
	}
	if next >= 0 {
		t.setLink(next, format.FreePrevOffset, prev)
	}

	t.stats.freeBytes -= size
	t.stats.freeBlocks--
}

// blockOf recovers the block header of an allocation. Allocations aligned to
// Granularity or more keep a link to their block right before the payload.
func (t *TLSF[FL, SL]) blockOf(ref Ref, align int) int {
	if align >= format.Granularity {
		return RelPtr(format.ReadU64(t.mem, ref-format.PadSize)).off()
	}
	return ref - format.UsedHeaderSize
}
