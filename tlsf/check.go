package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// CheckFreeLists walks every bucket and reports ErrCorrupt when the bitmap,
// a block's size class or the free list links disagree with each other or
// with the blocks found by IterBlocks. It only reads.
func (t *TLSF[FL, SL]) CheckFreeLists() error {
	walked := 0
	walkedBytes := 0
	for _, p := range t.pools {
		for blk := range t.IterBlocks(p) {
			if blk.Free {
				walked++
				walkedBytes += blk.Size
			}
		}
	}

	// Each list may hold at most every free block; anything longer is a cycle.
	limit := walked
	listed := 0
	listedBytes := 0
	if t.cfg.FLLen < 64 && uint64(t.idx.first)>>t.cfg.FLLen != 0 {
		return fmt.Errorf("%w: first-level bitmap %#x has bits past %d", ErrCorrupt, uint64(t.idx.first), t.cfg.FLLen)
	}
	for fl := range t.cfg.FLLen {
		if t.cfg.SLLen < 64 && uint64(t.idx.second[fl])>>t.cfg.SLLen != 0 {
			return fmt.Errorf("%w: second-level bitmap %d has bits past %d", ErrCorrupt, fl, t.cfg.SLLen)
		}
		flSet := uint64(t.idx.first)&(1<<fl) != 0
		if flSet != (t.idx.second[fl] != 0) {
			return fmt.Errorf("%w: first-level bit %d disagrees with its second-level bitmap", ErrCorrupt, fl)
		}
		for sl := range t.cfg.SLLen {
			head := t.heads[t.bucket(fl, sl)].off()
			if t.idx.has(fl, sl) != (head >= 0) {
				return fmt.Errorf("%w: bucket (%d, %d) bitmap bit disagrees with list head", ErrCorrupt, fl, sl)
			}
			prev := -1
			for b := head; b >= 0; b = t.link(b, format.FreeNextOffset) {
				if listed == limit {
					return fmt.Errorf("%w: free lists hold more blocks than the pools", ErrCorrupt)
				}
				if !t.inPool(b) {
					return fmt.Errorf("%w: bucket (%d, %d) links to %d outside every pool", ErrCorrupt, fl, sl, b)
				}
				if !t.isFree(b) {
					return fmt.Errorf("%w: used block %d on bucket (%d, %d)", ErrCorrupt, b, fl, sl)
				}
				size := t.blockSize(b)
				bfl, bsl, ok := t.cls.mapFloor(uint64(size))
				if !ok || bfl != fl || bsl != sl {
					return fmt.Errorf("%w: block %d of size %d on bucket (%d, %d)", ErrCorrupt, b, size, fl, sl)
				}
				if got := t.link(b, format.FreePrevOffset); got != prev {
					return fmt.Errorf("%w: block %d prev link %d, want %d", ErrCorrupt, b, got, prev)
				}
				listed++
				listedBytes += size
				prev = b
			}
		}
	}

	if listed != walked || listedBytes != walkedBytes {
		return fmt.Errorf("%w: %d free blocks (%d bytes) listed, %d (%d bytes) in pools",
			ErrCorrupt, listed, listedBytes, walked, walkedBytes)
	}
	if listed != t.stats.freeBlocks || listedBytes != t.stats.freeBytes {
		return fmt.Errorf("%w: free accounting %d blocks (%d bytes), lists hold %d (%d bytes)",
			ErrCorrupt, t.stats.freeBlocks, t.stats.freeBytes, listed, listedBytes)
	}
	return nil
}

// inPool reports whether a whole free block header at b lies inside a pool.
func (t *TLSF[FL, SL]) inPool(b int) bool {
	for _, p := range t.pools {
		if b >= p.Off && buf.Has(t.mem[:min(p.End(), len(t.mem))], b, format.Granularity) {
			return true
		}
	}
	return false
}
