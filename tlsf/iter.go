package tlsf

import (
	"iter"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// IterBlocks walks the blocks of pool p in address order, from its first
// block up to the tail sentinel.
//
// The walk only reads the arena. It stops early at a size word that would
// leave the pool and never takes more than p.Len/Granularity steps, so it
// terminates on a corrupted chain too.
func (t *TLSF[FL, SL]) IterBlocks(p Pool) iter.Seq[BlockInfo] {
	return func(yield func(BlockInfo) bool) {
		end := min(p.End(), len(t.mem))
		b := p.Off
		for range p.Len / format.Granularity {
			if b < 0 || !buf.Has(t.mem[:end], b, format.UsedHeaderSize) {
				return
			}
			w := t.sizeWord(b)
			if w&format.SizeLastInPool != 0 {
				return
			}
			size := int(w & format.SizeMask)
			if size == 0 || size > end-b {
				return
			}
			info := BlockInfo{
				Off:      b,
				Size:     size,
				Free:     w&format.SizeUsed == 0,
				PrevPhys: t.prevPhys(b),
			}
			if !yield(info) {
				return
			}
			b += size
		}
	}
}
