package tlsf

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
	"github.com/joshuapare/tlsfkit/internal/format"
)

// MarshalBinary encodes the control block: configuration, bitmaps, bucket
// heads and pools. Together with the arena bytes it is everything Restore
// needs to reopen the heap, at any address with a compatible alignment.
//
// Layout (little-endian):
//
//	0x00  fixed header (see internal/format State* offsets)
//	0x38  FLLen second-level bitmaps, one u64 each
//	...   FLLen*SLLen bucket heads, one u64 RelPtr each
//	...   pool records, (u64 offset, u64 length) each
func (t *TLSF[FL, SL]) MarshalBinary() ([]byte, error) {
	flLen, slLen := t.cfg.FLLen, t.cfg.SLLen
	n := format.StateHeaderSize + flLen*format.WordSize + flLen*slLen*format.WordSize +
		len(t.pools)*format.StatePoolRecordSize
	out := make([]byte, n)

	copy(out[format.StateSignatureOffset:], format.StateSignature)
	format.PutU32(out, format.StateVersionOffset, format.StateVersion)
	format.PutU32(out, format.StateFLLenOffset, uint32(flLen))
	format.PutU32(out, format.StateSLLenOffset, uint32(slLen))
	format.PutU32(out, format.StateFLBitsOffset, uint32(bitWidth[FL]()))
	format.PutU32(out, format.StateSLBitsOffset, uint32(bitWidth[SL]()))
	format.PutU64(out, format.StateMaxAlignOffset, uint64(t.maxAlign))
	format.PutU64(out, format.StateBaseModOffset, uint64(t.base%uintptr(t.maxAlign)))
	format.PutU64(out, format.StateFLBitmapOffset, uint64(t.idx.first))
	format.PutU64(out, format.StatePoolCountOffset, uint64(len(t.pools)))

	off := format.StateHeaderSize
	for _, w := range t.idx.second {
		format.PutU64(out, off, uint64(w))
		off += format.WordSize
	}
	for _, h := range t.heads {
		format.PutU64(out, off, uint64(h))
		off += format.WordSize
	}
	for _, p := range t.pools {
		format.PutU64(out, off, uint64(p.Off))
		format.PutU64(out, off+format.WordSize, uint64(p.Len))
		off += format.StatePoolRecordSize
	}
	return out, nil
}

// Restore rebuilds an allocator from MarshalBinary output and the arena it
// describes. FL and SL must be the bitmap widths the state was written with.
// Call counters start from zero; free space accounting is recomputed from
// the pools and the free lists are checked before the allocator is returned.
func Restore[FL, SL BitmapWord](arena, state []byte, dt DirtyTracker) (*TLSF[FL, SL], error) {
	if len(state) < format.StateHeaderSize {
		return nil, fmt.Errorf("%w: %w", ErrBadState, format.ErrTruncated)
	}
	if !bytes.Equal(state[:len(format.StateSignature)], format.StateSignature) {
		return nil, fmt.Errorf("%w: %w", ErrBadState, format.ErrSignatureMismatch)
	}
	if v := format.ReadU32(state, format.StateVersionOffset); v != format.StateVersion {
		return nil, fmt.Errorf("%w: %w: version %d", ErrBadState, format.ErrUnsupported, v)
	}
	flBits := int(format.ReadU32(state, format.StateFLBitsOffset))
	slBits := int(format.ReadU32(state, format.StateSLBitsOffset))
	if flBits != bitWidth[FL]() || slBits != bitWidth[SL]() {
		return nil, fmt.Errorf("%w: bitmap widths %d/%d, want %d/%d",
			ErrBadState, flBits, slBits, bitWidth[FL](), bitWidth[SL]())
	}

	cfg := configFor(int(format.ReadU32(state, format.StateFLLenOffset)), int(format.ReadU32(state, format.StateSLLenOffset)))
	t, err := New[FL, SL](arena, dt, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadState, err)
	}

	maxAlign := format.ReadU64(state, format.StateMaxAlignOffset)
	if maxAlign < format.Granularity || maxAlign > uint64(maxInt) || !format.IsPowerOfTwo(int(maxAlign)) {
		return nil, fmt.Errorf("%w: max alignment %d", ErrBadState, maxAlign)
	}
	t.maxAlign = int(maxAlign)
	if mod := format.ReadU64(state, format.StateBaseModOffset); uint64(t.base%uintptr(maxAlign)) != mod {
		return nil, fmt.Errorf("%w: base %#x modulo %d, want %#x", ErrMisaligned, t.base%uintptr(maxAlign), maxAlign, mod)
	}

	pools := format.ReadU64(state, format.StatePoolCountOffset)
	if pools > uint64(len(state)) {
		return nil, fmt.Errorf("%w: %d pools", ErrBadState, pools)
	}
	off := format.StateHeaderSize
	tables := []struct{ count, size int }{
		{cfg.FLLen, format.WordSize},
		{cfg.FLLen * cfg.SLLen, format.WordSize},
		{int(pools), format.StatePoolRecordSize},
	}
	end := off
	for _, tbl := range tables {
		if end, err = buf.CheckTableBounds(len(state), end, tbl.count, tbl.size); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrBadState, format.ErrTruncated, err)
		}
	}

	t.idx.first = FL(format.ReadU64(state, format.StateFLBitmapOffset))
	for i := range t.idx.second {
		t.idx.second[i] = SL(format.ReadU64(state, off))
		off += format.WordSize
	}
	for i := range t.heads {
		t.heads[i] = RelPtr(format.ReadU64(state, off))
		off += format.WordSize
	}
	for range pools {
		p := Pool{
			Off: int(format.ReadU64(state, off)),
			Len: int(format.ReadU64(state, off+format.WordSize)),
		}
		off += format.StatePoolRecordSize
		if p.Off < 0 || p.Len < format.Granularity+format.SentinelSize || !buf.Has(arena, p.Off, p.Len) {
			return nil, fmt.Errorf("%w: pool [%d, +%d) outside arena of %d bytes", ErrBadState, p.Off, p.Len, len(arena))
		}
		t.pools = append(t.pools, p)
	}

	for _, p := range t.pools {
		for blk := range t.IterBlocks(p) {
			if blk.Free {
				t.stats.freeBytes += blk.Size
				t.stats.freeBlocks++
			}
		}
	}
	if err := t.CheckFreeLists(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadState, err)
	}

	logger.Debug("restore", "config", cfg.String(), "pools", len(t.pools), "free", t.stats.freeBytes)
	return t, nil
}

// configFor returns the preset matching the class counts, or a custom one.
func configFor(flLen, slLen int) Config {
	for _, c := range []Config{ConfigTiny, ConfigCompact, ConfigBalanced, ConfigWide} {
		if c.FLLen == flLen && c.SLLen == slLen {
			return c
		}
	}
	return Config{Name: "Custom", FLLen: flLen, SLLen: slLen}
}
