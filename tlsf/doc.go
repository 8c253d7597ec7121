// Package tlsf implements a two-level segregated fit (TLSF) allocator whose
// metadata lives entirely inside the memory it manages.
//
// # Overview
//
// An allocator is created over an arena ([]byte). Sub-slices of the arena are
// registered as pools; each pool becomes one large free block closed by a
// tail sentinel. Allocate, Deallocate and Reallocate run in bounded time that
// depends only on the bitmap widths, never on the number of free blocks.
//
// # Size Classes
//
// A block size maps to a bucket (fl, sl):
//
//	fl = floor(log2(size)) - 5          one class per power of two from 32 bytes
//	sl = next log2(SLLen) bits of size  SLLen linear steps inside each class
//
// A first-level bitmap records which classes hold a non-empty bucket and one
// second-level bitmap per class records which buckets are non-empty, so a
// good-fit search is two bit scans. The bitmap word types are type
// parameters of TLSF and bound Config.FLLen and Config.SLLen.
//
// # Block Layout
//
// Blocks start on 32-byte boundaries (absolute addresses). Every block begins
// with two words:
//
//	0x00  size | used flag | last-in-pool flag
//	0x08  link to the previous physical block (empty for the first block)
//
// Free blocks add their bucket links at 0x10 and 0x18, inside the space a
// used block hands out as payload. Allocations aligned to 32 bytes or more
// keep a link to their block in the word right before the payload, which is
// why Deallocate needs the alignment.
//
// Links are RelPtr values measured from the arena start, so a heap can be
// copied, remapped (Rebase) or persisted (MarshalBinary, Restore) without
// rewriting them.
//
// # Usage Example
//
//	arena := make([]byte, 1<<20)
//	a, err := tlsf.NewDefault(arena, nil)
//	if err != nil {
//	    return err
//	}
//
//	ref, buf, err := a.Allocate(100, 8)
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//
//	ref, buf, err = a.Reallocate(ref, 400, 8)
//	...
//	a.Deallocate(ref, 8)
//
// # Thread Safety
//
// TLSF is NOT thread-safe. Use NewLocked, or hold an external lock around
// every call. No operation may be interrupted part way.
//
// # Caller Obligations
//
// Deallocate and Reallocate trust their arguments: freeing twice, freeing a
// foreign Ref or passing a different alignment corrupts the heap silently.
// CheckFreeLists and the tlsf/verify package can detect the damage after the
// fact.
package tlsf
