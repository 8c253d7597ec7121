// Package heapfile keeps a TLSF heap in a memory mapped file so it can be
// closed, reopened, moved to another address and grown.
//
// # File Layout
//
//	0x00000  header: signature, sequence numbers, arena length,
//	         checksum and the allocator control block
//	0x10000  arena: every pool, block header and payload
//
// The allocator stores only arena-relative links, so the arena works at
// whatever address the file is mapped at. The control block (bitmaps,
// bucket heads and pools) is written to the header by Sync and Close and
// read back by Open with tlsf.Restore.
//
// # Commit Protocol
//
// The header carries a primary and a secondary sequence number:
//   - Create and Open bump the primary number (a transaction is open)
//   - Sync flushes dirty arena pages, writes the control block, sets the
//     secondary number equal to the primary one and flushes the header
//   - Sync then opens the next transaction; Close commits without one
//
// Open refuses a heap whose numbers differ with ErrUnclean: it was not
// closed, or is still open elsewhere, and the arena may not match the
// control block.
//
// Inspect maps a heap read-only and restores its last committed control
// block for Verify and Dump, leaving the sequence numbers alone.
//
// # Usage Example
//
//	f, err := heapfile.Create("objects.heap", 1<<20, nil)
//	if err != nil {
//	    return err
//	}
//	ref, b, err := f.Allocator().Allocate(128, 16)
//	if err != nil {
//	    return err
//	}
//	copy(b, payload)
//	f.Touch(ref, len(payload))
//	if err := f.Close(); err != nil {
//	    return err
//	}
//
//	f, err = heapfile.Open("objects.heap", nil)
//	// f.Allocator().Bytes(ref, len(payload)) holds payload again.
//
// # Dirty Tracking
//
// Allocator metadata writes are reported to a dirty.Tracker automatically.
// Payload writes are not: call Touch for the bytes that must be flushed by
// the next Sync. Untouched pages still reach the file through the page
// cache, only without the ordering guarantee.
package heapfile
