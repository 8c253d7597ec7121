// Package dirty provides page-level dirty tracking for memory-mapped heap files.
//
// # Overview
//
// An allocator reports every metadata word it writes through the
// DirtyTracker interface. The Tracker collects those ranges and, at sync
// time, flushes only the pages they touch, then the file header.
//
// # Usage
//
//	tracker := dirty.NewTracker(mapping, headerLen)
//	a, err := tlsf.New[uint32, uint16](arena, dirty.Offset(tracker, headerLen), nil)
//	...
//	if err := tracker.FlushDataOnly(ctx); err != nil {
//	    return err
//	}
//	// write the header
//	err = tracker.FlushHeaderAndMeta(ctx, dirty.FlushAuto)
//
// # Page-Level Granularity
//
// Ranges are rounded to 4KB page boundaries and merged when they overlap or
// touch:
//
//	Add(100, 200), Add(4100, 16) → [0x0-0x2000]
//
// # Thread Safety
//
// Tracker instances are not thread-safe. Callers must synchronize access
// externally.
package dirty
