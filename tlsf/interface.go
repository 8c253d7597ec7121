package tlsf

import "github.com/joshuapare/tlsfkit/tlsf/dirty"

// DirtyTracker is a type alias for the canonical interface defined in tlsf/dirty.
type DirtyTracker = dirty.DirtyTracker

// Allocator is the surface shared by TLSF instances and wrappers around them.
//
// Implementations:
//   - TLSF: the allocator itself, single threaded
//   - Locked: a mutex around any Allocator
type Allocator interface {
	// Allocate returns size bytes aligned to align. The returned slice has
	// length and capacity size and aliases the arena.
	Allocate(size, align int) (Ref, []byte, error)

	// Deallocate returns an allocation to its pool. align must match the
	// value passed to Allocate.
	Deallocate(ref Ref, align int)

	// Reallocate resizes an allocation, in place when possible.
	Reallocate(ref Ref, newSize, align int) (Ref, []byte, error)

	// AddPool registers a region of the arena as a new pool.
	AddPool(region []byte) (int, error)

	// Stats returns a snapshot of allocator statistics.
	Stats() Stats
}
