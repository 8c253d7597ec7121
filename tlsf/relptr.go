package tlsf

// RelPtr is a link expressed as a distance from an origin rather than an
// absolute address. The stored value is the bitwise complement of the
// distance, so the zero value means "no link" while distance 0 stays
// representable.
//
// A RelPtr must be resolved against the same origin it was built from. The
// allocator always uses the arena start as origin, which is what keeps every
// link stored inside a pool valid after the arena is copied or remapped.
type RelPtr uint64

// NewRelPtr returns a link from origin to target. The distance wraps, so
// target may lie before origin. The one distance that cannot be stored is
// -1, whose encoding is the empty link; block links are always multiples of
// Granularity and never hit it.
func NewRelPtr(target, origin uintptr) RelPtr {
	return RelPtr(^uint64(target - origin))
}

// Get resolves the link against origin.
func (r RelPtr) Get(origin uintptr) uintptr {
	return origin + uintptr(^uint64(r))
}

// IsNil reports whether r is the empty link.
func (r RelPtr) IsNil() bool { return r == 0 }

// relTo builds a link to an arena offset. Offsets are distances from the
// arena start, so the origin is zero.
func relTo(off int) RelPtr { return NewRelPtr(uintptr(off), 0) }

// off resolves a link to an arena offset, -1 for the empty link.
func (r RelPtr) off() int {
	if r.IsNil() {
		return -1
	}
	return int(r.Get(0))
}
