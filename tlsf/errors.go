package tlsf

import "errors"

var (
	// ErrNoSpace indicates that no free block large enough was found, or that
	// the request can never be represented by any size class.
	ErrNoSpace = errors.New("tlsf: no free block large enough")

	// ErrBadSize indicates a negative size or growth amount.
	ErrBadSize = errors.New("tlsf: bad size")

	// ErrBadAlign indicates an alignment that is not a power of two.
	ErrBadAlign = errors.New("tlsf: alignment must be a power of two")

	// ErrBadConfig indicates FLLen/SLLen values the bitmap widths cannot hold.
	ErrBadConfig = errors.New("tlsf: bad configuration")

	// ErrPoolTooSmall indicates a region too small to hold a block and a sentinel.
	ErrPoolTooSmall = errors.New("tlsf: pool region too small")

	// ErrForeignRegion indicates a region outside the arena or overlapping a pool.
	ErrForeignRegion = errors.New("tlsf: region is not part of the arena")

	// ErrMisaligned indicates a relocated arena whose base breaks an alignment
	// already handed out to callers.
	ErrMisaligned = errors.New("tlsf: arena base misaligned")

	// ErrCorrupt indicates free lists or the bitmap index disagree with the pool contents.
	ErrCorrupt = errors.New("tlsf: corrupt heap")

	// ErrBadState indicates an encoded control block that cannot be restored.
	ErrBadState = errors.New("tlsf: bad control block")
)
