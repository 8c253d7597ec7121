package tlsf

import (
	"math/bits"

	"github.com/joshuapare/tlsfkit/internal/format"
)

// classes maps block sizes to (fl, sl) bucket coordinates.
//
// fl is floor(log2(size)) - GranularityLog2. sl is the sli bits right below
// the most significant bit of size, giving SLLen linear steps per power of
// two. When fl + GranularityLog2 < sli the low end of the class is finer
// than Granularity; the rotation below handles both directions.
type classes struct {
	flLen int
	slLen int
	sli   int // log2(slLen)
}

func newClasses(cfg Config) classes {
	return classes{
		flLen: cfg.FLLen,
		slLen: cfg.SLLen,
		sli:   bits.TrailingZeros(uint(cfg.SLLen)),
	}
}

// rotated brings the sli bits below the top bit of size down to bit 0 and
// the top bit itself to bit sli. Bits shifted out at the bottom reappear at
// the top of the word.
func (c classes) rotated(size uint64) (fl int, r uint64) {
	fl = bits.Len64(size) - 1 - format.GranularityLog2
	r = bits.RotateLeft64(size, c.sli-(fl+format.GranularityLog2))
	return fl, r
}

// mapFloor returns the bucket whose class contains size.
func (c classes) mapFloor(size uint64) (int, int, bool) {
	if size < format.Granularity {
		return 0, 0, false
	}
	fl, r := c.rotated(size)
	if fl >= c.flLen {
		return 0, 0, false
	}
	return fl, int(r & uint64(c.slLen-1)), true
}

// mapCeil returns the first bucket whose every block can hold size.
func (c classes) mapCeil(size uint64) (int, int, bool) {
	if size < format.Granularity {
		return 0, 0, false
	}
	fl, r := c.rotated(size)
	sl := int(r & uint64(c.slLen-1))
	// Any bit below the class resolution was rotated above bit sli.
	if r >= uint64(1)<<(c.sli+1) {
		sl++
	}
	fl += sl >> c.sli
	sl &= c.slLen - 1
	if fl >= c.flLen {
		return 0, 0, false
	}
	return fl, sl, true
}

// unmap returns the smallest size in bucket (fl, sl).
func (c classes) unmap(fl, sl int) (uint64, bool) {
	top := fl + format.GranularityLog2
	if top >= 64 {
		return 0, false
	}
	v := uint64(c.slLen | sl)
	if shift := top - c.sli; shift < 0 {
		return v >> -shift, true
	}
	return v << (top - c.sli), true
}

func (c classes) mapCeilAndUnmap(size uint64) (uint64, bool) {
	fl, sl, ok := c.mapCeil(size)
	if !ok {
		return 0, false
	}
	return c.unmap(fl, sl)
}

// maxPoolSize returns the smallest block size no class can hold, ok = false
// when every size fits.
func (c classes) maxPoolSize() (uint64, bool) {
	top := c.flLen + format.GranularityLog2
	if top >= 64 {
		return 0, false
	}
	return uint64(1) << top, true
}

// maxBlockSize is the largest block a pool may hold.
func (c classes) maxBlockSize() int {
	mps, ok := c.maxPoolSize()
	if !ok || mps-format.Granularity > uint64(maxInt) {
		return format.AlignDownGranularity(maxInt)
	}
	return int(mps - format.Granularity)
}

const maxInt = int(^uint(0) >> 1)

// MapFloor returns the bucket whose size class contains size. It fails for
// sizes below Granularity and for sizes at or above MaxPoolSize.
func (t *TLSF[FL, SL]) MapFloor(size uint64) (fl, sl int, ok bool) {
	return t.cls.mapFloor(size)
}

// MapCeil returns the smallest bucket whose every block is at least size
// bytes, rounding up within and across first-level classes.
func (t *TLSF[FL, SL]) MapCeil(size uint64) (fl, sl int, ok bool) {
	return t.cls.mapCeil(size)
}

// MapCeilAndUnmap returns the lower bound of the bucket MapCeil selects: the
// smallest block size guaranteed to satisfy a request of size bytes.
func (t *TLSF[FL, SL]) MapCeilAndUnmap(size uint64) (uint64, bool) {
	return t.cls.mapCeilAndUnmap(size)
}

// MaxPoolSize returns the smallest size that cannot be mapped to a bucket.
// ok is false when every uint64 size maps.
func (t *TLSF[FL, SL]) MaxPoolSize() (uint64, bool) {
	return t.cls.maxPoolSize()
}
