package tlsf

import (
	"math/bits"
	"unsafe"
)

// BitmapWord is an unsigned integer usable as an occupancy bitmap. Its width
// bounds FLLen (first level) or SLLen (second level).
type BitmapWord interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func bitWidth[W BitmapWord]() int {
	var w W
	return int(unsafe.Sizeof(w)) * 8
}

// index is the two-level occupancy bitmap. Bit sl of second[fl] is set iff
// bucket (fl, sl) holds at least one free block; bit fl of first is set iff
// second[fl] is non-zero.
type index[FL, SL BitmapWord] struct {
	first  FL
	second []SL
}

func newIndex[FL, SL BitmapWord](flLen int) index[FL, SL] {
	return index[FL, SL]{second: make([]SL, flLen)}
}

func (x *index[FL, SL]) set(fl, sl int) {
	x.second[fl] |= SL(1) << sl
	x.first |= FL(1) << fl
}

func (x *index[FL, SL]) clear(fl, sl int) {
	x.second[fl] &^= SL(1) << sl
	if x.second[fl] == 0 {
		x.first &^= FL(1) << fl
	}
}

func (x *index[FL, SL]) has(fl, sl int) bool {
	return x.second[fl]&(SL(1)<<sl) != 0
}

// search returns the first non-empty bucket at or above (fl, sl): first the
// rest of class fl, then the lowest set bit of the next non-empty class.
func (x *index[FL, SL]) search(fl, sl int) (int, int, bool) {
	if fl >= len(x.second) {
		return 0, 0, false
	}
	if m := uint64(x.second[fl]) & (^uint64(0) << sl); m != 0 {
		return fl, bits.TrailingZeros64(m), true
	}
	if fl+1 >= 64 {
		return 0, 0, false
	}
	m := uint64(x.first) & (^uint64(0) << (fl + 1))
	if m == 0 {
		return 0, 0, false
	}
	fl = bits.TrailingZeros64(m)
	return fl, bits.TrailingZeros64(uint64(x.second[fl])), true
}
