// Package buf contains overflow-checked arithmetic and bounds helpers used
// when computing block sizes and decoding persisted allocator state.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// AddAll sums vs, returning ok = false as soon as a partial sum overflows.
func AddAll(vs ...int) (int, bool) {
	sum := 0
	for _, v := range vs {
		var ok bool
		if sum, ok = AddOverflowSafe(sum, v); !ok {
			return 0, false
		}
	}
	return sum, true
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false
// when the result would overflow int or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckTableBounds validates that count records of recordSize bytes fit in a
// buffer of bufLen bytes starting at offset. Returns the end offset if valid.
//
//	end, err := buf.CheckTableBounds(len(state), off, pools, recordSize)
//	if err != nil {
//	    return fmt.Errorf("pools: %w", err)
//	}
func CheckTableBounds(bufLen, offset, count, recordSize int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	total, ok := MulOverflowSafe(count, recordSize)
	if !ok {
		return 0, fmt.Errorf("table size overflow: %d * %d", count, recordSize)
	}
	end, ok := AddOverflowSafe(offset, total)
	if !ok {
		return 0, fmt.Errorf("table end overflow: %d + %d", offset, total)
	}
	if end > bufLen {
		return 0, fmt.Errorf("table out of bounds: end %d > len %d", end, bufLen)
	}
	return end, nil
}

// Slice returns b[off:off+n] when the range is within bounds.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
