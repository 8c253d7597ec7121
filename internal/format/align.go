package format

// Alignment utilities. All alignments are powers of two.

// AlignGranularity returns n aligned up to the next Granularity boundary.
//
// Example:
//
//	AlignGranularity(1)  = 32
//	AlignGranularity(32) = 32
//	AlignGranularity(33) = 64
func AlignGranularity(n int) int {
	return (n + GranularityMask) &^ GranularityMask
}

// AlignDownGranularity returns n aligned down to the previous Granularity boundary.
func AlignDownGranularity(n int) int {
	return n &^ GranularityMask
}

// AlignUp returns n aligned up to align, which must be a power of two.
func AlignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
