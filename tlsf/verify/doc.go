// Package verify provides validation functions for TLSF heaps.
//
// # Overview
//
// The checks read a heap through the allocator's diagnostic walk and its free
// list check. They never modify the heap and report the first violation as a
// *ValidationError.
//
// Validation categories:
//   - Pool layout: alignment of the block span, minimum size, disjoint pools
//   - Block chain: blocks tile each pool, boundary tags, merged free blocks
//   - Free lists: bitmap bits, bucket membership, list links
//
// # Quick Start
//
//	if err := verify.AllInvariants(a); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// Allocation ranges handed out by a workload can be checked with NoOverlap,
// and Dump writes the whole block layout as JSON for offline inspection.
package verify
