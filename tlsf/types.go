package tlsf

// Ref is the arena offset of an allocation's payload. Unlike the slice
// returned alongside it, a Ref stays meaningful after the arena moves.
type Ref = int

// Pool is one contiguous chunk registered with the allocator, from the start
// of its first block to the end of its tail sentinel.
type Pool struct {
	Off int // Arena offset of the first block
	Len int // Bytes including the tail sentinel
}

// End returns the arena offset one past the tail sentinel.
func (p Pool) End() int { return p.Off + p.Len }

// BlockInfo describes one block visited by IterBlocks.
type BlockInfo struct {
	Off      int  // Arena offset of the block header
	Size     int  // Block size including its header
	Free     bool // Block is on a free list
	PrevPhys int  // Arena offset of the previous physical block, -1 for the pool head
}
