// Package format holds the in-pool layout of the allocator: block header
// fields, size-word flags and the encoding of the persisted control block.
// Everything is little-endian and word sized so a heap image can be copied
// between machines of the same word width and mapped at any address.
package format

var (
	// StateSignature is the four-byte signature at the start of an encoded
	// control block.
	StateSignature = []byte{'T', 'L', 'S', 'F'}
)

const (
	// WordSize is the size of every header field in bytes.
	WordSize = 8

	// Granularity is the minimum block size and the alignment of every block
	// start: four words, enough for a free block header.
	Granularity = 4 * WordSize

	// GranularityLog2 is log2(Granularity).
	GranularityLog2 = 5

	// GranularityMask is the bitmask used for aligning to Granularity.
	GranularityMask = Granularity - 1

	// UsedHeaderSize is the header kept in front of a used block's payload:
	// the size word and the previous-physical link.
	UsedHeaderSize = 2 * WordSize

	// SentinelSize is the size of the tail sentinel closing every pool.
	SentinelSize = UsedHeaderSize

	// PadSize is the back link stored right before an over-aligned payload.
	PadSize = WordSize
)

// Block header field offsets, relative to the block start.
//
//	Offset  Size  Description
//	0x00    8     size | flags
//	0x08    8     previous physical block (relative link, 0 = pool head)
//	0x10    8     next free block in bucket (free blocks only)
//	0x18    8     previous free block in bucket (free blocks only)
const (
	BlockSizeOffset     = 0x00
	BlockPrevPhysOffset = 0x08
	FreeNextOffset      = 0x10
	FreePrevOffset      = 0x18
)

// Size word flags. Block sizes are multiples of Granularity so the low bits
// are free to carry state.
const (
	SizeUsed       uint64 = 1 << 0
	SizeLastInPool uint64 = 1 << 1
	SizeFlagsMask  uint64 = GranularityMask
	SizeMask              = ^SizeFlagsMask
)

// Control block layout (see tlsf.(*TLSF).MarshalBinary).
const (
	StateSignatureOffset = 0x00 // 4 bytes, "TLSF"
	StateVersionOffset   = 0x04 // u32
	StateFLLenOffset     = 0x08 // u32
	StateSLLenOffset     = 0x0C // u32
	StateFLBitsOffset    = 0x10 // u32, width of the first-level bitmap
	StateSLBitsOffset    = 0x14 // u32, width of a second-level bitmap
	StateMaxAlignOffset  = 0x18 // u64, largest alignment served so far
	StateBaseModOffset   = 0x20 // u64, arena base modulo max alignment
	StateFLBitmapOffset  = 0x28 // u64
	StatePoolCountOffset = 0x30 // u64
	StateHeaderSize      = 0x38 // fixed part; followed by SL bitmaps, heads, pools

	StateVersion = 1

	// StatePoolRecordSize is one (offset, length) pair.
	StatePoolRecordSize = 2 * WordSize
)

var (
	// HeapSignature is the four-byte signature at the start of every heap file.
	HeapSignature = []byte{'T', 'L', 'H', 'P'}
)

// Heap file header layout. The arena follows the header.
//
//	Offset  Size  Description
//	0x000   4     'T' 'L' 'H' 'P'
//	0x004   4     Primary sequence number
//	0x008   4     Secondary sequence number
//	0x00C   4     Version
//	0x010   8     Last write time (Unix nanoseconds)
//	0x018   8     Arena length
//	0x020   4     Control block length
//	0x024   4     Checksum (XOR of every other dword up to the control block end)
//	0x040   ...   Control block
const (
	HeapSignatureOffset    = 0x000
	HeapSignatureSize      = 4
	HeapPrimarySeqOffset   = 0x004
	HeapSecondarySeqOffset = 0x008
	HeapVersionOffset      = 0x00C
	HeapTimeStampOffset    = 0x010
	HeapArenaLenOffset     = 0x018
	HeapStateLenOffset     = 0x020
	HeapCheckSumOffset     = 0x024
	HeapStateOffset        = 0x040

	// HeapHeaderSize is the space reserved in front of the arena. It is a
	// multiple of every common page size so the arena starts page aligned.
	HeapHeaderSize = 0x10000

	// HeapMaxStateSize is the largest control block the header can hold.
	HeapMaxStateSize = HeapHeaderSize - HeapStateOffset

	HeapVersion = 1

	// DWORDSize is the unit of the header checksum.
	DWORDSize = 4
)
