package format

import (
	"bytes"
	"fmt"
	"time"

	"github.com/joshuapare/tlsfkit/internal/buf"
)

// HeapHeader captures the fixed fields of a heap file header. See the
// Heap* offsets for the layout.
type HeapHeader struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	Version           uint32
	LastWriteRaw      uint64
	ArenaLen          uint64
	StateLen          uint32
	CheckSum          uint32
}

// Clean reports whether the last writer committed: both sequence numbers
// match.
func (h HeapHeader) Clean() bool {
	return h.PrimarySequence == h.SecondarySequence
}

// LastWrite returns the decoded last write time.
func (h HeapHeader) LastWrite() time.Time {
	return StampToTime(h.LastWriteRaw)
}

// ParseHeapHeader validates the signature and extracts the fixed fields of a
// heap file header. It does not verify the checksum.
func ParseHeapHeader(b []byte) (HeapHeader, error) {
	if len(b) < HeapStateOffset {
		return HeapHeader{}, fmt.Errorf("heap header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:HeapSignatureSize], HeapSignature) {
		return HeapHeader{}, fmt.Errorf("heap header: %w", ErrSignatureMismatch)
	}
	return HeapHeader{
		PrimarySequence:   ReadU32(b, HeapPrimarySeqOffset),
		SecondarySequence: ReadU32(b, HeapSecondarySeqOffset),
		Version:           ReadU32(b, HeapVersionOffset),
		LastWriteRaw:      ReadU64(b, HeapTimeStampOffset),
		ArenaLen:          ReadU64(b, HeapArenaLenOffset),
		StateLen:          ReadU32(b, HeapStateLenOffset),
		CheckSum:          ReadU32(b, HeapCheckSumOffset),
	}, nil
}

// HeapState returns the control block stored in header b.
func HeapState(b []byte, h HeapHeader) ([]byte, error) {
	if h.StateLen > HeapMaxStateSize {
		return nil, fmt.Errorf("heap header: control block of %d bytes: %w", h.StateLen, ErrTruncated)
	}
	state, ok := buf.Slice(b, HeapStateOffset, int(h.StateLen))
	if !ok {
		return nil, fmt.Errorf("heap header: %w", ErrTruncated)
	}
	return state, nil
}

// HeapChecksum computes the header checksum: the XOR of every dword from
// the start of the header to the end of its control block, the checksum
// field itself excluded. stateLen is rounded up to a whole dword.
func HeapChecksum(b []byte, stateLen int) uint32 {
	end := HeapStateOffset + (stateLen+DWORDSize-1)/DWORDSize*DWORDSize
	if end > len(b) {
		return 0
	}

	var sum uint32
	for off := 0; off < end; off += DWORDSize {
		if off == HeapCheckSumOffset {
			continue
		}
		sum ^= ReadU32(b, off)
	}
	return sum
}
