package tlsf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/internal/format"
)

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func Test_Reallocate_GrowInPlace(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	ref, buf, err := a.Allocate(100, 8)
	require.NoError(t, err)
	fill(buf, 0x11)

	nref, nbuf, err := a.Reallocate(ref, 1000, 8)
	require.NoError(t, err)
	require.Equal(t, ref, nref, "free successor absorbed")
	require.Len(t, nbuf, 1000)
	require.Equal(t, bytes.Repeat([]byte{0x11}, 100), nbuf[:100])
	require.Equal(t, 1, a.Stats().ReallocInPlace)
	require.Zero(t, a.Stats().ReallocMoved)
	requireConsistent(t, a)
}

func Test_Reallocate_GrowExactFit(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	r1, _, err := a.Allocate(100, 1) // 128-byte block
	require.NoError(t, err)
	r2, _, err := a.Allocate(100, 1)
	require.NoError(t, err)
	_, _, err = a.Allocate(100, 1) // keeps r2's block from merging with the rest
	require.NoError(t, err)
	a.Deallocate(r2, 1)

	nref, _, err := a.Reallocate(r1, 240, 1) // 256-byte block
	require.NoError(t, err)
	require.Equal(t, r1, nref)
	require.Equal(t, 256-format.UsedHeaderSize, a.SizeOfAllocation(r1, 1))
	requireConsistent(t, a)
}

func Test_Reallocate_Move(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	ref, buf, err := a.Allocate(100, 16)
	require.NoError(t, err)
	fill(buf, 0x22)
	_, _, err = a.Allocate(8, 16) // used successor blocks in-place growth
	require.NoError(t, err)

	nref, nbuf, err := a.Reallocate(ref, 5000, 16)
	require.NoError(t, err)
	require.NotEqual(t, ref, nref)
	require.Equal(t, bytes.Repeat([]byte{0x22}, 100), nbuf[:100])
	require.Equal(t, 1, a.Stats().ReallocMoved)
	requireConsistent(t, a)

	// The old block went back to the free lists.
	again, _, err := a.Allocate(100, 16)
	require.NoError(t, err)
	require.Equal(t, ref, again)
}

func Test_Reallocate_MoveKeepsAlignment(t *testing.T) {
	a, arena := newDefaultHeap(t, 1<<18)

	ref, buf, err := a.Allocate(64, 256)
	require.NoError(t, err)
	fill(buf, 0x33)
	_, _, err = a.Allocate(8, 1)
	require.NoError(t, err)

	nref, nbuf, err := a.Reallocate(ref, 4096, 256)
	require.NoError(t, err)
	require.Zero(t, (addrOf(arena)+uintptr(nref))%256)
	require.Equal(t, bytes.Repeat([]byte{0x33}, 64), nbuf[:64])
	a.Deallocate(nref, 256)
	requireConsistent(t, a)
}

func Test_Reallocate_Shrink(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	ref, buf, err := a.Allocate(1000, 8)
	require.NoError(t, err)
	fill(buf, 0x44)
	_, _, err = a.Allocate(8, 8) // used successor: tail cannot merge forward
	require.NoError(t, err)
	free := a.Stats().FreeBlocks

	nref, nbuf, err := a.Reallocate(ref, 100, 8)
	require.NoError(t, err)
	require.Equal(t, ref, nref)
	require.Equal(t, bytes.Repeat([]byte{0x44}, 100), nbuf)
	require.Equal(t, free+1, a.Stats().FreeBlocks, "tail became its own free block")
	requireConsistent(t, a)

	// Same block size: nothing to split.
	splits := a.Stats().SplitCount
	_, _, err = a.Reallocate(ref, 101, 8)
	require.NoError(t, err)
	require.Equal(t, splits, a.Stats().SplitCount)
}

func Test_Reallocate_FailureKeepsOriginal(t *testing.T) {
	a, _ := newDefaultHeap(t, 4096)

	ref, buf, err := a.Allocate(100, 8)
	require.NoError(t, err)
	fill(buf, 0x55)
	_, _, err = a.Allocate(8, 8)
	require.NoError(t, err)
	before := collectBlocks(a)

	_, _, err = a.Reallocate(ref, 1<<20, 8)
	require.ErrorIs(t, err, ErrNoSpace)
	require.Equal(t, before, collectBlocks(a))
	require.Equal(t, bytes.Repeat([]byte{0x55}, 100), a.Bytes(ref, 100))

	_, _, err = a.Reallocate(ref, -1, 8)
	require.ErrorIs(t, err, ErrBadSize)
	requireConsistent(t, a)
	a.Deallocate(ref, 8)
	requireConsistent(t, a)
}
