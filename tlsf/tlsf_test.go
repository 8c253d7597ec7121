package tlsf

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/tlsfkit/internal/format"
)

func Test_New_ValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"fits", Config{FLLen: 8, SLLen: 8}, true},
		{"fl too wide", Config{FLLen: 9, SLLen: 8}, false},
		{"sl too wide", Config{FLLen: 8, SLLen: 16}, false},
		{"sl not pow2", Config{FLLen: 8, SLLen: 6}, false},
		{"fl zero", Config{FLLen: 0, SLLen: 4}, false},
		{"sl zero", Config{FLLen: 4, SLLen: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New[uint8, uint8](nil, nil, &tc.cfg)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrBadConfig)
		})
	}

	_, err := New[uint64, uint64](nil, nil, &ConfigWide)
	require.NoError(t, err)
	_, err = New[uint32, uint16](nil, nil, &ConfigWide)
	require.ErrorIs(t, err, ErrBadConfig)

	a, err := New[uint32, uint16](nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig, a.Config())
}

// One byte in, one byte out: the pool must be a single free block again.
func Test_Scenario_Minimal(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)
	before := collectBlocks(a)
	requireSingleFreeBlockPerPool(t, a)

	ref, buf, err := a.Allocate(1, 1)
	require.NoError(t, err)
	require.Len(t, buf, 1)
	buf[0] = 0xAA
	requireConsistent(t, a)

	a.Deallocate(ref, 1)
	requireConsistent(t, a)
	requireSingleFreeBlockPerPool(t, a)
	require.Equal(t, before, collectBlocks(a))
}

// allocate, deallocate, allocate, allocate - all zero sized.
func Test_Scenario_ADAA(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	ref, _, err := a.Allocate(0, 1)
	require.NoError(t, err)
	a.Deallocate(ref, 1)

	r1, b1, err := a.Allocate(0, 1)
	require.NoError(t, err)
	r2, b2, err := a.Allocate(0, 1)
	require.NoError(t, err)
	require.Empty(t, b1)
	require.Empty(t, b2)
	require.NotEqual(t, r1, r2)
	requireConsistent(t, a)
}

func Test_Scenario_AADD(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)

	r1, _, err := a.Allocate(0, 1)
	require.NoError(t, err)
	r2, _, err := a.Allocate(0, 1)
	require.NoError(t, err)
	require.NotEqual(t, r1, r2)

	a.Deallocate(r1, 1)
	requireConsistent(t, a)
	a.Deallocate(r2, 1)
	requireConsistent(t, a)
	requireSingleFreeBlockPerPool(t, a)
}

// allocate 17, reallocate to 0 in place, allocate 0.
func Test_Scenario_ARA(t *testing.T) {
	a, _ := newDefaultHeap(t, 65536)
	free0 := a.Stats().FreeBytes

	ref, _, err := a.Allocate(17, 1)
	require.NoError(t, err)
	require.Equal(t, free0-2*format.Granularity, a.Stats().FreeBytes)

	nref, buf, err := a.Reallocate(ref, 0, 1)
	require.NoError(t, err)
	require.Equal(t, ref, nref, "shrink happens in place")
	require.Empty(t, buf)
	require.Equal(t, free0-format.Granularity, a.Stats().FreeBytes, "tail reclaimed")

	r2, _, err := a.Allocate(0, 1)
	require.NoError(t, err)
	require.NotEqual(t, ref, r2)
	require.Equal(t, free0-2*format.Granularity, a.Stats().FreeBytes)
	require.Equal(t, 1, a.Stats().FreeBlocks)
	requireConsistent(t, a)
}

func Test_Allocate_ZeroSizeDistinct(t *testing.T) {
	a, _ := newDefaultHeap(t, 8192)

	seen := map[Ref]bool{}
	var refs []Ref
	for range 16 {
		ref, buf, err := a.Allocate(0, 1)
		require.NoError(t, err)
		require.Empty(t, buf)
		require.False(t, seen[ref], "zero-size allocations must not alias")
		seen[ref] = true
		refs = append(refs, ref)
	}
	for _, ref := range refs {
		a.Deallocate(ref, 1)
		requireConsistent(t, a)
	}
	requireSingleFreeBlockPerPool(t, a)
}

func Test_Allocate_Alignment(t *testing.T) {
	a, arena := newDefaultHeap(t, 1<<20)
	base := addrOf(arena)

	type live struct{ ref, align int }
	var all []live
	for align := 1; align <= 8192; align <<= 1 {
		for _, size := range []int{0, 1, 31, 100} {
			ref, buf, err := a.Allocate(size, align)
			require.NoError(t, err, "size %d align %d", size, align)
			require.Zero(t, (base+uintptr(ref))%uintptr(align), "size %d align %d", size, align)
			require.GreaterOrEqual(t, a.SizeOfAllocation(ref, align), size)
			for i := range buf {
				buf[i] = byte(align)
			}
			all = append(all, live{ref, align})
		}
	}
	requireConsistent(t, a)

	for _, l := range all {
		a.Deallocate(l.ref, l.align)
	}
	requireConsistent(t, a)
	requireSingleFreeBlockPerPool(t, a)
}

func Test_Allocate_BadArguments(t *testing.T) {
	a, _ := newDefaultHeap(t, 4096)

	_, _, err := a.Allocate(-1, 1)
	require.ErrorIs(t, err, ErrBadSize)
	for _, align := range []int{0, -8, 3, 24} {
		_, _, err = a.Allocate(8, align)
		require.ErrorIs(t, err, ErrBadAlign, "align %d", align)
	}
	require.Equal(t, 5, a.Stats().AllocFailures)
}

func Test_Allocate_NoSpace(t *testing.T) {
	a, _ := newDefaultHeap(t, 4096)

	_, _, err := a.Allocate(8192, 1)
	require.ErrorIs(t, err, ErrNoSpace)

	// Larger than any class can describe.
	_, _, err = a.Allocate(1<<40, 1)
	require.ErrorIs(t, err, ErrNoSpace)

	// Overflows the size computation itself.
	_, _, err = a.Allocate(maxInt-4, 1)
	require.ErrorIs(t, err, ErrNoSpace)

	var refs []Ref
	for {
		ref, _, err := a.Allocate(100, 8)
		if err != nil {
			require.ErrorIs(t, err, ErrNoSpace)
			break
		}
		refs = append(refs, ref)
	}
	require.NotEmpty(t, refs)
	requireConsistent(t, a)

	// Failure left the heap usable.
	a.Deallocate(refs[0], 8)
	_, _, err = a.Allocate(100, 8)
	require.NoError(t, err)
}

func Test_Allocate_DirtyTracking(t *testing.T) {
	arena := make([]byte, 65536)
	dt := &recordingTracker{}
	a, err := New[uint32, uint16](arena, dt, nil)
	require.NoError(t, err)
	_, err = a.AddPool(arena)
	require.NoError(t, err)

	dt.ranges = nil
	ref, _, err := a.Allocate(64, 64)
	require.NoError(t, err)
	b := a.blockOf(ref, 64)
	require.True(t, dt.covers(b, format.WordSize), "size word")
	require.True(t, dt.covers(ref-format.PadSize, format.PadSize), "alignment pad")

	dt.ranges = nil
	a.Deallocate(ref, 64)
	require.True(t, dt.covers(b+format.FreeNextOffset, format.WordSize), "free list link")
	for _, rg := range dt.ranges {
		require.GreaterOrEqual(t, rg[0], 0)
		require.LessOrEqual(t, rg[0]+rg[1], len(arena))
	}
}

func Test_Stats_PrintGrouped(t *testing.T) {
	a, _ := newDefaultHeap(t, 1<<20)
	_, _, err := a.Allocate(1000, 8)
	require.NoError(t, err)

	s := a.Stats()
	require.Equal(t, 1, s.Pools)
	require.Equal(t, s.PoolBytes-format.SentinelSize, s.UsedBytes+s.FreeBytes)
	require.Equal(t, 1, s.AllocCalls)
	require.Equal(t, 1, s.SplitCount)

	var out bytes.Buffer
	a.PrintStats(&out)
	grouped := message.NewPrinter(language.English).Sprintf("%d", s.PoolBytes)
	require.Contains(t, grouped, ",")
	require.Contains(t, out.String(), grouped)
	require.Contains(t, out.String(), "Balanced")
}

func Test_SetLogger(t *testing.T) {
	var out bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	a, _ := newDefaultHeap(t, 4096)
	_, _, err := a.Allocate(1<<20, 1)
	require.True(t, errors.Is(err, ErrNoSpace))
	require.Contains(t, out.String(), "add pool")
	require.Contains(t, out.String(), "allocate failed")
}
