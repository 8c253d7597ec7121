package tlsf

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/internal/format"
)

// recordingTracker records every dirty range it is told about.
type recordingTracker struct {
	ranges [][2]int
}

func (r *recordingTracker) Add(off, length int) {
	r.ranges = append(r.ranges, [2]int{off, length})
}

// covers reports whether [off, off+n) lies inside one recorded range.
func (r *recordingTracker) covers(off, n int) bool {
	for _, rg := range r.ranges {
		if off >= rg[0] && off+n <= rg[0]+rg[1] {
			return true
		}
	}
	return false
}

// newHeap creates an allocator of the given widths over a fresh arena that
// is registered as pools in full.
func newHeap[FL, SL BitmapWord](t testing.TB, size int, cfg *Config) (*TLSF[FL, SL], []byte) {
	t.Helper()
	arena := make([]byte, size)
	a, err := New[FL, SL](arena, nil, cfg)
	require.NoError(t, err)
	_, err = a.AddPool(arena)
	require.NoError(t, err)
	return a, arena
}

func newDefaultHeap(t testing.TB, size int) (*Default, []byte) {
	t.Helper()
	return newHeap[uint32, uint16](t, size, nil)
}

func collectBlocks[FL, SL BitmapWord](a *TLSF[FL, SL]) [][]BlockInfo {
	var out [][]BlockInfo
	for _, p := range a.Pools() {
		out = append(out, slices.Collect(a.IterBlocks(p)))
	}
	return out
}

// requireConsistent checks the free lists and that every pool is tiled by
// its blocks with correct boundary tags and no unmerged free neighbors.
func requireConsistent[FL, SL BitmapWord](t testing.TB, a *TLSF[FL, SL]) {
	t.Helper()
	require.NoError(t, a.CheckFreeLists())
	for _, p := range a.Pools() {
		expect, prev, prevFree := p.Off, -1, false
		for b := range a.IterBlocks(p) {
			require.Equal(t, expect, b.Off)
			require.Zero(t, b.Size%format.Granularity)
			require.Equal(t, prev, b.PrevPhys, "boundary tag of block %d", b.Off)
			require.False(t, b.Free && prevFree, "unmerged free blocks at %d", b.Off)
			expect, prev, prevFree = b.Off+b.Size, b.Off, b.Free
		}
		require.Equal(t, p.End()-format.SentinelSize, expect, "pool %d not tiled", p.Off)
	}
}

// requireSingleFreeBlockPerPool asserts that every pool is one free block.
func requireSingleFreeBlockPerPool[FL, SL BitmapWord](t testing.TB, a *TLSF[FL, SL]) {
	t.Helper()
	for i, blocks := range collectBlocks(a) {
		require.Len(t, blocks, 1, "pool %d", i)
		require.True(t, blocks[0].Free, "pool %d", i)
		require.Equal(t, a.Pools()[i].Len-format.SentinelSize, blocks[0].Size)
	}
}

type liveAlloc struct {
	ref   Ref
	size  int
	align int
	tag   byte
}

var workloadAligns = []int{1, 8, 16, 32, 64, 256}

// runWorkload performs steps random allocate, reallocate and deallocate calls
// of up to maxSize bytes, checking that every allocation keeps its contents
// and alignment. Failed requests are expected when the heap is full. All
// allocations are freed at the end.
func runWorkload[FL, SL BitmapWord](t testing.TB, a *TLSF[FL, SL], seed int64, steps, maxSize int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var live []liveAlloc

	check := func(l liveAlloc) {
		t.Helper()
		require.Zero(t, (a.abs(l.ref))%uintptr(l.align), "ref %d align %d", l.ref, l.align)
		for i, c := range a.Bytes(l.ref, l.size) {
			if c != l.tag {
				require.Failf(t, "allocation clobbered", "ref %d byte %d = %#x, want %#x", l.ref, i, c, l.tag)
			}
		}
	}

	for step := range steps {
		switch op := rng.Intn(10); {
		case op < 5 || len(live) == 0:
			l := liveAlloc{
				size:  rng.Intn(maxSize + 1),
				align: workloadAligns[rng.Intn(len(workloadAligns))],
				tag:   byte(step),
			}
			ref, b, err := a.Allocate(l.size, l.align)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace)
				continue
			}
			l.ref = ref
			fill(b, l.tag)
			live = append(live, l)
		case op < 7:
			i := rng.Intn(len(live))
			l := live[i]
			check(l)
			size := rng.Intn(maxSize + 1)
			ref, b, err := a.Reallocate(l.ref, size, l.align)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace)
				check(l)
				continue
			}
			for _, c := range b[:min(size, l.size)] {
				require.Equal(t, l.tag, c)
			}
			l.ref, l.size = ref, size
			fill(b, l.tag)
			live[i] = l
		default:
			i := rng.Intn(len(live))
			check(live[i])
			a.Deallocate(live[i].ref, live[i].align)
			live = slices.Delete(live, i, i+1)
		}
		if step%50 == 0 {
			requireConsistent(t, a)
		}
	}

	for _, l := range live {
		check(l)
	}
	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
	for _, l := range live {
		a.Deallocate(l.ref, l.align)
	}
	requireConsistent(t, a)
	requireSingleFreeBlockPerPool(t, a)
}
