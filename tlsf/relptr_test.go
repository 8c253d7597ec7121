package tlsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_RelPtr_RoundTrip(t *testing.T) {
	origins := []uintptr{0, 0x1000, 0x7fff_0000_1000}
	distances := []uintptr{0, 1, 32, 4096, 1 << 40}

	for _, o := range origins {
		for _, d := range distances {
			r := NewRelPtr(o+d, o)
			require.False(t, r.IsNil(), "origin %#x distance %#x", o, d)
			require.Equal(t, o+d, r.Get(o))
		}
	}
}

func Test_RelPtr_TargetBeforeOrigin(t *testing.T) {
	origins := []uintptr{0x1000, 0x7fff_0000_1000}
	back := []uintptr{2, 32, 4096}

	for _, o := range origins {
		for _, d := range back {
			r := NewRelPtr(o-d, o)
			require.False(t, r.IsNil(), "origin %#x back %#x", o, d)
			require.Equal(t, o-d, r.Get(o))
		}
	}

	r := NewRelPtr(0, 0x1000)
	require.Equal(t, uintptr(0x2000), r.Get(0x3000))

	require.True(t, NewRelPtr(0xfff, 0x1000).IsNil())
}

func Test_RelPtr_SurvivesMove(t *testing.T) {
	arena := make([]byte, 256)
	other := make([]byte, 256)

	r := NewRelPtr(addrOf(arena)+96, addrOf(arena))
	require.Equal(t, addrOf(other)+96, r.Get(addrOf(other)))
}

func Test_RelPtr_ZeroIsNil(t *testing.T) {
	var r RelPtr
	require.True(t, r.IsNil())
	require.Equal(t, -1, r.off())

	require.Equal(t, 0, relTo(0).off())
	require.Equal(t, 4064, relTo(4064).off())
}
