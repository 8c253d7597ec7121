package buf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddOverflowSafe(t *testing.T) {
	sum, ok := AddOverflowSafe(10, 5)
	require.True(t, ok)
	require.Equal(t, 15, sum)

	_, ok = AddOverflowSafe(math.MaxInt, 1)
	require.False(t, ok, "expected overflow when adding to MaxInt")

	_, ok = AddOverflowSafe(math.MinInt, -1)
	require.False(t, ok, "expected underflow when subtracting from MinInt")
}

func TestAddAll(t *testing.T) {
	sum, ok := AddAll(1, 2, 3, 31)
	require.True(t, ok)
	require.Equal(t, 37, sum)

	_, ok = AddAll(math.MaxInt-8, 4, 4, 1)
	require.False(t, ok)
}

func TestMulOverflowSafe(t *testing.T) {
	p, ok := MulOverflowSafe(28*16, 8)
	require.True(t, ok)
	require.Equal(t, 3584, p)

	p, ok = MulOverflowSafe(0, math.MaxInt)
	require.True(t, ok)
	require.Zero(t, p)

	_, ok = MulOverflowSafe(math.MaxInt/2+1, 2)
	require.False(t, ok)

	_, ok = MulOverflowSafe(-1, 2)
	require.False(t, ok)
}

func TestCheckTableBounds(t *testing.T) {
	end, err := CheckTableBounds(100, 20, 5, 16)
	require.NoError(t, err)
	require.Equal(t, 100, end)

	_, err = CheckTableBounds(100, 20, 6, 16)
	require.Error(t, err)

	_, err = CheckTableBounds(100, -1, 1, 16)
	require.Error(t, err)

	_, err = CheckTableBounds(100, 0, math.MaxInt, 16)
	require.Error(t, err)
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	got, ok := Slice(data, 1, 3)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	_, ok = Slice(data, 4, 2)
	require.False(t, ok, "Slice should fail when extending beyond len")
	require.False(t, Has(data, 2, 4))
	require.True(t, Has(data, 2, 1))

	_, ok = Slice(data, -1, 1)
	require.False(t, ok)
	_, ok = Slice(data, 1, -1)
	require.False(t, ok)
}
