//go:build unix

package heapfile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/heapfile"
	"github.com/joshuapare/tlsfkit/internal/format"
)

func TestInspect_ReadsCommittedState(t *testing.T) {
	path := heapPath(t)
	f, err := heapfile.Create(path, 1<<18, nil)
	require.NoError(t, err)
	a := f.Allocator()
	var refs []int
	for i := range 6 {
		ref, _, err := a.Allocate(200*(i+1), 16)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	a.Deallocate(refs[3], 16)
	want := blocks(a)
	wantFree := a.Stats().FreeBytes
	require.NoError(t, f.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := heapfile.Inspect(path)
	require.NoError(t, err)
	require.True(t, s.Header.Clean())
	require.NoError(t, s.Verify())
	require.Equal(t, wantFree, s.Stats().FreeBytes)
	require.Zero(t, s.Stats().AllocCalls)
	require.Len(t, s.Pools(), len(want))

	var out bytes.Buffer
	require.NoError(t, s.Dump(&out))
	var dump struct {
		Pools []struct {
			Blocks []struct {
				Off int `json:"off"`
			} `json:"blocks"`
		} `json:"pools"`
	}
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &dump))
	require.Len(t, dump.Pools, len(want))
	require.Len(t, dump.Pools[0].Blocks, len(want[0]))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after, "inspecting leaves the file untouched")

	g, err := heapfile.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, g.Close())
}

func TestInspect_OpenHeap(t *testing.T) {
	path := heapPath(t)
	f, err := heapfile.Create(path, 65536, nil)
	require.NoError(t, err)
	defer f.Close()

	s, err := heapfile.Inspect(path)
	require.NoError(t, err)
	defer s.Close()
	require.False(t, s.Header.Clean(), "the heap is still open")
	require.NoError(t, s.Verify())
	require.Equal(t, 1, s.Stats().FreeBlocks)
}

func TestInspect_Errors(t *testing.T) {
	_, err := heapfile.Inspect(filepath.Join(t.TempDir(), "missing.heap"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := heapPath(t)
	f, err := heapfile.Create(path, 65536, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[format.HeapStateOffset+format.StateHeaderSize] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = heapfile.Inspect(path)
	require.ErrorIs(t, err, heapfile.ErrChecksum)

	empty := filepath.Join(t.TempDir(), "empty.heap")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = heapfile.Inspect(empty)
	require.ErrorIs(t, err, format.ErrTruncated)
}
