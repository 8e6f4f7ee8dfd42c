package stacked

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/layer"
)

// TestMergeFilesROMatchesStackedReads is §8.2 #6 narrowed to a small,
// deterministic layer set: for every logical offset, bytes read from
// the merged RO file must equal bytes read through the original stack.
func TestMergeFilesROMatchesStackedReads(t *testing.T) {
	const vsize = 1 << 16

	oldest := sealedRO(t, vsize, map[int64][]byte{
		0:     bytes.Repeat([]byte{1}, 4096),
		20480: bytes.Repeat([]byte{2}, 4096),
	})
	middle := sealedRO(t, vsize, map[int64][]byte{
		4096: bytes.Repeat([]byte{3}, 4096),
	})
	newest := sealedRO(t, vsize, map[int64][]byte{
		0: bytes.Repeat([]byte{4}, 512), // partially shadows oldest's first write
	})

	ros := []*layer.RO{newest, middle, oldest} // newest first

	out := back.NewMemFile()
	require.NoError(t, MergeFilesRO(ros, out))

	merged, err := layer.Open(out, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(vsize), merged.VSize())

	stackedUpper, err := layer.NewRW(back.NewMemFile(), vsize, false, nil)
	require.NoError(t, err)
	sf := StackFiles(stackedUpper, ros, vsize, false)

	for _, off := range []int64{0, 512, 4096, 20480} {
		want := make([]byte, 512)
		_, err := sf.Pread(want, off)
		require.NoError(t, err)

		got := make([]byte, 512)
		_, err = merged.Pread(got, off)
		require.NoError(t, err)

		assert.Equal(t, want, got, "mismatch at offset %d", off)
	}
}

func TestMergeFilesROMismatchedVSizeFails(t *testing.T) {
	a := sealedRO(t, 4096, nil)
	b := sealedRO(t, 8192, nil)

	err := MergeFilesRO([]*layer.RO{a, b}, back.NewMemFile())
	assert.Error(t, err)
}

func TestMergeFilesRORequiresAtLeastOneLayer(t *testing.T) {
	err := MergeFilesRO(nil, back.NewMemFile())
	assert.Error(t, err)
}
