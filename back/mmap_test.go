package back

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liulanzheng/overlaybd/lsmerr"
)

func TestMmapFileWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapped.dat")
	f, err := Mmap(path, 0, 0o644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Truncate(4096))

	payload := []byte("mmapped segment")
	_, err = f.WriteAt(payload, 10)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = f.ReadAt(got, 10)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestMmapFileWriteOutOfRangeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapped.dat")
	f, err := Mmap(path, 0, 0o644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Truncate(16))
	_, err = f.WriteAt([]byte("too long for this mapping"), 0)
	assert.Error(t, err)
}

func TestMmapFileReadOnlyRejectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapped.dat")
	rw, err := Mmap(path, 0, 0o644)
	require.NoError(t, err)
	require.NoError(t, rw.Truncate(16))
	require.NoError(t, rw.Close())

	roFile, err := os.Open(path)
	require.NoError(t, err)
	ro, err := MmapFromFile(roFile, false)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, lsmerr.ErrNotSupported)
}
