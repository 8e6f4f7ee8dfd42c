package back

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.dat")
	f, err := Open(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	payload := []byte("segment payload")
	_, err = f.WriteAt(payload, 100)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = f.ReadAt(got, 100)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(100+len(payload)), size)
}

func TestOSFileTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.dat")
	f, err := Open(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Truncate(4096))
	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
}

func TestOSFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.dat")
	f, err := Open(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, path, f.Name())
}

func TestMemFileWriteReadRoundTrip(t *testing.T) {
	f := NewMemFile()
	payload := []byte("in memory")
	_, err := f.WriteAt(payload, 50)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = f.ReadAt(got, 50)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestMemFileReadPastEndReturnsZero(t *testing.T) {
	f := NewMemFile()
	_, err := f.WriteAt([]byte("x"), 0)
	require.NoError(t, err)

	got := make([]byte, 4)
	n, err := f.ReadAt(got, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemFileTruncateGrowsAndShrinks(t *testing.T) {
	f := NewMemFile()
	_, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(2))
	size, _ := f.Size()
	assert.Equal(t, int64(2), size)

	require.NoError(t, f.Truncate(10))
	size, _ = f.Size()
	assert.Equal(t, int64(10), size)

	got := make([]byte, 10)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, byte('h'), got[0])
	assert.Equal(t, byte(0), got[9])
}
