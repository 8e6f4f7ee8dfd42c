package layer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liulanzheng/overlaybd/back"
)

func TestRWWriteReadRoundTrip(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 1<<20, false, nil)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB}, 512)
	_, err = rw.Pwrite(payload, 1024)
	require.NoError(t, err)

	got := make([]byte, 512)
	_, err = rw.Pread(got, 1024)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRWReadGapIsZeroFilled(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 1<<20, false, nil)
	require.NoError(t, err)

	got := make([]byte, 512)
	for i := range got {
		got[i] = 0xFF
	}
	_, err = rw.Pread(got, 4096)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 512), got)
}

func TestRWOutOfBoundsWriteFails(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 1024, false, nil)
	require.NoError(t, err)

	_, err = rw.Pwrite(make([]byte, 512), 900)
	assert.Error(t, err)
}

func TestRWSparseWriteAtLogicalOffset(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 1<<20, true, nil)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x11}, 512)
	_, err = rw.Pwrite(payload, 2048)
	require.NoError(t, err)

	got := make([]byte, 512)
	_, err = rw.Pread(got, 2048)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Sparse writes land at HeaderSize+off in the physical file.
	direct := make([]byte, 512)
	_, err = data.ReadAt(direct, HeaderSize+2048)
	require.NoError(t, err)
	assert.Equal(t, payload, direct)
}

func TestRWCloseSealTwiceFails(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 4096, false, nil)
	require.NoError(t, err)

	_, err = rw.CloseSeal()
	require.NoError(t, err)

	_, err = rw.CloseSeal()
	assert.Error(t, err)
}

func TestRWWriteAfterSealFails(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 4096, false, nil)
	require.NoError(t, err)

	_, err = rw.CloseSeal()
	require.NoError(t, err)

	_, err = rw.Pwrite([]byte{1}, 0)
	assert.Error(t, err)
}
