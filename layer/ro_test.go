package layer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/lsmerr"
)

func TestOpenRejectsTooSmallFile(t *testing.T) {
	data := back.NewMemFile()
	require.NoError(t, data.Truncate(10))
	_, err := Open(data, nil)
	assert.True(t, lsmerr.Is(err, lsmerr.KindFormat))
}

func TestRODataStatSumsNonZeroedLength(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 1<<20, false, nil)
	require.NoError(t, err)

	_, err = rw.Pwrite(bytes.Repeat([]byte{1}, 4096), 0)
	require.NoError(t, err)

	ro, err := rw.CloseSeal()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), ro.DataStat())
}

func TestROCommitAndCloseSealAlwaysFail(t *testing.T) {
	data := back.NewMemFile()
	rw, err := NewRW(data, 4096, false, nil)
	require.NoError(t, err)
	ro, err := rw.CloseSeal()
	require.NoError(t, err)

	err = ro.Commit(back.NewMemFile())
	assert.ErrorIs(t, err, lsmerr.ErrNotSupported)

	_, err = ro.CloseSeal()
	assert.ErrorIs(t, err, lsmerr.ErrNotSupported)
}
