package layer

import (
	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/lsmlog"
	"github.com/liulanzheng/overlaybd/segidx"
)

// RO is an immutable read-only layer (§3.4, §4.3): a data file, a flat
// Index, a virtual size, and a UUID.
type RO struct {
	data  back.File
	index *segidx.Index
	vsize int64
	uuid  [16]byte
	log   *lsmlog.Logger
}

func newRO(data back.File, index *segidx.Index, vsize int64, uuid [16]byte, log *lsmlog.Logger) *RO {
	return &RO{data: data, index: index, vsize: vsize, uuid: uuid, log: log}
}

// Open reads an RO layer's trailer and index table from data and
// returns a ready-to-read RO. The trailer sits at a fixed, known
// distance from the end of the file, so no header scan is required to
// locate it (§6.1).
func Open(data back.File, log *lsmlog.Logger) (*RO, error) {
	if log == nil {
		log = lsmlog.Discard
	}

	size, err := data.Size()
	if err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "stat")
	}
	if size < TrailerSize {
		return nil, lsmerr.New(lsmerr.KindFormat, "file too small to be a layer: %d bytes", size)
	}

	tb := make([]byte, TrailerSize)
	if _, err := data.ReadAt(tb, size-TrailerSize); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "read trailer")
	}
	trailer, err := DecodeTrailer(tb)
	if err != nil {
		return nil, err
	}

	ib := make([]byte, trailer.IndexLength)
	if _, err := data.ReadAt(ib, trailer.IndexOffset); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "read index table")
	}
	entries, err := DecodeIndex(ib, 0)
	if err != nil {
		return nil, err
	}

	return newRO(data, segidx.NewIndex(entries), trailer.Vsize, trailer.UUID, log), nil
}

// Index returns the flat, read-only index (§4.3 "index()").
func (f *RO) Index() *segidx.Index { return f.index }

func (f *RO) VSize() int64        { return f.vsize }
func (f *RO) UUID() [16]byte      { return f.uuid }
func (f *RO) DataFile() back.File { return f.data }

// DataStat reports the sum of non-zeroed mapping lengths (§4.3
// "data_stat() → { valid_data_size }").
func (f *RO) DataStat() (validDataSize int64) {
	for _, e := range f.index.Entries() {
		if !e.Zeroed {
			validDataSize += e.Length
		}
	}
	return validDataSize
}

// Pread reads n bytes at logical offset off (§4.3 "same as RW,
// index-driven").
func (f *RO) Pread(buf []byte, off int64) (int, error) {
	q := segidx.Segment{Offset: off, Length: int64(len(buf))}
	mappings := f.index.Lookup(q)
	err := FillFromMappings(buf, q, mappings, func(segidx.SegmentMapping) Source {
		return f.data
	})
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Commit on an RO view always fails: committing/sealing is a
// writable-layer-only operation (§4.3 "close_seal and commit on an RO
// view must fail with a distinguished error").
func (f *RO) Commit(back.File) error { return lsmerr.ErrNotSupported }

// CloseSeal on an RO view always fails, for the same reason as Commit.
func (f *RO) CloseSeal() (*RO, error) { return nil, lsmerr.ErrNotSupported }

// Close delegates to the underlying data file.
func (f *RO) Close() error { return f.data.Close() }
