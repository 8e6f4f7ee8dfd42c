package layer

import (
	"sync"

	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/lsmlog"
	"github.com/liulanzheng/overlaybd/segidx"
)

// RW is the writable top layer (§3.4, §4.2): a data file, an Index0,
// a virtual size, and a monotonically increasing append cursor.
//
// Only one goroutine drives pwrite/pread on a given RW at a time in
// this engine's concurrency model (§5 — each stacked file is owned by
// a single scheduler); the mutex below exists to serialize the append
// cursor per §4.2 ("Concurrent pwrite calls are serialized at the
// cursor"), not to make RW generally safe for unsynchronized
// multi-goroutine use.
type RW struct {
	mu sync.Mutex

	data   back.File
	index  *segidx.Index0
	vsize  int64
	cursor int64
	sparse bool

	maxIOSize        int64
	groupCommitBytes int64
	sinceFlush       int64
	gc               *groupCommit

	sealed bool
	log    *lsmlog.Logger
}

// NewRW creates a fresh RW layer over data, writing vsize bytes worth
// of logical addressable space. In sparse mode NewRW itself sizes the
// data file to HeaderSize+vsize (§4.2 "Sparse mode").
func NewRW(data back.File, vsize int64, sparse bool, log *lsmlog.Logger) (*RW, error) {
	if log == nil {
		log = lsmlog.Discard
	}
	// The first HeaderSize bytes are reserved for the header written on
	// commit/close_seal (§6.1); both sparse and append-cursor addressing
	// are shifted past it, so moffset stays a fixed HeaderSize-offset
	// identity mapping in the sparse case rather than literally 0-based.
	if sparse {
		if err := data.Truncate(HeaderSize + vsize); err != nil {
			return nil, lsmerr.Wrap(lsmerr.KindIO, err, "sparse-allocate %d", vsize)
		}
	}
	if _, err := data.WriteAt(EncodeHeader(0), 0); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "write header")
	}
	f := &RW{
		data:   data,
		index:  segidx.NewIndex0(),
		vsize:  vsize,
		sparse: sparse,
		cursor: HeaderSize,
		log:    log,
	}
	f.gc = newGroupCommit(f.flushNow)
	go f.gc.run()
	return f, nil
}

// OpenRW resumes an RW layer whose index and append cursor are already
// known (e.g. reloaded after a process restart, index rebuilt from a
// recovery log out of this engine's scope).
func OpenRW(data back.File, vsize int64, sparse bool, index *segidx.Index0, cursor int64, log *lsmlog.Logger) *RW {
	if log == nil {
		log = lsmlog.Discard
	}
	f := &RW{data: data, index: index, vsize: vsize, sparse: sparse, cursor: cursor, log: log}
	f.gc = newGroupCommit(f.flushNow)
	go f.gc.run()
	return f
}

// SetMaxIOSize sets the advisory split threshold for writes (§4.2).
// Values below segidx.Alignment are silently rejected, retaining the
// previous value.
func (f *RW) SetMaxIOSize(n int64) {
	if n < segidx.Alignment {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxIOSize = n
}

// SetIndexGroupCommit hints that index mutations may be batched until
// n bytes of data have been appended between flushes (§4.2).
func (f *RW) SetIndexGroupCommit(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCommitBytes = n
}

// Index returns the live, non-owning Index0 (§4.2 "index()").
func (f *RW) Index() *segidx.Index0 { return f.index }

func (f *RW) VSize() int64        { return f.vsize }
func (f *RW) DataFile() back.File { return f.data }

// Pwrite appends buf to the data file (or, in sparse mode, writes it at
// its logical offset) and records the mapping in Index0 (§4.2).
func (f *RW) Pwrite(buf []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sealed {
		return 0, lsmerr.ErrNotSupported
	}
	if off < 0 || off+int64(len(buf)) > f.vsize {
		return 0, lsmerr.New(lsmerr.KindIO, "write out of volume bounds: off=%d len=%d vsize=%d", off, len(buf), f.vsize)
	}

	max := f.maxIOSize
	if max == 0 {
		max = int64(len(buf))
	}
	total := 0
	for total < len(buf) {
		n := len(buf) - total
		if int64(n) > max {
			n = int(max)
		}
		if err := f.pwriteOne(buf[total:total+n], off+int64(total)); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (f *RW) pwriteOne(buf []byte, off int64) error {
	var moffset int64
	if f.sparse {
		moffset = HeaderSize + off
	} else {
		moffset = f.cursor
	}

	if _, err := f.data.WriteAt(buf, moffset); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write at physical %d", moffset)
	}

	if !f.sparse {
		f.cursor += int64(len(buf))
	}
	f.index.Insert(segidx.SegmentMapping{
		Segment: segidx.Segment{Offset: off, Length: int64(len(buf))},
		Moffset: moffset,
	})

	f.sinceFlush += int64(len(buf))
	if f.groupCommitBytes > 0 && f.sinceFlush >= f.groupCommitBytes {
		f.sinceFlush = 0
		bt := f.gc.request()
		f.mu.Unlock()
		err := f.gc.wait(bt)
		f.mu.Lock()
		return err
	}
	return nil
}

// Pread reads n bytes at the logical offset off (§4.2).
func (f *RW) Pread(buf []byte, off int64) (int, error) {
	f.mu.Lock()
	mappings := f.index.Lookup(segidx.Segment{Offset: off, Length: int64(len(buf))})
	data := f.data
	f.mu.Unlock()

	err := FillFromMappings(buf, segidx.Segment{Offset: off, Length: int64(len(buf))}, mappings, func(segidx.SegmentMapping) Source {
		return data
	})
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (f *RW) flushNow() error {
	return f.data.Sync()
}

// Fsync forwards to the underlying data file.
func (f *RW) Fsync() error { return f.data.Sync() }

// Fdatasync is, at this abstraction level, the same as Fsync: the
// back.File capability set doesn't distinguish metadata-only syncs
// from data syncs (§4.2 "fsync / fdatasync / sync_file_range:
// forwarded to the underlying data file").
func (f *RW) Fdatasync() error { return f.data.Sync() }

// SyncFileRange forwards to the underlying data file.
func (f *RW) SyncFileRange(off, n int64) error { return f.data.SyncRange(off, n) }

// Close stops the background group-commit flusher. It does not close
// the underlying data file (the caller opened it, the caller closes
// it, consistent with ownership flags elsewhere in this engine).
func (f *RW) Close() error {
	f.gc.stop()
	return nil
}
