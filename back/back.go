// Package back defines the type-erased backing-file capability set that
// every layer (RW/RO) and the cache pool build on, per the design note
// "type-erased filesystem/file interfaces": a small capability
// interface implemented by a plain-file backend and an mmap backend,
// which the tar/zfile/cache/switch adaptors (out of scope) wrap in
// turn.
//
// Grounded on the teacher's Back interface (back.go) and MmapBack
// (mmap_back.go), generalized from the teacher's page-oriented
// Access/Truncate/Size contract to the pread/pwrite contract the
// layer-file subsystem needs (§4.2/4.3 of the spec).
package back

import (
	"io"
	"os"
	"sync"

	"github.com/liulanzheng/overlaybd/lsmerr"
	"golang.org/x/sys/unix"
)

// File is the capability set required of a backing store: positioned
// read/write, size, truncate, and the two flavors of sync the spec's
// RW layer forwards (§4.2 "fsync / fdatasync / sync_file_range").
type File interface {
	io.ReaderAt
	io.WriterAt

	Size() (int64, error)
	Truncate(size int64) error
	Sync() error
	// SyncRange forwards to sync_file_range where supported; a backend
	// that has no such primitive may fall back to Sync.
	SyncRange(off, n int64) error

	Close() error
}

// OSFile is a File backed directly by a plain *os.File, the
// non-mmap path. This is the default for the RW/RO layer data files.
type OSFile struct {
	mu sync.RWMutex
	f  *os.File
}

var _ File = (*OSFile)(nil)

// Open opens name with the given flags (as os.OpenFile), returning an
// OSFile ready for pread/pwrite.
func Open(name string, flags int, perm os.FileMode) (*OSFile, error) {
	f, err := os.OpenFile(name, flags, perm)
	if err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "open %s", name)
	}
	return &OSFile{f: f}, nil
}

// FromFile wraps an already-open *os.File.
func FromFile(f *os.File) *OSFile {
	return &OSFile{f: f}
}

func (b *OSFile) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.f.ReadAt(p, off)
	if err != nil && err != io.EOF {
		err = lsmerr.Wrap(lsmerr.KindIO, err, "read at %d", off)
	}
	return n, err
}

func (b *OSFile) WriteAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.f.WriteAt(p, off)
	if err != nil {
		err = lsmerr.Wrap(lsmerr.KindIO, err, "write at %d", off)
	}
	return n, err
}

func (b *OSFile) Size() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fi, err := b.f.Stat()
	if err != nil {
		return 0, lsmerr.Wrap(lsmerr.KindIO, err, "stat")
	}
	return fi.Size(), nil
}

func (b *OSFile) Truncate(size int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.f.Truncate(size); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "truncate %d", size)
	}
	return nil
}

func (b *OSFile) Sync() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.f.Sync(); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "fsync")
	}
	return nil
}

// SyncRange forwards to sync_file_range (via golang.org/x/sys/unix),
// falling back to a full Sync when the kernel reports ENOSYS.
func (b *OSFile) SyncRange(off, n int64) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	err := unix.SyncFileRange(int(b.f.Fd()), off, n, unix.SYNC_FILE_RANGE_WRITE)
	if err != nil {
		if err == unix.ENOSYS {
			if serr := b.f.Sync(); serr != nil {
				return lsmerr.Wrap(lsmerr.KindIO, serr, "fsync fallback")
			}
			return nil
		}
		return lsmerr.Wrap(lsmerr.KindIO, err, "sync_file_range %d..%d", off, off+n)
	}
	return nil
}

func (b *OSFile) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.f.Close(); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "close")
	}
	return nil
}

// Name returns the underlying file's path.
func (b *OSFile) Name() string {
	return b.f.Name()
}

// Raw exposes the *os.File for callers that need the descriptor
// directly (statvfs, unlink-by-fd semantics).
func (b *OSFile) Raw() *os.File {
	return b.f
}
