package layer

import (
	"crypto/rand"

	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/segidx"
)

// copyChunkSize bounds how much we buffer in memory per extent copy in
// Commit; large extents are copied in chunks of this size.
const copyChunkSize = 1 << 20 // 1 MiB

// NewUUID generates a random (v4-shaped) UUID for a freshly sealed or
// committed layer's trailer.
func NewUUID() [16]byte {
	var u [16]byte
	_, _ = rand.Read(u[:]) // crypto/rand never fails on a live OS
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80
	return u
}

func compressedDump(ix *segidx.Index0) []segidx.SegmentMapping {
	entries := append([]segidx.SegmentMapping(nil), ix.Dump().Entries()...)
	return segidx.CompressInPlace(entries)
}

// copyExtent copies n bytes from src at srcOff to dst at dstOff.
func copyExtent(dst back.File, dstOff int64, src back.File, srcOff, n int64, buf []byte) error {
	for n > 0 {
		c := int64(len(buf))
		if c > n {
			c = n
		}
		if _, err := src.ReadAt(buf[:c], srcOff); err != nil {
			return lsmerr.Wrap(lsmerr.KindIO, err, "read extent at %d", srcOff)
		}
		if _, err := dst.WriteAt(buf[:c], dstOff); err != nil {
			return lsmerr.Wrap(lsmerr.KindIO, err, "write extent at %d", dstOff)
		}
		srcOff += c
		dstOff += c
		n -= c
	}
	return nil
}

// Commit writes an immutable RO-layer image to target: header, the
// data area (compacted from the compressed Index0 dump), the
// serialized index, and the trailer (§4.2 "commit(target_file)"). The
// RW layer remains usable afterward.
func (f *RW) Commit(target back.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := compressedDump(f.index)

	if _, err := target.WriteAt(EncodeHeader(0), 0); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write header")
	}

	buf := make([]byte, copyChunkSize)
	dataOff := int64(HeaderSize)
	for i := range entries {
		e := &entries[i]
		if e.Zeroed {
			continue
		}
		if err := copyExtent(target, dataOff, f.data, e.Moffset, e.Length, buf); err != nil {
			return err
		}
		e.Moffset = dataOff
		dataOff += e.Length
	}

	idxBytes := EncodeIndex(entries)
	idxOff := dataOff
	if _, err := target.WriteAt(idxBytes, idxOff); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write index table")
	}

	trailer := Trailer{
		UUID:        NewUUID(),
		Vsize:       f.vsize,
		IndexOffset: idxOff,
		IndexLength: int64(len(idxBytes)),
	}
	if _, err := target.WriteAt(EncodeTrailer(trailer), idxOff+int64(len(idxBytes))); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write trailer")
	}
	return target.Sync()
}

// CloseSeal finalizes the current RW file in place and returns an RO
// view of it (§4.2 "close_seal"). Fails with lsmerr.ErrNotSupported if
// called twice.
func (f *RW) CloseSeal() (*RO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sealed {
		return nil, lsmerr.ErrNotSupported
	}

	entries := compressedDump(f.index)

	idxOff := f.cursor
	if f.sparse {
		idxOff = HeaderSize + f.vsize
	}
	idxBytes := EncodeIndex(entries)
	if _, err := f.data.WriteAt(idxBytes, idxOff); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "write index table")
	}

	trailer := Trailer{
		UUID:        NewUUID(),
		Vsize:       f.vsize,
		IndexOffset: idxOff,
		IndexLength: int64(len(idxBytes)),
	}
	trailerOff := idxOff + int64(len(idxBytes))
	if _, err := f.data.WriteAt(EncodeTrailer(trailer), trailerOff); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "write trailer")
	}
	if err := f.data.Sync(); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindIO, err, "sync on seal")
	}

	f.sealed = true
	f.gc.stop()

	return newRO(f.data, segidx.NewIndex(entries), f.vsize, trailer.UUID, f.log), nil
}
