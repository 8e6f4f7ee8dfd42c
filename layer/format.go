// Package layer implements the layer-file subsystem (spec §3.4,
// §4.2–4.3): the append-only RW (writable top) layer, the immutable RO
// layer, and the on-disk format connecting them (§6.1).
//
// Grounded on the teacher's page/trailer framing in xrain.go's "Root
// page layout" comment (magic + version + crc + root + meta at fixed
// offsets) — our trailer plays the same role for a layer file: a small
// fixed-size record a reader can locate and validate before trusting
// anything else in the file.
package layer

import (
	"encoding/binary"

	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/segidx"
)

const (
	// HeaderSize is the fixed header every RO layer file begins with.
	HeaderSize = 4096
	// TrailerSize is the fixed trailer every RO layer file ends with.
	TrailerSize = 64
	// indexEntrySize is the fixed width of one serialized index record:
	// offset(8) length(4) moffset(8) flags(4), per §6.1.
	indexEntrySize = 24

	magicHeader  uint64 = 0x4f4c4243444c4832 // "OLBCDLH2"
	magicTrailer uint64 = 0x4f4c4243444c5432 // "OLBCDLT2"

	flagZeroed uint32 = 1 << 0

	// headerFlagCompressed marks a layer file whose data area passed
	// through a ZFile-style compressor before being written; the
	// compressor itself is out of this engine's scope (spec §1). No
	// writer in this package sets the bit, and Open does not read the
	// header, so an opened RO layer does not report it.
	headerFlagCompressed uint32 = 1 << 0
)

// Trailer is the fixed-width record at the end of an RO layer file
// (§6.1): magic, UUID, virtual size, and where to find the index table.
type Trailer struct {
	UUID        [16]byte
	Vsize       int64
	IndexOffset int64
	IndexLength int64
	Flags       uint32
}

// EncodeHeader writes the fixed header block.
func EncodeHeader(flags uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(b[0:], magicHeader)
	binary.LittleEndian.PutUint32(b[8:], 1) // format version
	binary.LittleEndian.PutUint32(b[12:], flags)
	return b
}

// DecodeHeader validates the header magic and returns its flags.
func DecodeHeader(b []byte) (flags uint32, err error) {
	if len(b) < HeaderSize {
		return 0, lsmerr.New(lsmerr.KindFormat, "header truncated: %d bytes", len(b))
	}
	if binary.LittleEndian.Uint64(b[0:]) != magicHeader {
		return 0, lsmerr.New(lsmerr.KindFormat, "bad header magic")
	}
	return binary.LittleEndian.Uint32(b[12:]), nil
}

// EncodeTrailer serializes t into a fixed TrailerSize-byte record.
func EncodeTrailer(t Trailer) []byte {
	b := make([]byte, TrailerSize)
	binary.LittleEndian.PutUint64(b[0:], magicTrailer)
	copy(b[8:24], t.UUID[:])
	binary.LittleEndian.PutUint64(b[24:], uint64(t.Vsize))
	binary.LittleEndian.PutUint64(b[32:], uint64(t.IndexOffset))
	binary.LittleEndian.PutUint64(b[40:], uint64(t.IndexLength))
	binary.LittleEndian.PutUint32(b[48:], t.Flags)
	return b
}

// DecodeTrailer parses a TrailerSize-byte record.
func DecodeTrailer(b []byte) (Trailer, error) {
	var t Trailer
	if len(b) < TrailerSize {
		return t, lsmerr.New(lsmerr.KindFormat, "trailer truncated: %d bytes", len(b))
	}
	if binary.LittleEndian.Uint64(b[0:]) != magicTrailer {
		return t, lsmerr.New(lsmerr.KindFormat, "bad trailer magic")
	}
	copy(t.UUID[:], b[8:24])
	t.Vsize = int64(binary.LittleEndian.Uint64(b[24:]))
	t.IndexOffset = int64(binary.LittleEndian.Uint64(b[32:]))
	t.IndexLength = int64(binary.LittleEndian.Uint64(b[40:]))
	t.Flags = binary.LittleEndian.Uint32(b[48:])
	return t, nil
}

// EncodeIndex serializes entries (ascending offset order, already
// compressed per §4.1) into fixed-width records.
func EncodeIndex(entries []segidx.SegmentMapping) []byte {
	b := make([]byte, len(entries)*indexEntrySize)
	for i, e := range entries {
		o := i * indexEntrySize
		binary.LittleEndian.PutUint64(b[o:], uint64(e.Offset))
		binary.LittleEndian.PutUint32(b[o+8:], uint32(e.Length))
		binary.LittleEndian.PutUint64(b[o+12:], uint64(e.Moffset))
		var flags uint32
		if e.Zeroed {
			flags |= flagZeroed
		}
		binary.LittleEndian.PutUint32(b[o+20:], flags)
	}
	return b
}

// DecodeIndex parses a serialized index table back into mappings,
// tagged with tag (0 for a freshly opened RO layer's own index; the
// caller retags when stacking).
func DecodeIndex(b []byte, tag int) ([]segidx.SegmentMapping, error) {
	if len(b)%indexEntrySize != 0 {
		return nil, lsmerr.New(lsmerr.KindFormat, "index table size %d not a multiple of %d", len(b), indexEntrySize)
	}
	n := len(b) / indexEntrySize
	out := make([]segidx.SegmentMapping, n)
	for i := 0; i < n; i++ {
		o := i * indexEntrySize
		flags := binary.LittleEndian.Uint32(b[o+20:])
		out[i] = segidx.SegmentMapping{
			Segment: segidx.Segment{
				Offset: int64(binary.LittleEndian.Uint64(b[o:])),
				Length: int64(binary.LittleEndian.Uint32(b[o+8:])),
			},
			Moffset: int64(binary.LittleEndian.Uint64(b[o+12:])),
			Zeroed:  flags&flagZeroed != 0,
			Tag:     tag,
		}
	}
	return out, nil
}
