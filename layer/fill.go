package layer

import (
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/segidx"
)

// Source resolves the backing reader a mapping's bytes should come
// from — the layer's own data file for a single-layer read, or the
// tag-indexed data file of the owning stack member for a stacked read
// (§4.4 "issue a read against the mapping's owning layer").
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
}

// FillFromMappings fills buf (whose length must equal q.Length) from
// mappings — a sorted, non-overlapping, already-clipped-to-q sequence —
// zero-filling any gap mappings don't cover and any Zeroed mapping
// without touching source (§4.2 "pread: consult Index0 ... fill gaps
// with zero bytes. Zeroed mappings yield zero bytes without I/O").
func FillFromMappings(buf []byte, q segidx.Segment, mappings []segidx.SegmentMapping, source func(m segidx.SegmentMapping) Source) error {
	if int64(len(buf)) != q.Length {
		return lsmerr.New(lsmerr.KindIO, "buffer length %d does not match segment length %d", len(buf), q.Length)
	}

	pos := q.Offset
	zero := func(lo, hi int64) {
		for i := lo; i < hi; i++ {
			buf[i-q.Offset] = 0
		}
	}

	for _, m := range mappings {
		if m.Offset > pos {
			zero(pos, m.Offset)
			pos = m.Offset
		}
		end := m.End()
		if m.Zeroed {
			zero(pos, end)
		} else {
			src := source(m)
			n, err := src.ReadAt(buf[pos-q.Offset:end-q.Offset], m.Moffset+(pos-m.Offset))
			if err != nil {
				return lsmerr.Wrap(lsmerr.KindIO, err, "read mapping tag=%d off=%d", m.Tag, m.Moffset)
			}
			if int64(n) != end-pos {
				return lsmerr.New(lsmerr.KindIO, "short read: wanted %d got %d", end-pos, n)
			}
		}
		pos = end
	}
	if pos < q.End() {
		zero(pos, q.End())
	}
	return nil
}
