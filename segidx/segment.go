// Package segidx implements the segment index subsystem: the data
// structure and algorithms that map logical offsets in the virtual
// volume to physical offsets inside layer files (spec §3.1–3.2, §4.1).
//
// Grounded on the teacher's page-layout accessors (page.go) for the
// "clip into caller's buffer, no hidden allocation on the hot path"
// style, and on b+tree_page.go's split/merge bookkeeping for the
// overwrite-insert algorithm in Index0.
package segidx

import "github.com/liulanzheng/overlaybd/lsmerr"

// Alignment is the addressing quantum (§3.1). Segment.Validate rejects
// offsets and lengths that are not multiples of it; Index, Index0 and
// the layer files do not check alignment themselves.
const Alignment = 512

// MaxMappingLength is 65535 sectors, the bound a 16-bit sector-count
// length field puts on one mapping. Nothing in this module enforces it:
// Index0.Insert and Compress accept longer mappings, and the layer
// file's index records store the length in 32 bits.
const MaxMappingLength = 65535 * Alignment

// Segment is a half-open logical byte range [Offset, Offset+Length).
type Segment struct {
	Offset int64
	Length int64
}

// End returns the exclusive end of the segment.
func (s Segment) End() int64 { return s.Offset + s.Length }

// Validate checks the invariants spec.md §3.1 requires of any segment:
// positive length, no offset overflow, alignment.
func (s Segment) Validate() error {
	if s.Length <= 0 {
		return lsmerr.New(lsmerr.KindFormat, "segment length must be positive, got %d", s.Length)
	}
	if s.Offset < 0 {
		return lsmerr.New(lsmerr.KindFormat, "segment offset must be non-negative, got %d", s.Offset)
	}
	end := s.Offset + s.Length
	if end < s.Offset {
		return lsmerr.Wrap(lsmerr.KindFormat, lsmerr.ErrOverflow, "segment offset+length overflows: %d+%d", s.Offset, s.Length)
	}
	if s.Offset%Alignment != 0 || s.Length%Alignment != 0 {
		return lsmerr.New(lsmerr.KindFormat, "segment not sector-aligned: off=%d len=%d", s.Offset, s.Length)
	}
	return nil
}

// Intersects reports whether s and o overlap.
func (s Segment) Intersects(o Segment) bool {
	return s.Offset < o.End() && o.Offset < s.End()
}

// SegmentMapping attaches physical placement to a Segment (§3.1).
type SegmentMapping struct {
	Segment
	Moffset int64 // physical offset inside the owning layer file, in bytes
	Zeroed  bool  // range is semantically all-zero, occupies no physical storage
	Tag     int   // which stacked layer produced this mapping; 0 = top writable
}

// End is promoted from Segment for convenience in call sites that only
// have a SegmentMapping.
func (m SegmentMapping) End() int64 { return m.Segment.End() }

// clip returns the intersection of m with q, adjusting Moffset forward
// by the same amount the logical offset moved (unless m is zeroed, in
// which case Moffset is meaningless and left as-is), per §4.1 step 3.
func clip(m SegmentMapping, q Segment) SegmentMapping {
	off := m.Offset
	if q.Offset > off {
		off = q.Offset
	}
	end := m.End()
	if q.End() < end {
		end = q.End()
	}
	out := m
	shift := off - m.Offset
	out.Offset = off
	out.Length = end - off
	if !m.Zeroed {
		out.Moffset = m.Moffset + shift
	}
	return out
}
