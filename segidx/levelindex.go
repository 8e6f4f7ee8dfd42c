package segidx

import "sort"

// rungSpan is how many entries each coarse "rung" anchor spans in a
// LevelIndex — a nod to the teacher's b+tree_page.go branch-page
// fan-out, here flattened into a two-tier array instead of an actual
// tree since LevelIndex is read-only and never rebalances.
const rungSpan = 64

// LevelIndex has the same lookup contract as Index (§3.2) but is
// additionally restricted to a [Lo, Hi) logical window, and carries a
// coarse rung table over the entry slice so that lookups on very large
// indexes (a full RO layer's worth of extents) skip straight to the
// right neighborhood instead of doing one binary search over the
// entire slice when the window is narrow.
type LevelIndex struct {
	Lo, Hi  int64
	entries []SegmentMapping
	rungs   []int64 // rungs[i] = entries[i*rungSpan].Offset
}

// NewLevelIndex builds a LevelIndex over entries (sorted, non-overlapping,
// already clipped to [lo, hi) by the caller — the layer-file decoder is
// expected to only materialize entries inside its own window).
func NewLevelIndex(lo, hi int64, entries []SegmentMapping) *LevelIndex {
	li := &LevelIndex{Lo: lo, Hi: hi, entries: entries}
	for i := 0; i < len(entries); i += rungSpan {
		li.rungs = append(li.rungs, entries[i].Offset)
	}
	return li
}

func (li *LevelIndex) Len() int { return len(li.entries) }

// Entries exposes the backing slice read-only.
func (li *LevelIndex) Entries() []SegmentMapping { return li.entries }

func (li *LevelIndex) firstCandidate(qo int64) int {
	// Narrow the binary search to the rung the offset falls in, then
	// finish with a tight search inside that span.
	ri := sort.Search(len(li.rungs), func(i int) bool { return li.rungs[i] > qo })
	lo := 0
	if ri > 0 {
		lo = (ri - 1) * rungSpan
	}
	hi := len(li.entries)
	if ri < len(li.rungs) {
		hi = ri * rungSpan
		if hi > len(li.entries) {
			hi = len(li.entries)
		}
	}
	rel := sort.Search(hi-lo, func(i int) bool { return li.entries[lo+i].End() > qo })
	return lo + rel
}

// Lookup clips q to [Lo, Hi) first, then behaves exactly like
// Index.Lookup over that clipped window.
func (li *LevelIndex) Lookup(q Segment) []SegmentMapping {
	q = clampSegment(q, li.Lo, li.Hi)
	if q.Length <= 0 {
		return nil
	}

	var out []SegmentMapping
	i := li.firstCandidate(q.Offset)
	for ; i < len(li.entries); i++ {
		e := li.entries[i]
		if e.Offset >= q.End() {
			break
		}
		out = append(out, clip(e, q))
	}
	return out
}

func clampSegment(q Segment, lo, hi int64) Segment {
	off := q.Offset
	end := q.End()
	if off < lo {
		off = lo
	}
	if end > hi {
		end = hi
	}
	if end < off {
		end = off
	}
	return Segment{Offset: off, Length: end - off}
}
