package segidx

import "sort"

// Index is an ordered, non-overlapping, read-only sequence of
// SegmentMappings representing the contents of one immutable layer
// (§3.2 "Index (flat, ordered, read-only)").
type Index struct {
	entries []SegmentMapping
}

// NewIndex wraps an already sorted, non-overlapping slice of mappings.
// Callers that build the slice themselves (e.g. the layer-file format
// decoder) own the sortedness invariant; NewFromUnsorted is available
// when that isn't already guaranteed.
func NewIndex(entries []SegmentMapping) *Index {
	return &Index{entries: entries}
}

// NewFromUnsorted sorts entries by Offset before wrapping them.
func NewFromUnsorted(entries []SegmentMapping) *Index {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	return &Index{entries: entries}
}

// Entries exposes the backing slice read-only (callers must not mutate it).
func (ix *Index) Entries() []SegmentMapping { return ix.entries }

func (ix *Index) Len() int { return len(ix.entries) }

// firstCandidate returns the index of the first entry whose End() > qo,
// via binary search (§4.1 step 1).
func (ix *Index) firstCandidate(qo int64) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].End() > qo
	})
}

// Lookup returns the mappings intersecting q, clipped to q's bounds,
// in offset order (§4.1 "Flat Index — lookup"). Bytes not covered by
// any entry are simply absent from the result (gaps read as zero at
// the layer-file level).
func (ix *Index) Lookup(q Segment) []SegmentMapping {
	var out []SegmentMapping
	i := ix.firstCandidate(q.Offset)
	for ; i < len(ix.entries); i++ {
		e := ix.entries[i]
		if e.Offset >= q.End() {
			break
		}
		out = append(out, clip(e, q))
	}
	return out
}

// LookupInto fills dst with the mappings intersecting q, stopping once
// dst is full, and returns how many were written — the bounded-buffer
// variant of Lookup (§4.1 step 4: "Stop when ... the caller-supplied
// output buffer is full").
func (ix *Index) LookupInto(q Segment, dst []SegmentMapping) int {
	n := 0
	i := ix.firstCandidate(q.Offset)
	for ; i < len(ix.entries) && n < len(dst); i++ {
		e := ix.entries[i]
		if e.Offset >= q.End() {
			break
		}
		dst[n] = clip(e, q)
		n++
	}
	return n
}
