package segidx

import "sort"

// Index0 is the mutable, overwrite-semantics index for the top
// writable layer (§3.2 "Index0"). Only one goroutine may mutate an
// Index0 at a time (§5 — each stacked file is owned by a single
// scheduler); Index0 does no internal locking of its own.
type Index0 struct {
	entries []SegmentMapping
	blocks  int64
}

// NewIndex0 returns an empty Index0.
func NewIndex0() *Index0 {
	return &Index0{}
}

func (ix *Index0) Size() int { return len(ix.entries) }

// BlockCount is the sum of Length over non-zeroed entries (§3.2,
// invariant checked in §8.1 "Block count").
func (ix *Index0) BlockCount() int64 { return ix.blocks }

// Front returns the lowest-offset mapping, if any.
func (ix *Index0) Front() (SegmentMapping, bool) {
	if len(ix.entries) == 0 {
		return SegmentMapping{}, false
	}
	return ix.entries[0], true
}

// Back returns the highest-offset mapping, if any.
func (ix *Index0) Back() (SegmentMapping, bool) {
	if len(ix.entries) == 0 {
		return SegmentMapping{}, false
	}
	return ix.entries[len(ix.entries)-1], true
}

// LowerBound returns the index of the first entry whose End() exceeds
// offset (the same cursor Lookup starts its walk from).
func (ix *Index0) LowerBound(offset int64) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].End() > offset
	})
}

func addLen(blocks int64, m SegmentMapping) int64 {
	if m.Zeroed {
		return blocks
	}
	return blocks + m.Length
}

func subLen(blocks int64, m SegmentMapping) int64 {
	if m.Zeroed {
		return blocks
	}
	return blocks - m.Length
}

// Insert adds new to the index with overwrite semantics: any bytes new
// covers that were previously mapped are replaced (§4.1 "Index0 —
// insert with overwrite"). Finding the k entries intersecting new is
// O(log n + k); the entry slice is then rebuilt, so every Insert also
// copies all n entries.
func (ix *Index0) Insert(newM SegmentMapping) {
	no, nend := newM.Offset, newM.End()

	lo := ix.LowerBound(no)
	hi := lo
	for hi < len(ix.entries) && ix.entries[hi].Offset < nend {
		hi++
	}

	var prefix, suffix *SegmentMapping
	if lo < hi {
		first := ix.entries[lo]
		if first.Offset < no {
			p := clip(first, Segment{Offset: first.Offset, Length: no - first.Offset})
			prefix = &p
		}
		last := ix.entries[hi-1]
		if last.End() > nend {
			s := clip(last, Segment{Offset: nend, Length: last.End() - nend})
			suffix = &s
		}
	}

	for i := lo; i < hi; i++ {
		ix.blocks = subLen(ix.blocks, ix.entries[i])
	}
	if prefix != nil {
		ix.blocks = addLen(ix.blocks, *prefix)
	}
	if suffix != nil {
		ix.blocks = addLen(ix.blocks, *suffix)
	}
	ix.blocks = addLen(ix.blocks, newM)

	replacement := make([]SegmentMapping, 0, 3)
	if prefix != nil {
		replacement = append(replacement, *prefix)
	}
	replacement = append(replacement, newM)
	if suffix != nil {
		replacement = append(replacement, *suffix)
	}

	merged := make([]SegmentMapping, 0, len(ix.entries)-(hi-lo)+len(replacement))
	merged = append(merged, ix.entries[:lo]...)
	merged = append(merged, replacement...)
	merged = append(merged, ix.entries[hi:]...)
	ix.entries = merged
}

// Dump flattens the Index0 into an immutable Index snapshot (§3.2
// "dump() → flat Index"), used when committing/sealing the RW layer.
func (ix *Index0) Dump() *Index {
	cp := make([]SegmentMapping, len(ix.entries))
	copy(cp, ix.entries)
	return NewIndex(cp)
}

// Lookup mirrors Index.Lookup, since Index0 must support reads from the
// live writable layer exactly like a flat Index (§3.4 RW layer pread).
func (ix *Index0) Lookup(q Segment) []SegmentMapping {
	return NewIndex(ix.entries).Lookup(q)
}
