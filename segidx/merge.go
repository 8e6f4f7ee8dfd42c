package segidx

// MergeMemoryIndexes sweeps idxs[0..N-1] (idxs[0] newest) by logical
// offset and produces a single sorted, non-overlapping list where each
// entry is tagged with the winning layer number, newest covering wins
// (§4.1 "Merging N Indexes"). Tag 1 is the newest input, tag N the
// oldest; tag 0 is reserved by the caller for a top writable layer
// composed on top of this merged view inside a ComboIndex.
func MergeMemoryIndexes(idxs []*Index) []SegmentMapping {
	streams := make([][]SegmentMapping, 0, len(idxs))
	for i, idx := range idxs {
		if idx == nil || idx.Len() == 0 {
			continue
		}
		tagged := make([]SegmentMapping, idx.Len())
		copy(tagged, idx.entries)
		for j := range tagged {
			tagged[j].Tag = i + 1
		}
		streams = append(streams, tagged)
	}
	return MergeTaggedSegments(streams)
}

// MergeTaggedSegments performs the priority sweep shared by
// MergeMemoryIndexes and ComboIndex.Lookup: each input stream must
// already be sorted, non-overlapping, and carry the Tag its entries
// should win under. At every logical position the lowest Tag among the
// streams currently covering it wins (§3.3 "tag 0 wins" generalizes to
// "lowest tag wins" once the RO stack has been pre-tagged 1..N).
func MergeTaggedSegments(streams [][]SegmentMapping) []SegmentMapping {
	type cursor struct {
		entries []SegmentMapping
		i       int
	}
	cursors := make([]*cursor, 0, len(streams))
	for _, s := range streams {
		if len(s) == 0 {
			continue
		}
		cursors = append(cursors, &cursor{entries: s})
	}

	var out []SegmentMapping
	pos := int64(0)
	const noPos = int64(1) << 62

	for {
		next := noPos
		for _, c := range cursors {
			for c.i < len(c.entries) && c.entries[c.i].End() <= pos {
				c.i++
			}
			if c.i >= len(c.entries) {
				continue
			}
			if c.entries[c.i].Offset < next {
				next = c.entries[c.i].Offset
			}
		}
		if next == noPos {
			break
		}
		if next > pos {
			pos = next
		}

		var winner *cursor
		winEnd := noPos
		for _, c := range cursors {
			if c.i >= len(c.entries) {
				continue
			}
			e := c.entries[c.i]
			if e.Offset > pos {
				if e.Offset < winEnd {
					winEnd = e.Offset
				}
				continue
			}
			if winner == nil || e.Tag < winner.entries[winner.i].Tag {
				winner = c
			}
			if e.End() < winEnd {
				winEnd = e.End()
			}
		}
		if winner == nil {
			pos = next
			continue
		}

		e := winner.entries[winner.i]
		seg := Segment{Offset: pos, Length: winEnd - pos}
		m := clip(e, seg)
		out = append(out, m)

		pos = winEnd
	}

	return CompressInPlace(out)
}
