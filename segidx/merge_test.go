package segidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tagged(off, length, moffset int64, tag int) SegmentMapping {
	return SegmentMapping{Segment: Segment{Offset: off, Length: length}, Moffset: moffset, Tag: tag}
}

// TestMergeTaggedSegmentsTwoLayer encodes §8.2 #3: a top stream tagged 0
// and a lower stream tagged 1, swept and compressed, must produce the
// exact 10-entry list worked out by hand from the sweep algorithm (the
// sweep alone over-fragments at points where a losing cursor's end
// truncates the winner's run; the trailing compress heals every split
// that is logically and physically contiguous with matching tag).
func TestMergeTaggedSegmentsTwoLayer(t *testing.T) {
	top := []SegmentMapping{
		tagged(5, 5, 0, 0),
		tagged(10, 10, 50, 0),
		tagged(100, 10, 20, 0),
	}
	lower := []SegmentMapping{
		tagged(0, 1, 7, 1),
		tagged(2, 4, 5, 1),
		tagged(15, 10, 22, 1),
		tagged(30, 15, 89, 1),
		tagged(87, 50, 32, 1),
		tagged(150, 10, 84, 1),
	}

	got := MergeTaggedSegments([][]SegmentMapping{top, lower})

	want := []SegmentMapping{
		tagged(0, 1, 7, 1),
		tagged(2, 3, 5, 1),
		tagged(5, 5, 0, 0),
		tagged(10, 10, 50, 0),
		tagged(20, 5, 27, 1),
		tagged(30, 15, 89, 1),
		tagged(87, 13, 32, 1),
		tagged(100, 10, 20, 0),
		tagged(110, 27, 55, 1),
		tagged(150, 10, 84, 1),
	}
	assert.Equal(t, want, got)
}

// TestMergeTaggedSegmentsShadowing is §8.1's ComboIndex shadowing
// invariant specialized to the merge step: at every covered byte the
// winning tag is the smallest among the streams covering it.
func TestMergeTaggedSegmentsShadowing(t *testing.T) {
	a := []SegmentMapping{tagged(0, 10, 0, 0)}
	b := []SegmentMapping{tagged(5, 10, 100, 1)}
	got := MergeTaggedSegments([][]SegmentMapping{a, b})

	for _, m := range got {
		if m.Offset < 10 {
			assert.Equal(t, 0, m.Tag, "byte %d should be won by tag 0", m.Offset)
		} else {
			assert.Equal(t, 1, m.Tag, "byte %d should be won by tag 1", m.Offset)
		}
	}
}

func TestMergeMemoryIndexesTagsByRecency(t *testing.T) {
	newest := NewIndex([]SegmentMapping{{Segment: Segment{Offset: 0, Length: 10}, Moffset: 0}})
	oldest := NewIndex([]SegmentMapping{{Segment: Segment{Offset: 0, Length: 10}, Moffset: 100}})

	got := MergeMemoryIndexes([]*Index{newest, oldest})
	assert.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Tag)
	assert.Equal(t, int64(0), got[0].Moffset)
}
