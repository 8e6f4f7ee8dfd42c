package segidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sm(off, length, moffset int64) SegmentMapping {
	return SegmentMapping{Segment: Segment{Offset: off, Length: length}, Moffset: moffset}
}

// TestIndex0InsertOverwrite encodes the worked scenario from §8.2 #1:
// seven sequential inserts, each possibly clipping or splitting its
// predecessors, must dump to the exact 7-entry sequence given there.
func TestIndex0InsertOverwrite(t *testing.T) {
	ix := NewIndex0()
	inserts := []SegmentMapping{
		sm(0, 20, 0),
		sm(10, 15, 50),
		sm(30, 100, 20),
		sm(5, 10, 3),
		sm(40, 10, 123),
		sm(200, 10, 2133),
		sm(150, 100, 21),
	}
	for _, m := range inserts {
		ix.Insert(m)
	}

	want := []SegmentMapping{
		sm(0, 5, 0),
		sm(5, 10, 3),
		sm(15, 10, 55),
		sm(30, 10, 20),
		sm(40, 10, 123),
		sm(50, 80, 40),
		sm(150, 100, 21),
	}
	assert.Equal(t, want, ix.Dump().Entries())
}

// TestIndex0NonOverlap is the universally-quantified invariant from
// §8.1: after any sequence of inserts, entries never overlap.
func TestIndex0NonOverlap(t *testing.T) {
	ix := NewIndex0()
	inserts := []SegmentMapping{
		sm(0, 20, 0),
		sm(10, 15, 50),
		sm(30, 100, 20),
		sm(5, 10, 3),
		sm(40, 10, 123),
		sm(200, 10, 2133),
		sm(150, 100, 21),
		sm(0, 500, 999),
	}
	for _, m := range inserts {
		ix.Insert(m)
	}
	entries := ix.Dump().Entries()
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].End(), entries[i].Offset)
	}
}

// TestIndex0BlockCount is §8.1's "block_count() == sum of length over
// non-zeroed entries" invariant.
func TestIndex0BlockCount(t *testing.T) {
	ix := NewIndex0()
	ix.Insert(sm(0, 20, 0))
	ix.Insert(SegmentMapping{Segment: Segment{Offset: 20, Length: 20}, Zeroed: true})
	ix.Insert(sm(40, 10, 999))

	var want int64
	for _, e := range ix.Dump().Entries() {
		if !e.Zeroed {
			want += e.Length
		}
	}
	assert.Equal(t, want, ix.BlockCount())
}
