package combo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liulanzheng/overlaybd/segidx"
)

func sm(off, length, moffset int64) segidx.SegmentMapping {
	return segidx.SegmentMapping{Segment: segidx.Segment{Offset: off, Length: length}, Moffset: moffset}
}

func tagged(off, length, moffset int64, tag int) segidx.SegmentMapping {
	m := sm(off, length, moffset)
	m.Tag = tag
	return m
}

// TestComboIndexTwoLayerLookup encodes §8.2 #3 via the real ComboIndex
// entry point: a top Index0 built by inserting its three mappings, and
// one RO layer for "lower". Tag 0 (top) and tag 1 (the sole RO layer)
// must reproduce the hand-derived 10-entry merge.
func TestComboIndexTwoLayerLookup(t *testing.T) {
	top := segidx.NewIndex0()
	top.Insert(sm(5, 5, 0))
	top.Insert(sm(10, 10, 50))
	top.Insert(sm(100, 10, 20))

	lower := segidx.NewIndex([]segidx.SegmentMapping{
		sm(0, 1, 7),
		sm(2, 4, 5),
		sm(15, 10, 22),
		sm(30, 15, 89),
		sm(87, 50, 32),
		sm(150, 10, 84),
	})

	c := New(top, []*segidx.Index{lower})
	got := c.Lookup(segidx.Segment{Offset: 0, Length: 10000})

	want := []segidx.SegmentMapping{
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

func TestComboIndexTopShadowsLower(t *testing.T) {
	top := segidx.NewIndex0()
	top.Insert(sm(0, 10, 999))

	lower := segidx.NewIndex([]segidx.SegmentMapping{sm(0, 20, 111)})

	c := New(top, []*segidx.Index{lower})
	got := c.Lookup(segidx.Segment{Offset: 0, Length: 20})

	require := assert.New(t)
	require.Len(got, 2)
	require.Equal(0, got[0].Tag)
	require.Equal(int64(0), got[0].Offset)
	require.Equal(int64(10), got[0].End())
	require.Equal(1, got[1].Tag)
	require.Equal(int64(10), got[1].Offset)
}

func TestComboIndexRebuildLowers(t *testing.T) {
	top := segidx.NewIndex0()
	c := New(top, nil)
	assert.Empty(t, c.Lookup(segidx.Segment{Offset: 0, Length: 10}))

	lower := segidx.NewIndex([]segidx.SegmentMapping{sm(0, 10, 5)})
	c.RebuildLowers([]*segidx.Index{lower})

	got := c.Lookup(segidx.Segment{Offset: 0, Length: 10})
	assert.Equal(t, []segidx.SegmentMapping{tagged(0, 10, 5, 1)}, got)
}
