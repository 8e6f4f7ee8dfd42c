package segidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildLevelEntries(n int) []SegmentMapping {
	entries := make([]SegmentMapping, n)
	for i := 0; i < n; i++ {
		entries[i] = sm(int64(i*10), 10, int64(i*10))
	}
	return entries
}

func TestLevelIndexLookupMatchesFlatIndex(t *testing.T) {
	entries := buildLevelEntries(500) // several rungSpan-sized chunks
	flat := NewIndex(append([]SegmentMapping(nil), entries...))
	level := NewLevelIndex(0, int64(500*10), append([]SegmentMapping(nil), entries...))

	queries := []Segment{
		{Offset: 0, Length: 25},
		{Offset: 635, Length: 40},
		{Offset: 1280, Length: 1},
		{Offset: 4990, Length: 100}, // runs off the end
	}
	for _, q := range queries {
		assert.Equal(t, flat.Lookup(q), level.Lookup(q), "query %+v", q)
	}
}

func TestLevelIndexClampsToWindow(t *testing.T) {
	entries := buildLevelEntries(10)
	li := NewLevelIndex(20, 60, entries)

	got := li.Lookup(Segment{Offset: 0, Length: 1000})
	for _, m := range got {
		assert.GreaterOrEqual(t, m.Offset, int64(20))
		assert.LessOrEqual(t, m.End(), int64(60))
	}
	assert.NotEmpty(t, got)
}

func TestLevelIndexEmptyOutsideWindow(t *testing.T) {
	entries := buildLevelEntries(10)
	li := NewLevelIndex(20, 60, entries)
	assert.Empty(t, li.Lookup(Segment{Offset: 1000, Length: 10}))
}
