package segidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCompressMergesContiguousRuns encodes §8.2 #4: physically
// contiguous, same-zeroed, same-tag runs collapse into one entry, but a
// zeroed entry never merges with a non-zeroed neighbor.
func TestCompressMergesContiguousRuns(t *testing.T) {
	in := []SegmentMapping{
		sm(5, 5, 0),
		sm(10, 10, 5),
		sm(100, 10, 20),
	}
	want := []SegmentMapping{
		sm(5, 15, 0),
		sm(100, 10, 20),
	}
	assert.Equal(t, want, Compress(in))
}

func TestCompressLeavesZeroedRunUnmerged(t *testing.T) {
	in := []SegmentMapping{
		sm(5, 5, 0),
		{Segment: Segment{Offset: 10, Length: 10}, Moffset: 5, Zeroed: true},
		sm(100, 10, 20),
	}
	got := Compress(in)
	assert.Len(t, got, 3)
	assert.False(t, got[0].Zeroed)
	assert.True(t, got[1].Zeroed)
	assert.False(t, got[2].Zeroed)
}

// TestCompressIdempotent is §8.1's "compress(compress(x)) == compress(x)".
func TestCompressIdempotent(t *testing.T) {
	in := []SegmentMapping{
		sm(5, 5, 0),
		sm(10, 10, 5),
		sm(20, 5, 15),
		sm(100, 10, 20),
	}
	once := Compress(in)
	twice := Compress(append([]SegmentMapping(nil), once...))
	assert.Equal(t, once, twice)
}
