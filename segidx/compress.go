package segidx

// mergeable reports whether b may be folded into a under the compress
// rules of §4.1 "Compress pass": contiguous in logical space, same
// zeroed flag, same tag, and (for data mappings) contiguous in
// physical space too.
func mergeable(a, b SegmentMapping) bool {
	if a.End() != b.Offset || a.Zeroed != b.Zeroed || a.Tag != b.Tag {
		return false
	}
	if a.Zeroed {
		return true
	}
	return a.Moffset+a.Length == b.Moffset
}

// CompressCount predicts the length compress would produce without
// mutating in, for callers that want the output size before calling
// Compress or CompressInPlace.
func CompressCount(in []SegmentMapping) int {
	if len(in) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(in); i++ {
		if !mergeable(in[i-1], in[i]) {
			n++
		}
	}
	return n
}

// CompressInPlace rewrites in, collapsing mergeable runs, and returns
// the (possibly shorter) result reslicing in. Idempotent: calling it
// again on its own output is a no-op (§8.1 "Round-trip of compress").
func CompressInPlace(in []SegmentMapping) []SegmentMapping {
	if len(in) == 0 {
		return in
	}
	w := 0
	for r := 1; r < len(in); r++ {
		if mergeable(in[w], in[r]) {
			in[w].Length = in[r].End() - in[w].Offset
			continue
		}
		w++
		in[w] = in[r]
	}
	return in[:w+1]
}

// Compress is the convenience, non-mutating form: it copies in before
// compressing, leaving the caller's slice untouched.
func Compress(in []SegmentMapping) []SegmentMapping {
	cp := make([]SegmentMapping, len(in))
	copy(cp, in)
	return CompressInPlace(cp)
}
