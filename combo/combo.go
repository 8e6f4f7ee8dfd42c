// Package combo implements the ComboIndex (spec §3.3, §4.1): the view
// composing one Index0 (the top writable layer) with a merged view of
// N underlying read-only layers, tagged newest to oldest.
package combo

import "github.com/liulanzheng/overlaybd/segidx"

// Index composes a top Index0 with a precomputed merge of the RO
// layer stack. The RO side is rebuilt only when the stack changes
// (a new layer is pushed/popped), not on every lookup, since
// §4.1 describes it as a standing "merged Index*" the ComboIndex reads
// from.
type Index struct {
	top    *segidx.Index0
	merged []segidx.SegmentMapping // already tagged 1..N, newest first
}

// New builds a ComboIndex over top and the RO stack ros (newest
// first), computing segidx.MergeMemoryIndexes(ros) once up front.
func New(top *segidx.Index0, ros []*segidx.Index) *Index {
	return &Index{top: top, merged: segidx.MergeMemoryIndexes(ros)}
}

// RebuildLowers recomputes the merged RO view, e.g. after a new RO
// layer is pushed onto the stack.
func (c *Index) RebuildLowers(ros []*segidx.Index) {
	c.merged = segidx.MergeMemoryIndexes(ros)
}

// Lookup returns, for every byte in q, the mapping from the top if the
// top covers it (tag 0), else the newest RO layer that covers it
// (§3.3). The result is sorted, clipped to q, and compressed across
// adjacent same-layer entries (§4.1 "ComboIndex — lookup").
func (c *Index) Lookup(q segidx.Segment) []segidx.SegmentMapping {
	topHits := c.top.Lookup(q) // Tag defaults to 0 — the top always wins ties.

	var lowerHits []segidx.SegmentMapping
	if len(c.merged) > 0 {
		lowerHits = segidx.NewIndex(c.merged).Lookup(q)
	}

	return segidx.MergeTaggedSegments([][]segidx.SegmentMapping{topHits, lowerHits})
}
