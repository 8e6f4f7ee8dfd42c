package stacked

import (
	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/layer"
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/segidx"
)

const copyChunkSize = 1 << 20

// MergeFilesRO writes a single new RO layer file to out whose merged
// index equals segidx.MergeMemoryIndexes(files) and whose data area is
// a compaction of all live mappings (§4.4 "merge_files_ro"). The
// result is byte-for-byte equivalent to committing a hypothetical RW
// layer that had performed all the writes in historical order.
//
// ros[0] must be the newest layer, matching the tagging convention
// segidx.MergeMemoryIndexes uses.
func MergeFilesRO(ros []*layer.RO, out back.File) error {
	if len(ros) == 0 {
		return lsmerr.New(lsmerr.KindConfiguration, "merge_files_ro requires at least one layer")
	}
	vsize := ros[0].VSize()
	for i, r := range ros {
		if r.VSize() != vsize {
			return lsmerr.New(lsmerr.KindConfiguration, "layer %d vsize %d does not match %d", i, r.VSize(), vsize)
		}
	}

	idxs := make([]*segidx.Index, len(ros))
	for i, r := range ros {
		idxs[i] = r.Index()
	}
	merged := segidx.MergeMemoryIndexes(idxs)

	if _, err := out.WriteAt(layer.EncodeHeader(0), 0); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write header")
	}

	buf := make([]byte, copyChunkSize)
	dataOff := int64(layer.HeaderSize)
	for i := range merged {
		e := &merged[i]
		if e.Zeroed {
			continue
		}
		src := ros[e.Tag-1].DataFile()
		if err := copyExtent(out, dataOff, src, e.Moffset, e.Length, buf); err != nil {
			return err
		}
		e.Moffset = dataOff
		e.Tag = 0
		dataOff += e.Length
	}

	idxBytes := layer.EncodeIndex(merged)
	idxOff := dataOff
	if _, err := out.WriteAt(idxBytes, idxOff); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write index table")
	}

	trailer := layer.Trailer{
		Vsize:       vsize,
		IndexOffset: idxOff,
		IndexLength: int64(len(idxBytes)),
	}
	trailer.UUID = layer.NewUUID()
	if _, err := out.WriteAt(layer.EncodeTrailer(trailer), idxOff+int64(len(idxBytes))); err != nil {
		return lsmerr.Wrap(lsmerr.KindIO, err, "write trailer")
	}
	return out.Sync()
}

func copyExtent(dst back.File, dstOff int64, src back.File, srcOff, n int64, buf []byte) error {
	for n > 0 {
		c := int64(len(buf))
		if c > n {
			c = n
		}
		if _, err := src.ReadAt(buf[:c], srcOff); err != nil {
			return lsmerr.Wrap(lsmerr.KindIO, err, "read extent at %d", srcOff)
		}
		if _, err := dst.WriteAt(buf[:c], dstOff); err != nil {
			return lsmerr.Wrap(lsmerr.KindIO, err, "write extent at %d", dstOff)
		}
		srcOff += c
		dstOff += c
		n -= c
	}
	return nil
}
