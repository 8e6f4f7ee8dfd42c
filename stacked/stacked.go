// Package stacked implements the layered (stacked) file (spec §4.4):
// one RW layer composed on top of a prebuilt RO stack, presenting a
// single pread/pwrite surface over the virtual volume.
package stacked

import (
	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/combo"
	"github.com/liulanzheng/overlaybd/layer"
	"github.com/liulanzheng/overlaybd/lsmerr"
	"github.com/liulanzheng/overlaybd/lsmlog"
	"github.com/liulanzheng/overlaybd/segidx"
)

// File is the composed virtual volume: pread resolves through a
// ComboIndex and fans out to whichever layer's data file owns each
// returned mapping; pwrite always goes to the RW top.
type File struct {
	upper  *layer.RW
	lowers []*layer.RO // newest first, tag i+1
	combo  *combo.Index
	vsize  int64

	ownUpper  bool
	ownLowers bool
}

// OpenFilesRO opens each of files as an RO layer (§4.4 "open_files_ro").
// files[0] is treated as the newest.
func OpenFilesRO(files []back.File, log *lsmlog.Logger) ([]*layer.RO, error) {
	ros := make([]*layer.RO, 0, len(files))
	for i, f := range files {
		ro, err := layer.Open(f, log)
		if err != nil {
			for _, opened := range ros {
				_ = opened.Close()
			}
			return nil, lsmerr.Wrap(lsmerr.KindFormat, err, "open RO layer %d", i)
		}
		ros = append(ros, ro)
	}
	return ros, nil
}

// StackFiles composes upper on top of lowers (newest first), per §4.4
// "stack_files(upper_rw, lower_stack, vsize, take_ownership)". When
// takeOwnership is true, File.Close cascades to upper and every lower;
// otherwise the caller retains them (§9 "ownership of stacked layers").
func StackFiles(upper *layer.RW, lowers []*layer.RO, vsize int64, takeOwnership bool) *File {
	roIdx := make([]*segidx.Index, len(lowers))
	for i, l := range lowers {
		roIdx[i] = l.Index()
	}
	return &File{
		upper:     upper,
		lowers:    lowers,
		combo:     combo.New(upper.Index(), roIdx),
		vsize:     vsize,
		ownUpper:  takeOwnership,
		ownLowers: takeOwnership,
	}
}

func (f *File) VSize() int64 { return f.vsize }

// source resolves a mapping's owning layer: tag 0 is the RW top,
// tag >= 1 indexes into lowers (§4.4 "pread ... issue a read against
// the mapping's owning layer").
func (f *File) source(m segidx.SegmentMapping) layer.Source {
	if m.Tag == 0 {
		return f.upper.DataFile()
	}
	return f.lowers[m.Tag-1].DataFile()
}

// Pread resolves the query through the ComboIndex and reads each
// returned mapping from its owning layer, concatenating the results
// and zero-filling gaps (§4.4).
func (f *File) Pread(buf []byte, off int64) (int, error) {
	q := segidx.Segment{Offset: off, Length: int64(len(buf))}
	mappings := f.combo.Lookup(q)
	if err := layer.FillFromMappings(buf, q, mappings, f.source); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Pwrite delegates unconditionally to the RW top (§4.4 "pwrite:
// delegated unconditionally to the RW layer"). The ComboIndex reads
// upper.Index() live, so no explicit rebuild is needed after a write.
func (f *File) Pwrite(buf []byte, off int64) (int, error) {
	return f.upper.Pwrite(buf, off)
}

func (f *File) Fsync() error         { return f.upper.Fsync() }
func (f *File) Upper() *layer.RW     { return f.upper }
func (f *File) Lowers() []*layer.RO  { return f.lowers }

// Close closes the composed file. If the stack took ownership of its
// members at construction, Close cascades to them; otherwise the
// caller remains responsible.
func (f *File) Close() error {
	if !f.ownUpper && !f.ownLowers {
		return nil
	}
	var first error
	if f.ownUpper {
		if err := f.upper.Close(); err != nil && first == nil {
			first = err
		}
		if err := f.upper.DataFile().Close(); err != nil && first == nil {
			first = err
		}
	}
	if f.ownLowers {
		for _, l := range f.lowers {
			if err := l.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
