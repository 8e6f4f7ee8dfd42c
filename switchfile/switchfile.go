// Package switchfile implements the hot-swap read source wrapper (spec
// §4.7): a file that forwards I/O to a current backing file and can be
// atomically swapped onto a new one, draining in-flight operations
// before the swap and parking the old file for the caller to dispose
// of.
//
// Grounded on the teacher's DB.safe/write generation-counter pattern
// (xrain.go): two counters gate readers against a writer during a
// page-layout transition. Here the two "generations" are collapsed
// into a three-state (S0/S1/S2) machine driven with sync/atomic, and
// the in-flight counter takes the role of the teacher's keepl
// ref-counted page tracking (xrain.go's "keepl map[int64]int" —
// pages kept alive until their readers release them).
package switchfile

import (
	"sync"
	"sync/atomic"

	"github.com/liulanzheng/overlaybd/back"
	"github.com/liulanzheng/overlaybd/lsmerr"
)

const (
	s0Normal   = 0
	s1Requested = 1
	s2Switching = 2
)

// Opener produces a fresh back.File for a newly nominated path, doing
// whatever wrapping (tar, compression) the caller's stack requires.
type Opener func(path string) (back.File, error)

// File wraps a back.File, forwarding I/O to the current backing file
// and supporting an atomic hot-swap onto a newly opened one (§4.7).
type File struct {
	state    uint32 // s0Normal | s1Requested | s2Switching
	inFlight int64

	mu      sync.Mutex
	current atomic.Pointer[back.File]
	pending string
	opener  Opener

	parked []back.File // old files awaiting caller disposal
}

// New wraps an already-open initial back.File.
func New(initial back.File, opener Opener) *File {
	f := &File{opener: opener}
	f.current.Store(&initial)
	return f
}

// RequestSwitch nominates a new path for the next gate pass to swap
// onto (S0 → S1, per §4.7 "S1 switch-requested"). Returns
// lsmerr.ErrNotSupported if a switch is already pending or in
// progress.
func (f *File) RequestSwitch(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !atomic.CompareAndSwapUint32(&f.state, s0Normal, s1Requested) {
		return lsmerr.ErrNotSupported
	}
	f.pending = path
	return nil
}

// enter is the gate every I/O operation passes through (§4.7
// "Operations enter through a gate"): it increments the in-flight
// counter on S0, cooperatively waits out S2, and drives an S1
// transition through the swap before proceeding.
func (f *File) enter() *back.File {
	for {
		switch atomic.LoadUint32(&f.state) {
		case s0Normal:
			atomic.AddInt64(&f.inFlight, 1)
			if atomic.LoadUint32(&f.state) != s0Normal {
				// Raced with a transition out of S0; back off and retry.
				atomic.AddInt64(&f.inFlight, -1)
				continue
			}
			return f.current.Load()
		case s2Switching:
			// cooperative spin: the switch is short (drain + open).
			continue
		case s1Requested:
			f.trySwitch()
		}
	}
}

func (f *File) leave() {
	atomic.AddInt64(&f.inFlight, -1)
}

// trySwitch performs the S1 → S2 → S0 transition: drains in-flight
// operations, opens the nominated path, assigns it atomically, and
// parks the old file (§4.7). A failed open leaves state briefly at S2
// then resets to S0, leaving the old file in place and usable.
func (f *File) trySwitch() {
	if !atomic.CompareAndSwapUint32(&f.state, s1Requested, s2Switching) {
		return
	}

	for atomic.LoadInt64(&f.inFlight) > 0 {
		// drain
	}

	f.mu.Lock()
	path := f.pending
	f.pending = ""
	f.mu.Unlock()

	newFile, err := f.opener(path)
	if err != nil {
		atomic.StoreUint32(&f.state, s0Normal)
		return
	}

	old := f.current.Swap(&newFile)

	f.mu.Lock()
	f.parked = append(f.parked, *old)
	f.mu.Unlock()

	atomic.StoreUint32(&f.state, s0Normal)
}

// ReadAt forwards to the current backing file through the swap gate.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	cur := f.enter()
	defer f.leave()
	return (*cur).ReadAt(p, off)
}

// WriteAt forwards to the current backing file through the swap gate.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	cur := f.enter()
	defer f.leave()
	return (*cur).WriteAt(p, off)
}

// Size forwards to the current backing file through the swap gate.
func (f *File) Size() (int64, error) {
	cur := f.enter()
	defer f.leave()
	return (*cur).Size()
}

// TakeParked drains and returns files parked by prior swaps, for the
// caller to close at its convenience (§4.7 "parks the old file for
// later disposal").
func (f *File) TakeParked() []back.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	parked := f.parked
	f.parked = nil
	return parked
}

// Close closes the current backing file and any still-parked ones.
func (f *File) Close() error {
	cur := f.current.Load()
	var first error
	if err := (*cur).Close(); err != nil {
		first = err
	}
	for _, p := range f.TakeParked() {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
