// Package lsmlog is the ambient logging seam every component takes at
// construction instead of reaching for a package-level global, per the
// "no singletons" design note: an explicit *tlog.Logger travels with
// the object it logs for.
//
// Verbosity gating mirrors the teacher's tl.V("back,access") /
// tl.V("back,truncate") style: callers pass a topic string and only
// pay for the log line when that topic is enabled.
package lsmlog

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Logger wraps *tlog.Logger with the topic-gated helpers this codebase
// uses everywhere: hot paths (index lookups, layer I/O) call V(topic)
// first and skip formatting entirely when the topic is off.
type Logger struct {
	l *tlog.Logger
}

// New wraps an existing *tlog.Logger. Passing nil yields a Logger whose
// calls are all no-ops, so components can be constructed without a
// logger in tests.
func New(l *tlog.Logger) *Logger {
	return &Logger{l: l}
}

// Discard is the zero-value logger: every call is a no-op.
var Discard = &Logger{}

// V reports whether topic is enabled, mirroring tlog's verbosity
// filter. Callers that build an expensive message should guard it:
//
//	if lg.V("index,lookup") {
//	    lg.Printf("index,lookup", "lookup %v -> %d mappings", q, n)
//	}
func (lg *Logger) V(topic string) bool {
	if lg == nil || lg.l == nil {
		return false
	}
	return lg.l.V(topic) != nil
}

// Printf logs under topic if enabled.
func (lg *Logger) Printf(topic, msg string, args ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	if tr := lg.l.V(topic); tr != nil {
		tr.Printf(msg, args...)
	}
}

// Error logs an unconditional error-level event, tagged with the
// caller's location; used at component boundaries where an I/O failure
// is being logged before being propagated (per §7 "I/O failures on the
// underlying media are logged and propagated").
func (lg *Logger) Error(msg string, args ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Printf(msg+" (from %v)", append(args, loc.Caller(1))...)
}
