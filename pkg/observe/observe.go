// Package observe is the instrumentation hub for the reactive engine.
//
// The tag, tracking, and reference packages emit lightweight events
// through this package. When no sink is registered, emission is a
// single atomic load and costs nothing else; sinks (Prometheus, OTel,
// the devtools inspector) opt in via Register.
package observe

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies what happened inside the engine.
type Kind uint8

const (
	// KindBump is a revision clock advance.
	KindBump Kind = iota + 1

	// KindDirty is an updatable tag being dirtied. Revision carries the
	// tag's new revision.
	KindDirty

	// KindValidate is a snapshot validation. Valid carries the outcome.
	KindValidate

	// KindFrameBegin and KindFrameEnd bracket one tracking frame.
	KindFrameBegin
	KindFrameEnd

	// KindCellCreated is a tracked-storage cell being allocated.
	KindCellCreated

	// KindCellDisposed is a tracked-storage cell being reclaimed by an
	// owner Dispose.
	KindCellDisposed

	// KindCacheHit is a memoized reference serving its cached value.
	KindCacheHit

	// KindRecompute is a memoized reference re-running its computation.
	// Duration carries how long the computation took.
	KindRecompute
)

// String returns a short name for the event kind.
func (k Kind) String() string {
	switch k {
	case KindBump:
		return "bump"
	case KindDirty:
		return "dirty"
	case KindValidate:
		return "validate"
	case KindFrameBegin:
		return "frame_begin"
	case KindFrameEnd:
		return "frame_end"
	case KindCellCreated:
		return "cell_created"
	case KindCellDisposed:
		return "cell_disposed"
	case KindCacheHit:
		return "cache_hit"
	case KindRecompute:
		return "recompute"
	default:
		return "unknown"
	}
}

// Event is one occurrence inside the engine. Fields beyond Kind are
// populated only where they apply.
type Event struct {
	Kind Kind

	// ID is the tag, cell, or reference identifier.
	ID uint64

	// Revision is the clock value associated with the event.
	Revision uint64

	// Valid is the outcome of a validation.
	Valid bool

	// Duration is the elapsed time of a recompute.
	Duration time.Duration
}

// Sink receives engine events. Implementations must be safe for
// concurrent use and must not call back into the engine from
// ReactiveEvent (the emitting goroutine may hold engine locks).
type Sink interface {
	ReactiveEvent(Event)
}

var (
	sinkMu  sync.RWMutex
	sinks   []Sink
	enabled atomic.Bool
)

// Register adds a sink and returns a function that removes it.
func Register(s Sink) (unregister func()) {
	sinkMu.Lock()
	sinks = append(sinks, s)
	enabled.Store(true)
	sinkMu.Unlock()

	return func() {
		sinkMu.Lock()
		for i, existing := range sinks {
			if existing == s {
				sinks = append(sinks[:i], sinks[i+1:]...)
				break
			}
		}
		enabled.Store(len(sinks) > 0)
		sinkMu.Unlock()
	}
}

// Enabled reports whether any sink is registered. Emitters may use it
// to skip building event payloads.
func Enabled() bool {
	return enabled.Load()
}

// Emit delivers an event to every registered sink. Cheap no-op when
// nothing is registered.
func Emit(e Event) {
	if !enabled.Load() {
		return
	}

	sinkMu.RLock()
	registered := make([]Sink, len(sinks))
	copy(registered, sinks)
	sinkMu.RUnlock()

	for _, s := range registered {
		s.ReactiveEvent(e)
	}
}
