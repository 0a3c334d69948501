package reference

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumen-ui/lumen/pkg/observe"
	"github.com/lumen-ui/lumen/pkg/tags"
	"github.com/lumen-ui/lumen/pkg/tracking"
)

// refIDCounter is the source of unique IDs for references.
var refIDCounter atomic.Uint64

func nextRefID() uint64 {
	return refIDCounter.Add(1)
}

// Cached is a memoized reference: a derived computation whose result is
// cached against the combined tag of everything it read.
//
// The cache holds (revision snapshot, value, tag). The cached value is
// valid exactly when the tag still validates against the snapshot; the
// first call always computes, later calls compute only after a
// dependency was dirtied.
//
// Reading a Cached inside another tracked computation consumes its
// combined tag into the enclosing frame, so dependencies propagate
// through arbitrarily nested reference chains.
//
// A Cached's computation must not read the Cached itself.
type Cached[T any] struct {
	id   uint64
	eval func() T

	mu           sync.Mutex
	tag          tags.Tag
	lastRevision tags.Revision
	lastValue    T
}

// NewCached creates a memoized reference over eval. The computation is
// not run until the first Value call.
func NewCached[T any](eval func() T) *Cached[T] {
	return &Cached[T]{id: nextRefID(), eval: eval}
}

// ID returns the reference's unique identifier.
func (r *Cached[T]) ID() uint64 { return r.id }

// Value returns the computation's result, recomputing only when a
// dependency changed since the cached snapshot was taken. Either way,
// the reference's combined tag is consumed into the enclosing tracking
// frame, if one is open.
func (r *Cached[T]) Value() T {
	value, tag := r.resolve()
	tracking.ConsumeTag(tag)
	return value
}

// Peek returns the computation's result without consuming its tag.
// Still recomputes when stale.
func (r *Cached[T]) Peek() T {
	value, _ := r.resolve()
	return value
}

// Tag returns the combined tag from the last computation, or nil if
// the reference has never been evaluated.
func (r *Cached[T]) Tag() tags.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tag
}

// Invalidate discards the cached snapshot, forcing the next Value call
// to recompute regardless of tag validity.
func (r *Cached[T]) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tag = nil
}

// resolve returns the current value and combined tag, recomputing if
// the cache is missing or stale. The lock is released by defer so a
// panicking computation propagates without poisoning the reference.
func (r *Cached[T]) resolve() (T, tags.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tag != nil && tags.Validate(r.tag, r.lastRevision) {
		if observe.Enabled() {
			observe.Emit(observe.Event{Kind: observe.KindCacheHit, ID: r.id})
		}
		return r.lastValue, r.tag
	}

	start := time.Now()

	var result T
	tag := tracking.Track(func() {
		result = r.eval()
	})

	r.tag = tag
	r.lastRevision = tags.Value(tag)
	r.lastValue = result

	if observe.Enabled() {
		observe.Emit(observe.Event{
			Kind:     observe.KindRecompute,
			ID:       r.id,
			Revision: uint64(tags.Value(tag)),
			Duration: time.Since(start),
		})
	}
	return result, tag
}
