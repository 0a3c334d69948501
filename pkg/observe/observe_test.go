package observe

import (
	"sync"
	"testing"
)

// recordingSink captures events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) ReactiveEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestEmitAfterLastUnregister(t *testing.T) {
	sink := &recordingSink{}
	unregister := Register(sink)
	unregister()

	// With no live sinks, Emit must be a no-op, not a panic.
	Emit(Event{Kind: KindBump})
	if sink.count() != 0 {
		t.Errorf("emit after unregister should reach no sink, got %d events", sink.count())
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	sink := &recordingSink{}
	unregister := Register(sink)

	if !Enabled() {
		t.Error("Enabled should be true with a sink registered")
	}

	Emit(Event{Kind: KindDirty, ID: 7})
	if sink.count() != 1 {
		t.Errorf("expected 1 event, got %d", sink.count())
	}

	unregister()
	Emit(Event{Kind: KindDirty, ID: 8})
	if sink.count() != 1 {
		t.Errorf("unregistered sink should not receive events, got %d", sink.count())
	}
}

func TestMultipleSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	defer Register(a)()
	defer Register(b)()

	Emit(Event{Kind: KindCacheHit})
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("both sinks should receive the event, got %d and %d", a.count(), b.count())
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindBump:         "bump",
		KindDirty:        "dirty",
		KindValidate:     "validate",
		KindFrameBegin:   "frame_begin",
		KindFrameEnd:     "frame_end",
		KindCellCreated:  "cell_created",
		KindCellDisposed: "cell_disposed",
		KindCacheHit:     "cache_hit",
		KindRecompute:    "recompute",
		Kind(0):          "unknown",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
