package tracking

import (
	"sync"
	"testing"

	"github.com/lumen-ui/lumen/pkg/tags"
)

func TestConsumeOutsideFrameIsNoop(t *testing.T) {
	// Reading outside any tracked computation is legal and must never
	// panic or record anything.
	u := tags.NewUpdatable()
	ConsumeTag(u)

	if IsTracking() {
		t.Error("IsTracking should be false outside any frame")
	}
}

func TestTrackCombinesConsumedTags(t *testing.T) {
	a, b := tags.NewUpdatable(), tags.NewUpdatable()

	combined := Track(func() {
		ConsumeTag(a)
		ConsumeTag(b)
	})

	snapshot := tags.Value(combined)
	tags.Dirty(a)
	if tags.Validate(combined, snapshot) {
		t.Error("combined tag should invalidate when a member is dirtied")
	}

	snapshot = tags.Value(combined)
	tags.Dirty(b)
	if tags.Validate(combined, snapshot) {
		t.Error("combined tag should invalidate when the other member is dirtied")
	}

	// Unrelated tag must not invalidate.
	snapshot = tags.Value(combined)
	tags.Dirty(tags.NewUpdatable())
	if !tags.Validate(combined, snapshot) {
		t.Error("unrelated dirty should not invalidate the combined tag")
	}
}

func TestEmptyFrameYieldsConstant(t *testing.T) {
	combined := Track(func() {})

	if !tags.IsConst(combined) {
		t.Error("a frame that consumed nothing should combine to ConstantTag")
	}
}

func TestFramesNest(t *testing.T) {
	a, b := tags.NewUpdatable(), tags.NewUpdatable()

	var inner tags.Tag
	outer := Track(func() {
		ConsumeTag(a)
		inner = Track(func() {
			ConsumeTag(b)
		})
	})

	// Inner consumption stays in the inner frame.
	outerSnapshot := tags.Value(outer)
	innerSnapshot := tags.Value(inner)
	tags.Dirty(b)
	if tags.Validate(inner, innerSnapshot) {
		t.Error("inner tag should reflect b's dirty")
	}
	if !tags.Validate(outer, outerSnapshot) {
		t.Error("outer frame should not contain tags consumed only in the inner frame")
	}

	snapshot := tags.Value(outer)
	tags.Dirty(a)
	if tags.Validate(outer, snapshot) {
		t.Error("outer frame should contain a")
	}
}

func TestEndFrameUnpairedPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("EndFrame without BeginFrame should panic")
		}
		if r != ErrUnpairedFrame {
			t.Errorf("panicked with %v, want ErrUnpairedFrame", r)
		}
	}()
	EndFrame()
}

func TestTrackClosesFrameOnPanic(t *testing.T) {
	func() {
		defer func() { recover() }()
		Track(func() {
			panic("computation failed")
		})
	}()

	if IsTracking() {
		t.Error("a panicking computation must not leave its frame open")
	}
}

func TestUntrack(t *testing.T) {
	a, b := tags.NewUpdatable(), tags.NewUpdatable()

	combined := Track(func() {
		ConsumeTag(a)
		Untrack(func() {
			if IsTracking() {
				t.Error("IsTracking should be false inside Untrack")
			}
			ConsumeTag(b)
		})
	})

	snapshot := tags.Value(combined)
	tags.Dirty(b)
	if !tags.Validate(combined, snapshot) {
		t.Error("tags consumed under Untrack must not be recorded")
	}

	snapshot = tags.Value(combined)
	tags.Dirty(a)
	if tags.Validate(combined, snapshot) {
		t.Error("tags consumed outside Untrack must still be recorded")
	}
}

func TestFrameDeduplicatesConsumption(t *testing.T) {
	u := tags.NewUpdatable()

	combined := Track(func() {
		ConsumeTag(u)
		ConsumeTag(u)
		ConsumeTag(u)
	})

	if combined != tags.Tag(u) {
		t.Error("consuming one tag repeatedly should combine to the tag itself")
	}
}

func TestTrackingIsolatedPerGoroutine(t *testing.T) {
	u := tags.NewUpdatable()

	var wg sync.WaitGroup
	wg.Add(1)

	combined := Track(func() {
		// A concurrent goroutine's reads must not land in this frame.
		go func() {
			defer wg.Done()
			ConsumeTag(u)
		}()
		wg.Wait()
	})

	if !tags.IsConst(combined) {
		t.Error("tracking must never cross goroutine boundaries")
	}
}
