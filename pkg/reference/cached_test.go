package reference

import (
	"testing"

	"github.com/lumen-ui/lumen/pkg/tags"
	"github.com/lumen-ui/lumen/pkg/tracking"
)

type testNames struct {
	FirstName string
	LastName  string
}

func TestCachedComputesLazily(t *testing.T) {
	calls := 0
	ref := NewCached(func() int {
		calls++
		return 42
	})

	if calls != 0 {
		t.Fatal("computation must not run before the first Value call")
	}
	if ref.Value() != 42 {
		t.Error("expected 42")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestCachedIdempotentRead(t *testing.T) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")

	calls := 0
	ref := NewCached(func() string {
		calls++
		value, _ := store.Get(p, "FirstName")
		return value.(string)
	})

	if ref.Value() != "Tom" || ref.Value() != "Tom" {
		t.Error("expected Tom")
	}
	if calls != 1 {
		t.Errorf("second read must be cache-served, got %d calls", calls)
	}
}

func TestCachedRecomputesAfterWrite(t *testing.T) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")
	store.Set(p, "LastName", "Dale")

	calls := 0
	fullName := NewCached(func() string {
		calls++
		first, _ := store.Get(p, "FirstName")
		last, _ := store.Get(p, "LastName")
		return first.(string) + " " + last.(string)
	})

	if fullName.Value() != "Tom Dale" {
		t.Errorf("expected Tom Dale, got %q", fullName.Value())
	}

	store.Set(p, "FirstName", "Edsger")
	if fullName.Value() != "Edsger Dale" {
		t.Errorf("expected Edsger Dale, got %q", fullName.Value())
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 computations, got %d", calls)
	}
}

func TestCachedUnrelatedWriteDoesNotRecompute(t *testing.T) {
	store := tracking.NewStorage()
	p := &testNames{}
	unrelated := &testNames{}
	store.Set(p, "FirstName", "Tom")

	calls := 0
	ref := NewCached(func() any {
		calls++
		value, _ := store.Get(p, "FirstName")
		return value
	})
	_ = ref.Value()

	store.Set(unrelated, "FirstName", "Grace")
	_ = ref.Value()
	if calls != 1 {
		t.Errorf("unrelated write must not trigger recompute, got %d calls", calls)
	}
}

func TestCachedReentrancy(t *testing.T) {
	// A computation reading two independently tracked cells through a
	// nested reference must invalidate when either changes, and stay
	// valid when an unrelated cell changes.
	store := tracking.NewStorage()
	a, b, c := &testNames{}, &testNames{}, &testNames{}
	store.Set(a, "FirstName", "A")
	store.Set(b, "FirstName", "B")
	store.Set(c, "FirstName", "C")

	inner := NewCached(func() any {
		value, _ := store.Get(b, "FirstName")
		return value
	})

	outerCalls := 0
	outer := NewCached(func() string {
		outerCalls++
		value, _ := store.Get(a, "FirstName")
		return value.(string) + inner.Value().(string)
	})

	if outer.Value() != "AB" {
		t.Errorf("expected AB, got %q", outer.Value())
	}

	store.Set(c, "FirstName", "X")
	_ = outer.Value()
	if outerCalls != 1 {
		t.Errorf("unrelated dirty must not invalidate, got %d calls", outerCalls)
	}

	store.Set(a, "FirstName", "A2")
	if outer.Value() != "A2B" {
		t.Errorf("expected A2B, got %q", outer.Value())
	}

	// The inner reference's dependencies propagate to the outer frame:
	// dirtying b recomputes outer even though outer never read b
	// directly.
	store.Set(b, "FirstName", "B2")
	if outer.Value() != "A2B2" {
		t.Errorf("expected A2B2, got %q", outer.Value())
	}
	if outerCalls != 3 {
		t.Errorf("expected 3 computations, got %d", outerCalls)
	}
}

func TestCachedTagSnapshot(t *testing.T) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")

	ref := NewCached(func() any {
		value, _ := store.Get(p, "FirstName")
		return value
	})

	if ref.Tag() != nil {
		t.Error("tag should be nil before the first evaluation")
	}

	_ = ref.Value()
	tag := ref.Tag()
	if tag == nil {
		t.Fatal("tag should be set after evaluation")
	}
	if !tags.Validate(tag, tags.Value(tag)) {
		t.Error("freshly computed tag should validate against its own value")
	}
}

func TestCachedInvalidate(t *testing.T) {
	calls := 0
	ref := NewCached(func() int {
		calls++
		return calls
	})

	if ref.Value() != 1 || ref.Value() != 1 {
		t.Error("expected stable cached value")
	}

	ref.Invalidate()
	if ref.Value() != 2 {
		t.Error("Invalidate should force recomputation")
	}
}

func TestCachedPeekDoesNotConsume(t *testing.T) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")

	inner := NewCached(func() any {
		value, _ := store.Get(p, "FirstName")
		return value
	})

	combined := tracking.Track(func() {
		_ = inner.Peek()
	})

	snapshot := tags.Value(combined)
	store.Set(p, "FirstName", "Edsger")
	if !tags.Validate(combined, snapshot) {
		t.Error("Peek must not consume the reference's tag into the frame")
	}
}

func TestConstantComputationStaysValid(t *testing.T) {
	calls := 0
	ref := NewCached(func() string {
		calls++
		return "immutable"
	})

	_ = ref.Value()
	if !tags.IsConst(ref.Tag()) {
		t.Error("a computation that reads nothing should carry ConstantTag")
	}

	// Dirty the world; the reference must never recompute.
	for i := 0; i < 5; i++ {
		tags.Dirty(tags.NewUpdatable())
	}
	_ = ref.Value()
	if calls != 1 {
		t.Errorf("constant computation recomputed: %d calls", calls)
	}
}
