package reference

import (
	"testing"

	"github.com/lumen-ui/lumen/pkg/tracking"
)

func BenchmarkCachedHit(b *testing.B) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")

	ref := NewCached(func() any {
		value, _ := store.Get(p, "FirstName")
		return value
	})
	_ = ref.Value()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ref.Value()
	}
}

func BenchmarkCachedRecompute(b *testing.B) {
	store := tracking.NewStorage()
	p := &testNames{}
	store.Set(p, "FirstName", "Tom")

	ref := NewCached(func() any {
		value, _ := store.Get(p, "FirstName")
		return value
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Set(p, "FirstName", i)
		_ = ref.Value()
	}
}

func BenchmarkPathChainHit(b *testing.B) {
	store := tracking.NewStorage()
	p := &pathPerson{FirstName: "Tom"}
	c := &pathContact{Person: p}

	ref := StateIn(store, c).GetPath("person.firstName")
	_ = ref.Value()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ref.Value()
	}
}
