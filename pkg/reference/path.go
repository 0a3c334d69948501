package reference

import (
	"reflect"
	"strings"
	"sync"

	"github.com/lumen-ui/lumen/pkg/tags"
	"github.com/lumen-ui/lumen/pkg/tracking"
)

// Ref is one hop in a path-reference chain over an object graph. The
// root holds the object itself; each Get hop reads one property of its
// parent's current value through tracked storage. Every hop is an
// independently memoized Cached, so resolving a.b.c only recomputes
// the hops whose dependencies actually changed.
type Ref struct {
	store  *tracking.Storage
	cached *Cached[any]

	mu       sync.Mutex
	children map[string]*Ref
}

// State builds a root reference over obj using the default storage.
func State(obj any) *Ref {
	return StateIn(tracking.DefaultStorage(), obj)
}

// StateIn builds a root reference over obj bound to store. The root's
// own value is constant; only the properties hanging off it track.
func StateIn(store *tracking.Storage, obj any) *Ref {
	return &Ref{
		store:  store,
		cached: NewCached(func() any { return obj }),
	}
}

// Value returns this hop's current value, consuming its combined tag
// into the enclosing tracking frame.
func (r *Ref) Value() any {
	return r.cached.Value()
}

// Tag returns the combined tag from this hop's last resolution, or nil
// before the first Value call.
func (r *Ref) Tag() tags.Tag {
	return r.cached.Tag()
}

// Get returns the child reference for key. The same key always yields
// the same child, so each path segment is memoized exactly once no
// matter how many times the path is walked.
func (r *Ref) Get(key string) *Ref {
	r.mu.Lock()
	defer r.mu.Unlock()

	if child, ok := r.children[key]; ok {
		return child
	}

	parent := r
	child := &Ref{
		store: r.store,
		cached: NewCached(func() any {
			return readProperty(parent.store, parent.cached.Value(), key)
		}),
	}
	if r.children == nil {
		r.children = make(map[string]*Ref)
	}
	r.children[key] = child
	return child
}

// GetPath resolves a dotted path ("person.fullName") to its leaf
// reference.
func (r *Ref) GetPath(path string) *Ref {
	ref := r
	for _, key := range strings.Split(path, ".") {
		ref = ref.Get(key)
	}
	return ref
}

// readProperty reads key off base, consuming the cell tag for
// (base, key). Values written through tracked storage win; otherwise
// the property is read off the object itself.
func readProperty(store *tracking.Storage, base any, key string) any {
	if base == nil {
		return nil
	}

	// Host-facing keys like "firstName" and the Go field FirstName
	// must share one cell, so canonicalize before touching storage.
	key = canonicalKey(base, key)

	tracking.ConsumeTag(store.TagFor(base, key))

	if value, ok := store.Lookup(base, key); ok {
		return value
	}
	return reflectGet(base, key)
}

// canonicalKey maps key onto the exported field name it addresses when
// base is (a pointer to) a struct: exact match first, then
// case-insensitive. Non-struct bases and unknown keys pass through.
func canonicalKey(base any, key string) string {
	typ := reflect.TypeOf(base)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return key
	}
	if _, ok := typ.FieldByName(key); ok {
		return key
	}
	for i := 0; i < typ.NumField(); i++ {
		if name := typ.Field(i).Name; strings.EqualFold(name, key) {
			return name
		}
	}
	return key
}

// reflectGet reads key off base by reflection: map index for
// string-keyed maps, exported field for structs. key is already
// canonical. Missing properties read as nil.
func reflectGet(base any, key string) any {
	v := reflect.ValueOf(base)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		kt := v.Type().Key()
		if kt.Kind() != reflect.String {
			return nil
		}
		mv := v.MapIndex(reflect.ValueOf(key).Convert(kt))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()

	case reflect.Struct:
		if f := v.FieldByName(key); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	return nil
}
