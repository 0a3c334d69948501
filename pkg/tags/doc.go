// Package tags implements the revision clock and validation tags at the
// heart of the reactive engine.
//
// A Tag is an opaque handle for "has anything I depend on changed".
// Every mutable cell owns an updatable tag; derived computations hold a
// combinator tag over everything they read. Validity is checked lazily
// at read time by comparing the tag's current revision against a
// snapshot taken when the cached value was produced:
//
//	tag := tags.NewUpdatable()
//	snapshot := tags.Value(tag)
//	tags.Validate(tag, snapshot) // true
//	tags.Dirty(tag)
//	tags.Validate(tag, snapshot) // false
//
// Nothing is pushed at write time. Dirty is a constant-time bump of the
// process-wide clock; stale values are discovered only when something
// asks for them again. This keeps writes cheap and avoids glitches from
// multi-step updates observed halfway through.
package tags
