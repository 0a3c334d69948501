// Package reference implements memoized references: derived
// computations cached against the combined tag of everything they read.
//
// A Cached wraps a zero-argument computation. Its first Value call runs
// the computation inside a tracking frame and stores the result, the
// frame's combined tag, and a revision snapshot. Later calls validate
// the snapshot and reuse the cached result until some dependency is
// dirtied. Nothing subscribes to anything; staleness is discovered
// lazily, at read time.
//
// On top of Cached, State builds path-reference chains over arbitrary
// object graphs: State(contact).Get("person").Get("fullName") resolves
// lazily, each hop independently memoized, so a deep read only
// recomputes the hops whose dependencies actually changed.
package reference
