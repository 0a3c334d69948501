package tags

import (
	"sync/atomic"

	"github.com/lumen-ui/lumen/pkg/observe"
)

// Revision is a monotonic stamp issued by the process-wide clock.
// Revisions start at Initial and are never reused.
type Revision uint64

// Initial is the revision every tag starts at. A tag still at Initial
// has never been dirtied.
const Initial Revision = 1

// clock is the process-wide revision counter. Shared by every tag in
// the process so that concurrent dirties are totally ordered.
var clock atomic.Uint64

func init() {
	clock.Store(uint64(Initial))
}

// bump advances the clock and returns the new revision.
func bump() Revision {
	rev := Revision(clock.Add(1))
	if observe.Enabled() {
		observe.Emit(observe.Event{Kind: observe.KindBump, Revision: uint64(rev)})
	}
	return rev
}

// CurrentRevision returns the clock's current value without advancing
// it. Useful for diagnostics; not needed for validation, which snapshots
// through Value.
func CurrentRevision() Revision {
	return Revision(clock.Load())
}

// globalIDCounter is the source of unique IDs for tags.
var globalIDCounter atomic.Uint64

// nextID returns the next unique tag ID. IDs are monotonically
// increasing and never reused.
func nextID() uint64 {
	return globalIDCounter.Add(1)
}
