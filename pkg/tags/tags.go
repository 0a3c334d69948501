package tags

import (
	"errors"
	"sync/atomic"

	"github.com/lumen-ui/lumen/pkg/observe"
)

// ErrInvalidOperation is the panic value when Dirty is called on a tag
// that is not updatable. Dirtying a constant or combinator tag is a
// programming error in the caller, never a recoverable condition.
var ErrInvalidOperation = errors.New("lumen: cannot dirty a non-updatable tag")

// Tag is the interface shared by the three tag variants: the constant
// tag, updatable tags, and combinator tags built by Combine. The
// interface is closed; only this package implements it.
type Tag interface {
	// revision reports the latest revision at which anything reachable
	// from this tag was dirtied.
	revision() Revision
}

// constantTag is the variant for values that can never change.
type constantTag struct{}

func (constantTag) revision() Revision { return Initial }

// ConstantTag is the shared tag for immutable values. It validates
// against any snapshot, forever. Handing it out is how the engine says
// "this read can never invalidate anything".
var ConstantTag Tag = constantTag{}

// UpdatableTag is the variant owned by a single mutable cell. It
// records the revision at which the cell was last dirtied.
type UpdatableTag struct {
	id          uint64
	lastDirtied atomic.Uint64
}

// NewUpdatable creates a fresh updatable tag at the Initial revision.
func NewUpdatable() *UpdatableTag {
	t := &UpdatableTag{id: nextID()}
	t.lastDirtied.Store(uint64(Initial))
	return t
}

// ID returns the tag's unique identifier.
func (t *UpdatableTag) ID() uint64 { return t.id }

func (t *UpdatableTag) revision() Revision {
	return Revision(t.lastDirtied.Load())
}

// dirty bumps the clock and records the new revision on the tag.
func (t *UpdatableTag) dirty() Revision {
	rev := bump()
	// Concurrent dirties can race the store; keep the max so the tag's
	// own revision never regresses.
	for {
		old := t.lastDirtied.Load()
		if old >= uint64(rev) || t.lastDirtied.CompareAndSwap(old, uint64(rev)) {
			break
		}
	}
	if observe.Enabled() {
		observe.Emit(observe.Event{Kind: observe.KindDirty, ID: t.id, Revision: uint64(rev)})
	}
	return rev
}

// combinatorTag is the variant produced by Combine over two or more
// non-constant tags. Its revision is the max over its children,
// recomputed on every call; caching happens one layer up in the
// memoized reference that holds the combinator.
type combinatorTag struct {
	children []Tag
}

func (c *combinatorTag) revision() Revision {
	max := Initial
	for _, child := range c.children {
		if rev := child.revision(); rev > max {
			max = rev
		}
	}
	return max
}

// Value returns the latest revision at which anything reachable from t
// was dirtied. A nil tag reads as constant.
func Value(t Tag) Revision {
	if t == nil {
		return Initial
	}
	return t.revision()
}

// Validate reports whether nothing reachable from t was dirtied since
// snapshot was taken via Value.
func Validate(t Tag, snapshot Revision) bool {
	valid := Value(t) <= snapshot
	if observe.Enabled() {
		var id uint64
		if u, ok := t.(*UpdatableTag); ok {
			id = u.id
		}
		observe.Emit(observe.Event{Kind: observe.KindValidate, ID: id, Valid: valid})
	}
	return valid
}

// Dirty marks an updatable tag as changed, advancing the clock. Panics
// with ErrInvalidOperation for any other tag variant.
func Dirty(t Tag) {
	u, ok := t.(*UpdatableTag)
	if !ok {
		panic(ErrInvalidOperation)
	}
	u.dirty()
}

// IsConst reports whether t can never invalidate: nil or the constant
// tag. Combinators are never constant; Combine collapses those cases.
func IsConst(t Tag) bool {
	return t == nil || t == ConstantTag
}

// Combine collapses a set of tags into a single tag:
//
//   - empty, or only constants: ConstantTag
//   - exactly one non-constant tag: that tag, unwrapped
//   - otherwise: a combinator over the deduplicated non-constant members
func Combine(ts []Tag) Tag {
	var kept []Tag
	var seen map[Tag]struct{}

	for _, t := range ts {
		if IsConst(t) {
			continue
		}
		if seen == nil {
			seen = make(map[Tag]struct{}, len(ts))
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		kept = append(kept, t)
	}

	switch len(kept) {
	case 0:
		return ConstantTag
	case 1:
		return kept[0]
	default:
		return &combinatorTag{children: kept}
	}
}
