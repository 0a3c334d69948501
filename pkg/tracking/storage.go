package tracking

import (
	"reflect"
	"sort"
	"sync"

	"github.com/lumen-ui/lumen/pkg/observe"
	"github.com/lumen-ui/lumen/pkg/tags"
)

// Handle is the stable integer identity issued to an owner object on
// its first tracked access. Handles are never reused.
type Handle uint64

// cell pairs one property's raw value with its updatable tag.
type cell struct {
	value    any
	hasValue bool
	tag      *tags.UpdatableTag
}

// entry is the arena record for one owner: its handle, freeze state,
// and per-key cells.
type entry struct {
	handle   Handle
	typeName string
	frozen   bool
	cells    map[string]*cell
}

// ownerKey is the identity of an owner: its dynamic type plus the
// address of its referent. Only reference-shaped values (pointers and
// maps) have an identity; everything else gets ConstantTag treatment.
type ownerKey struct {
	typ reflect.Type
	ptr uintptr
}

// identityOf resolves an owner to its identity key. ok is false for
// values with no meaningful identity: nil, nil references, and plain
// values passed by copy.
func identityOf(owner any) (ownerKey, bool) {
	if owner == nil {
		return ownerKey{}, false
	}
	v := reflect.ValueOf(owner)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return ownerKey{}, false
		}
		return ownerKey{typ: v.Type(), ptr: v.Pointer()}, true
	default:
		return ownerKey{}, false
	}
}

// Storage is the per-(owner, key) cell table. Cells are created lazily
// on first access and live in an arena owned by the Storage, indexed
// both by owner identity and by handle; an owner's cells are reclaimed
// by an explicit Dispose, never implicitly.
//
// The engine never inspects object shape. The host's object-model
// layer (proxies, generated accessors, whatever it uses) is expected
// to funnel every read and write of a tracked property through Get and
// Set.
type Storage struct {
	mu         sync.Mutex
	byIdent    map[ownerKey]*entry
	byHandle   map[Handle]*entry
	nextHandle Handle

	// tracked is the per-type declaration registry filled by
	// MarkTracked.
	tracked map[reflect.Type]map[string]struct{}
}

// NewStorage creates an empty cell table.
func NewStorage() *Storage {
	return &Storage{
		byIdent:  make(map[ownerKey]*entry),
		byHandle: make(map[Handle]*entry),
		tracked:  make(map[reflect.Type]map[string]struct{}),
	}
}

// entryFor returns the arena entry for owner, creating it (and issuing
// a handle) on first access. Callers hold s.mu.
func (s *Storage) entryFor(ident ownerKey) *entry {
	e, ok := s.byIdent[ident]
	if !ok {
		s.nextHandle++
		e = &entry{
			handle:   s.nextHandle,
			typeName: ident.typ.String(),
			cells:    make(map[string]*cell),
		}
		s.byIdent[ident] = e
		s.byHandle[e.handle] = e
	}
	return e
}

// cellFor returns the cell for (owner, key), creating it on first
// access. Callers hold s.mu.
func (s *Storage) cellFor(e *entry, key string) *cell {
	c, ok := e.cells[key]
	if !ok {
		c = &cell{tag: tags.NewUpdatable()}
		e.cells[key] = c
		if observe.Enabled() {
			observe.Emit(observe.Event{Kind: observe.KindCellCreated, ID: c.tag.ID()})
		}
	}
	return c
}

// TagFor returns the updatable tag for (owner, key), creating the cell
// lazily. Idempotent: the same pair always yields the same tag, frozen
// owners included. Owners with no identity yield ConstantTag; asking
// for a tag on such a value is legal and never fails.
func (s *Storage) TagFor(owner any, key string) tags.Tag {
	ident, ok := identityOf(owner)
	if !ok {
		return tags.ConstantTag
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cellFor(s.entryFor(ident), key).tag
}

// Get returns the stored value and tag for (owner, key), consuming the
// tag into the current tracking frame. The value is the zero any until
// something has been stored through Set.
func (s *Storage) Get(owner any, key string) (any, tags.Tag) {
	tag := s.TagFor(owner, key)
	ConsumeTag(tag)

	value, _ := s.Lookup(owner, key)
	return value, tag
}

// Lookup returns the stored value for (owner, key) without consuming
// the tag, and whether any value has ever been stored there.
func (s *Storage) Lookup(owner any, key string) (any, bool) {
	ident, ok := identityOf(owner)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byIdent[ident]
	if !ok {
		return nil, false
	}
	c, ok := e.cells[key]
	if !ok || !c.hasValue {
		return nil, false
	}
	return c.value, true
}

// Peek is Lookup without the second return, for reads that must not
// create a dependency.
func (s *Storage) Peek(owner any, key string) any {
	value, _ := s.Lookup(owner, key)
	return value
}

// Set stores a new value for (owner, key) and dirties its tag.
//
// Writes against a frozen owner are tolerated as silent no-ops: the
// storage layer cannot always prove the mutation would be observable,
// and a write that cannot land must never turn into a throw at an
// arbitrary call site. Writes against owners with no identity are
// ignored the same way.
func (s *Storage) Set(owner any, key string, value any) {
	ident, ok := identityOf(owner)
	if !ok {
		return
	}

	s.mu.Lock()
	e := s.entryFor(ident)
	if e.frozen {
		s.mu.Unlock()
		return
	}
	c := s.cellFor(e, key)
	c.value = value
	c.hasValue = true
	s.mu.Unlock()

	// Dirty outside the lock; tag state is atomic and sinks may be slow.
	tags.Dirty(c.tag)
}

// Freeze marks owner as immutable: subsequent Sets are silent no-ops.
// Already-created cells keep their tags, which stay valid indefinitely
// unless they were dirtied before the freeze.
func (s *Storage) Freeze(owner any) {
	ident, ok := identityOf(owner)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryFor(ident).frozen = true
}

// IsFrozen reports whether owner has been frozen.
func (s *Storage) IsFrozen(owner any) bool {
	ident, ok := identityOf(owner)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byIdent[ident]
	return ok && e.frozen
}

// Dispose reclaims owner's handle and cells. Tags already captured in
// combinators stay alive through those combinators; the arena just
// stops holding them.
func (s *Storage) Dispose(owner any) {
	ident, ok := identityOf(owner)
	if !ok {
		return
	}

	s.mu.Lock()
	e, ok := s.byIdent[ident]
	if ok {
		delete(s.byHandle, e.handle)
		delete(s.byIdent, ident)
	}
	s.mu.Unlock()

	if !ok || !observe.Enabled() {
		return
	}
	for _, c := range e.cells {
		observe.Emit(observe.Event{Kind: observe.KindCellDisposed, ID: c.tag.ID()})
	}
}

// MarkTracked declares keys of prototype's type as tracked, routing
// their reads and writes through this Storage. prototype is any value
// of the type, typically a pointer to its zero value.
func (s *Storage) MarkTracked(prototype any, keys ...string) {
	typ := indirectType(prototype)
	if typ == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tracked[typ]
	if !ok {
		set = make(map[string]struct{}, len(keys))
		s.tracked[typ] = set
	}
	for _, key := range keys {
		set[key] = struct{}{}
	}
}

// IsTracked reports whether key was declared tracked for owner's type.
// Untracked keys still resolve to a tag via TagFor; they just behave
// as constants unless something explicitly dirties them.
func (s *Storage) IsTracked(owner any, key string) bool {
	typ := indirectType(owner)
	if typ == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracked[typ][key]
	return ok
}

// indirectType resolves a value to its element type through one level
// of pointer indirection.
func indirectType(v any) reflect.Type {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ
}

// CellSnapshot describes one cell for diagnostics.
type CellSnapshot struct {
	Key      string        `json:"key"`
	Revision tags.Revision `json:"revision"`
	HasValue bool          `json:"hasValue"`
}

// OwnerSnapshot describes one owner's arena entry for diagnostics.
type OwnerSnapshot struct {
	Handle Handle         `json:"handle"`
	Type   string         `json:"type"`
	Frozen bool           `json:"frozen"`
	Cells  []CellSnapshot `json:"cells"`
}

// Snapshot returns a point-in-time view of the arena, ordered by
// handle. Intended for the devtools inspector; reads no tags and
// creates no dependencies.
func (s *Storage) Snapshot() []OwnerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners := make([]OwnerSnapshot, 0, len(s.byHandle))
	for _, e := range s.byHandle {
		snap := OwnerSnapshot{
			Handle: e.handle,
			Type:   e.typeName,
			Frozen: e.frozen,
			Cells:  make([]CellSnapshot, 0, len(e.cells)),
		}
		for key, c := range e.cells {
			snap.Cells = append(snap.Cells, CellSnapshot{
				Key:      key,
				Revision: tags.Value(c.tag),
				HasValue: c.hasValue,
			})
		}
		sort.Slice(snap.Cells, func(i, j int) bool { return snap.Cells[i].Key < snap.Cells[j].Key })
		owners = append(owners, snap)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].Handle < owners[j].Handle })
	return owners
}
