package tracking

import "github.com/lumen-ui/lumen/pkg/tags"

// defaultStorage backs the package-level entry points. Hosts that need
// partitioned tables (one per worker, say) create their own Storage;
// everything else shares this one.
var defaultStorage = NewStorage()

// DefaultStorage returns the process-wide storage used by the
// package-level functions.
func DefaultStorage() *Storage { return defaultStorage }

// TagFor returns the updatable tag for (owner, key) in the default
// storage. Idempotent per pair.
func TagFor(owner any, key string) tags.Tag {
	return defaultStorage.TagFor(owner, key)
}

// Get reads (owner, key) from the default storage, consuming its tag.
func Get(owner any, key string) (any, tags.Tag) {
	return defaultStorage.Get(owner, key)
}

// Set writes (owner, key) in the default storage, dirtying its tag.
func Set(owner any, key string, value any) {
	defaultStorage.Set(owner, key, value)
}

// MarkTracked declares tracked keys on the default storage.
func MarkTracked(prototype any, keys ...string) {
	defaultStorage.MarkTracked(prototype, keys...)
}

// Freeze marks owner immutable in the default storage.
func Freeze(owner any) {
	defaultStorage.Freeze(owner)
}

// Dispose reclaims owner's cells in the default storage.
func Dispose(owner any) {
	defaultStorage.Dispose(owner)
}
