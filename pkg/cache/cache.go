// Package cache provides a generic in-memory keyed store with secondary
// indexes. Iteration follows insertion order and the whole store can be
// snapshotted and restored.
package cache

import "errors"

// ErrIndexNotFound is returned when querying a non-existent index
var ErrIndexNotFound = errors.New("index not found")

// Cache defines the basic interface for a generic cache
type Cache[K comparable, V any] interface {
	// Set adds or updates an item, an update keeps the original position
	Set(key K, value V)
	// Get retrieves an item from the cache
	Get(key K) (V, bool)
	// Del removes an item from the cache
	Del(key K)
	// Len returns the number of items in the cache
	Len() int
	// Keys returns all keys in insertion order
	Keys() []K
	// Values returns all values in insertion order
	Values() []V
	// Clear removes all items from the cache
	Clear()
	// Contains checks if a key exists
	Contains(key K) bool
	// Load imports a slice of items into the cache using a key extractor
	Load(items []V, keyFunc func(V) K)
}

// Store extends Cache with querying capabilities
type Store[K comparable, V any] interface {
	Cache[K, V]

	// AddIndex registers a new secondary index
	AddIndex(name string, extractor func(V) any)

	// RemoveIndex drops a secondary index
	RemoveIndex(name string)

	// Find retrieves items matching the index criteria
	Find(indexName string, indexValue any) ([]V, error)

	// Filter scans the cache and returns items matching the predicate
	Filter(predicate func(V) bool) []V

	// Snapshot copies the items, restore it with Restore
	Snapshot() Snapshot[K, V]

	// Restore replaces the content with a snapshot and rebuilds indexes
	Restore(s Snapshot[K, V])
}

// Snapshot is a point in time copy of a store's items.
// Values are copied shallowly.
type Snapshot[K comparable, V any] struct {
	keys   []K
	values []V
}

// Len returns the number of items in the snapshot.
func (s Snapshot[K, V]) Len() int { return len(s.keys) }
