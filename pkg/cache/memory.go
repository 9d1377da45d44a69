package cache

import (
	"sort"
	"sync"
)

// MemoryCache implements a thread-safe in-memory store with indexing support.
type MemoryCache[K comparable, V any] struct {
	mu sync.RWMutex

	// data stores the primary key-value pairs
	data map[K]V

	// seq records insertion order
	seq  map[K]uint64
	next uint64

	// extractors stores function to extract index values from items
	extractors map[string]func(V) any

	// indices stores the index data: indexName -> indexValue -> set of keys
	indices map[string]map[any]map[K]struct{}
}

var _ Store[string, int] = (*MemoryCache[string, int])(nil)

// NewMemoryCache creates a new instance of MemoryCache
func NewMemoryCache[K comparable, V any]() *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		data:       make(map[K]V),
		seq:        make(map[K]uint64),
		extractors: make(map[string]func(V) any),
		indices:    make(map[string]map[any]map[K]struct{}),
	}
}

// Set adds or updates an item in the cache
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// Load imports a slice of items into the cache using a key extractor
func (c *MemoryCache[K, V]) Load(items []V, keyFunc func(V) K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range items {
		c.set(keyFunc(item), item)
	}
}

// Get retrieves an item from the cache
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

// Del removes an item from the cache
func (c *MemoryCache[K, V]) Del(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if oldValue, exists := c.data[key]; exists {
		c.removeFromIndexes(key, oldValue)
		delete(c.data, key)
		delete(c.seq, key)
	}
}

// Keys returns all keys in insertion order
func (c *MemoryCache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orderedKeys()
}

// Values returns all values in insertion order
func (c *MemoryCache[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.orderedKeys()
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, c.data[k])
	}
	return values
}

// Len returns the number of items in the cache
func (c *MemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Contains checks if a key exists
func (c *MemoryCache[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.data[key]
	return exists
}

// AddIndex registers a new secondary index
func (c *MemoryCache[K, V]) AddIndex(name string, extractor func(V) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extractors[name] = extractor
	c.indices[name] = make(map[any]map[K]struct{})

	// Re-index existing data
	for k, v := range c.data {
		c.addIndexEntry(name, extractor(v), k)
	}
}

// RemoveIndex drops a secondary index
func (c *MemoryCache[K, V]) RemoveIndex(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.extractors, name)
	delete(c.indices, name)
}

// Find retrieves items matching the index criteria, in insertion order
func (c *MemoryCache[K, V]) Find(indexName string, indexValue any) ([]V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.extractors[indexName]; !ok {
		return nil, ErrIndexNotFound
	}

	keySet := c.indices[indexName][indexValue]
	keys := make([]K, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	c.sortKeys(keys)

	results := make([]V, 0, len(keys))
	for _, k := range keys {
		if val, exists := c.data[k]; exists {
			results = append(results, val)
		}
	}
	return results, nil
}

// Filter scans the cache in insertion order and returns items matching the predicate
func (c *MemoryCache[K, V]) Filter(predicate func(V) bool) []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []V
	for _, k := range c.orderedKeys() {
		if v := c.data[k]; predicate(v) {
			results = append(results, v)
		}
	}
	return results
}

// Snapshot copies the items in insertion order
func (c *MemoryCache[K, V]) Snapshot() Snapshot[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.orderedKeys()
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = c.data[k]
	}
	return Snapshot[K, V]{keys: keys, values: values}
}

// Restore replaces the content with s, keeping the registered indexes
func (c *MemoryCache[K, V]) Restore(s Snapshot[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for i, k := range s.keys {
		c.set(k, s.values[i])
	}
}

// Internal helper methods (assumes lock is held)

func (c *MemoryCache[K, V]) set(key K, value V) {
	if oldValue, exists := c.data[key]; exists {
		c.removeFromIndexes(key, oldValue)
	} else {
		c.next++
		c.seq[key] = c.next
	}
	c.data[key] = value
	c.addToIndexes(key, value)
}

func (c *MemoryCache[K, V]) reset() {
	c.data = make(map[K]V)
	c.seq = make(map[K]uint64)
	c.indices = make(map[string]map[any]map[K]struct{})
	for name := range c.extractors {
		c.indices[name] = make(map[any]map[K]struct{})
	}
}

func (c *MemoryCache[K, V]) orderedKeys() []K {
	keys := make([]K, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	c.sortKeys(keys)
	return keys
}

func (c *MemoryCache[K, V]) sortKeys(keys []K) {
	sort.Slice(keys, func(i, j int) bool { return c.seq[keys[i]] < c.seq[keys[j]] })
}

func (c *MemoryCache[K, V]) addToIndexes(key K, value V) {
	for name, extractor := range c.extractors {
		c.addIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) removeFromIndexes(key K, value V) {
	for name, extractor := range c.extractors {
		c.removeIndexEntry(name, extractor(value), key)
	}
}

func (c *MemoryCache[K, V]) addIndexEntry(indexName string, indexValue any, key K) {
	index, ok := c.indices[indexName]
	if !ok {
		index = make(map[any]map[K]struct{})
		c.indices[indexName] = index
	}

	keySet, ok := index[indexValue]
	if !ok {
		keySet = make(map[K]struct{})
		index[indexValue] = keySet
	}
	keySet[key] = struct{}{}
}

func (c *MemoryCache[K, V]) removeIndexEntry(indexName string, indexValue any, key K) {
	if index, ok := c.indices[indexName]; ok {
		if keySet, ok := index[indexValue]; ok {
			delete(keySet, key)
			if len(keySet) == 0 {
				delete(index, indexValue)
			}
		}
	}
}
