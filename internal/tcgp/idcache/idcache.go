// Package idcache memoizes the storage identifiers of catalog entities.
//
// Catalog entities are write-once: sets, boosters and cards are created
// by synchronization and never updated or deleted. The cache therefore
// never invalidates or evicts anything; it only grows. Entries are added
// whenever a repository creates or retrieves an entity, so repeated
// lookups during synchronization and later probability queries avoid a
// storage round-trip.
package idcache

import "sync"

type boosterKey struct {
	setKey string
	name   string
}

// Cache maps catalog natural keys to storage-assigned identifiers.
// Safe for concurrent use; reads vastly outnumber writes once
// synchronization has completed.
type Cache struct {
	mu         sync.RWMutex
	setIDs     map[string]int64
	boosterIDs map[boosterKey]int64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		setIDs:     make(map[string]int64),
		boosterIDs: make(map[boosterKey]int64),
	}
}

// SetID returns the cached identifier for the set with the given key.
func (c *Cache) SetID(key string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.setIDs[key]
	return id, ok
}

// PutSetID records the identifier for the set with the given key.
func (c *Cache) PutSetID(key string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setIDs[key] = id
}

// BoosterID returns the cached identifier for the booster named name in
// the set with the given key.
func (c *Cache) BoosterID(setKey, name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.boosterIDs[boosterKey{setKey, name}]
	return id, ok
}

// PutBoosterID records the identifier for a booster by set key and name.
func (c *Cache) PutBoosterID(setKey, name string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boosterIDs[boosterKey{setKey, name}] = id
}
