package directory

import (
	"sync"
	"time"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
)

type cachedEntry struct {
	entry    models.DirectoryEntry
	storedAt time.Time
}

// Cache keeps directory entries past their TTL so they can serve as a
// fallback while the directory is down. Get reports whether the entry is
// still fresh.
type Cache struct {
	mu         sync.RWMutex
	entries    map[id.CitizenID]cachedEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewCache(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[id.CitizenID]cachedEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *Cache) Save(entry *models.DirectoryEntry) {
	if entry == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[entry.CitizenID]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[entry.CitizenID] = cachedEntry{entry: *entry, storedAt: c.now()}
}

func (c *Cache) Get(citizenID id.CitizenID) (entry *models.DirectoryEntry, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[citizenID]
	if !ok {
		return nil, false, false
	}
	e := cached.entry
	return &e, c.now().Sub(cached.storedAt) < c.ttl, true
}

// evictOldest must be called with the lock held.
func (c *Cache) evictOldest() {
	var (
		oldest id.CitizenID
		at     time.Time
		found  bool
	)
	for k, v := range c.entries {
		if !found || v.storedAt.Before(at) {
			oldest, at, found = k, v.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}
