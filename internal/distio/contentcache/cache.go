// Package contentcache is the File-Content Cache: a weight-bounded LRU from
// (profile, relative path) to cached bytes, MIME type, and content hash.
package contentcache

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedFile is one in-memory cached entry.
type CachedFile struct {
	Bytes []byte
	Sha1  string
	Size  int64
	MIME  string
}

// weight mirrors the spec's weigher: max(1, size_bytes/1024), clamped to the
// 32-bit range the underlying store tracks its total against.
func weight(size int64) uint32 {
	w := size / 1024
	if w < 1 {
		w = 1
	}
	if w > 0xFFFFFFFF {
		w = 0xFFFFFFFF
	}
	return uint32(w)
}

type entry struct {
	value  CachedFile
	weight uint32
}

// Cache is the weight-bounded LRU. Capacity is expressed in KiB (the same
// unit as the weigher); a capacity of 0 means unbounded — entries are never
// evicted. The recency ordering and key/entry bookkeeping is delegated to
// hashicorp/golang-lru/v2; this type adds the byte-weight bound the library
// itself only expresses as an entry count.
type Cache struct {
	mu sync.Mutex

	capacityKB uint64 // 0 == unbounded
	totalKB    uint64

	lru *lru.Cache[string, *entry]

	hits, misses, evictions int64
}

// New builds a Cache bounded to capacityGB gigabytes. capacityGB <= 0 means
// unbounded. The underlying LRU is sized unbounded-by-count; eviction is
// driven entirely by the weight bound below.
func New(capacityGB int64) *Cache {
	var capKB uint64
	if capacityGB > 0 {
		capKB = uint64(capacityGB) * 1024 * 1024
	}
	l, _ := lru.New[string, *entry](math.MaxInt32)
	return &Cache{capacityKB: capKB, lru: l}
}

// Key formats the cache key the spec assigns to (profile, relative path)
// pairs.
func Key(profile, relativePath string) string {
	return profile + "/" + relativePath
}

// Get returns the cached file for key, promoting it to most-recently-used.
func (c *Cache) Get(key string) (CachedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return CachedFile{}, false
	}
	c.hits++
	return e.value, true
}

// Set inserts or replaces key, evicting least-recently-used entries until
// the weighted total fits within capacity.
func (c *Cache) Set(key string, value CachedFile) {
	w := weight(value.Size)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.totalKB -= uint64(old.weight)
	}
	c.lru.Add(key, &entry{value: value, weight: w})
	c.totalKB += uint64(w)
	c.evictUntilFits()
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.lru.Peek(key); ok {
		c.totalKB -= uint64(old.weight)
		c.lru.Remove(key)
	}
}

func (c *Cache) evictUntilFits() {
	if c.capacityKB == 0 {
		return
	}
	for c.totalKB > c.capacityKB {
		_, old, ok := c.lru.RemoveOldest()
		if !ok {
			return
		}
		c.totalKB -= uint64(old.weight)
		c.evictions++
	}
}

// Stats is a point-in-time snapshot for diagnostics.
type Stats struct {
	Hits, Misses, Evictions int64
	TotalWeightKB           uint64
	CapacityKB              uint64
	Entries                 int
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		TotalWeightKB: c.totalKB,
		CapacityKB:    c.capacityKB,
		Entries:       c.lru.Len(),
	}
}
