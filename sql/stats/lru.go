// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"math"
	"sync"
)

// infiniteDistance stands in for "this item has not yet been accessed a
// second time" in the LRU-K(2) distance computation below — the classic
// LRU-K cold-start rule: an item with fewer than K observed accesses has
// maximal (effectively infinite) backward distance, so it is preferred for
// eviction over anything that has actually been revisited.
const infiniteDistance = int64(math.MaxInt64)

type lruEntry struct {
	key   string
	value []byte
	// history holds up to k of this entry's most recent access sequence
	// numbers, most recent first.
	history []int64
}

// distance returns this entry's backward K-distance at sequence number
// now: the gap since its K-th most-recent access (spec.md §5: "a candidate
// is evicted when the distance to its second-most-recent access exceeds
// that of all other candidates"). An entry that hasn't been accessed K
// times yet is always more evictable than one that has — this is the
// scan-resistance property LRU-K is chosen over plain LRU for, so a single
// one-off reference never displaces something genuinely reused — but
// among several such cold entries, ties break toward whichever was least
// recently touched, by offsetting from its one known access instead of
// returning a single flat constant for all of them.
func (e *lruEntry) distance(now int64, k int) int64 {
	if len(e.history) < k {
		return infiniteDistance - e.history[0]
	}
	return now - e.history[k-1]
}

// LRUK implements the LRU-K eviction policy (spec.md §5) over opaque byte
// values keyed by string. K is fixed at construction — the statistics
// cache always uses K=2 — and the cache evicts synchronously on Set once
// the item count exceeds maxItems, matching
// original_source/opteryx/shared/stats_cache.py's StatsCache wrapping a
// single LRU_K(k=2) and calling evict() itself once MAX_STATISTICS_CACHE_ITEMS
// is exceeded (rather than the cache enforcing its own bound internally).
type LRUK struct {
	mu       sync.Mutex
	k        int
	maxItems int
	seq      int64
	items    map[string]*lruEntry

	hits, misses, evictions, inserts int64
}

// NewLRUK builds an LRU-K cache. maxItems <= 0 means unbounded (the caller
// is responsible for calling Evict itself, as the original's StatsCache
// does after each Set).
func NewLRUK(k, maxItems int) *LRUK {
	return &LRUK{k: k, maxItems: maxItems, items: map[string]*lruEntry{}}
}

// Get retrieves a value, recording the access for the K-distance
// computation and bumping the cache's hit/miss counters.
func (c *LRUK) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.touch(e)
	return e.value, true
}

// Set inserts or overwrites a value, then evicts if maxItems is exceeded.
func (c *LRUK) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		e = &lruEntry{key: key}
		c.items[key] = e
		c.inserts++
	}
	e.value = value
	c.touch(e)

	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictLocked()
	}
}

// Delete removes a key, if present. Deleting an absent key is a no-op.
func (c *LRUK) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Evict removes the single item with the greatest backward K-distance.
func (c *LRUK) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
}

func (c *LRUK) evictLocked() {
	var victim *lruEntry
	maxDist := int64(-1)
	for _, e := range c.items {
		d := e.distance(c.seq, c.k)
		if d > maxDist {
			maxDist = d
			victim = e
		}
	}
	if victim != nil {
		delete(c.items, victim.key)
		c.evictions++
	}
}

func (c *LRUK) touch(e *lruEntry) {
	c.seq++
	e.history = append([]int64{c.seq}, e.history...)
	if len(e.history) > c.k {
		e.history = e.history[:c.k]
	}
}

// Size reports the current item count.
func (c *LRUK) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats reports (hits, misses, evictions, inserts), mirroring the
// original's `stats` property.
func (c *LRUK) Stats() (hits, misses, evictions, inserts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, c.inserts
}
