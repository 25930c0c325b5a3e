// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package scene

import (
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
)

// Defaults for the externally-fed trail history cache.
const (
	DefaultHistoryCapacity = 4096
	DefaultHistoryTTL      = 5 * time.Minute
)

// historyEntry is one object's retained trail state plus the linked-list
// plumbing for LRU ordering.
type historyEntry struct {
	key       string
	trail     []geometry.Point
	lastSeen  geometry.Point
	expiresAt time.Time
	prev      *historyEntry
	next      *historyEntry
}

// historyCache preserves per-object published-location trails across
// frames in externally-fed mode, where objects are rebuilt from records
// every frame and would otherwise lose their movement history. It is a
// bounded LRU with TTL: a doubly-linked list for ordering, a map for
// O(1) lookup, capacity eviction from the tail and lazy expiry on read.
//
// The cache is only touched from the single ingestion flow, so it takes
// no lock.
type historyCache struct {
	capacity int
	ttl      time.Duration

	items map[string]*historyEntry
	head  *historyEntry
	tail  *historyEntry
}

func newHistoryCache(capacity int, ttl time.Duration) *historyCache {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}

	c := &historyCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*historyEntry, capacity),
		head:     &historyEntry{},
		tail:     &historyEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// trail returns the retained trail for an object id, or nil for unknown
// or expired ids.
func (c *historyCache) trail(key string) []geometry.Point {
	entry, ok := c.items[key]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.remove(entry)
		return nil
	}
	c.moveToFront(entry)
	return entry.trail
}

// touch records an object's current trail and location, refreshing its
// TTL and recency. Over-capacity inserts evict the least recently seen
// object's history.
func (c *historyCache) touch(key string, trail []geometry.Point, lastSeen geometry.Point) {
	now := time.Now()
	if entry, ok := c.items[key]; ok {
		entry.trail = trail
		entry.lastSeen = lastSeen
		entry.expiresAt = now.Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	entry := &historyEntry{
		key:       key,
		trail:     trail,
		lastSeen:  lastSeen,
		expiresAt: now.Add(c.ttl),
	}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		if oldest == c.head {
			break
		}
		c.remove(oldest)
	}
}

func (c *historyCache) len() int {
	return len(c.items)
}

func (c *historyCache) addToFront(entry *historyEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *historyCache) moveToFront(entry *historyEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *historyCache) remove(entry *historyEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
