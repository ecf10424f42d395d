// Package cache keeps per-run detection outcomes keyed by URL and registry
// version, so repeated URLs inside a batch (and offline replays) resolve
// without spending another browser context.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/roomsage/bookscan/models"
)

// entry holds a cached outcome with its creation timestamp and the DOM
// fingerprint of the page it was derived from.
type entry struct {
	outcome     *models.DetectionOutcome
	fingerprint uint64
	createdAt   time.Time
}

// Cache is an in-memory outcome cache, safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache holding at most maxEntries outcomes. A background
// goroutine evicts entries older than 1 hour every 5 minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key derives a cache key from the normalized URL and registry version.
func Key(url, registryVersion string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(registryVersion))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached outcome for a key, if present.
func (c *Cache) Get(key string) (*models.DetectionOutcome, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.outcome, true
}

// Set stores an outcome with its page fingerprint. At capacity a random
// entry is evicted (map iteration order is random).
func (c *Cache) Set(key string, outcome *models.DetectionOutcome, fingerprint uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{
		outcome:     outcome,
		fingerprint: fingerprint,
		createdAt:   time.Now(),
	}
}

// FindByFingerprint returns a cached outcome whose page fingerprint is
// within threshold hamming bits of fp. Used for duplicate-site collapse.
func (c *Cache) FindByFingerprint(fp uint64, threshold int, distance func(a, b uint64) int) (*models.DetectionOutcome, bool) {
	if fp == 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.store {
		if e.fingerprint == 0 {
			continue
		}
		if distance(e.fingerprint, fp) <= threshold {
			return e.outcome, true
		}
	}
	return nil, false
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
