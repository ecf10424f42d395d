package detect

import (
	"sync"
	"time"
)

// memoryEntry stores a terminal verdict for a host with a TTL.
type memoryEntry struct {
	errCode   string
	expiresAt time.Time
}

// Memory remembers hosts that ended in a terminal failure, so later
// batches (and duplicate descriptors in this one) skip them without
// spending a fetch or a browser context.
type Memory struct {
	store sync.Map // host (string) -> *memoryEntry
	ttl   time.Duration
	done  chan struct{}
}

// NewMemory creates a Memory with the given TTL and starts a background
// goroutine that prunes expired entries hourly.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the remembered terminal error code for a host, or "".
func (m *Memory) Get(host string) string {
	val, ok := m.store.Load(host)
	if !ok {
		return ""
	}
	e := val.(*memoryEntry)
	if time.Now().After(e.expiresAt) {
		m.store.Delete(host)
		return ""
	}
	return e.errCode
}

// Set records a terminal error code for a host.
func (m *Memory) Set(host, errCode string) {
	m.store.Store(host, &memoryEntry{
		errCode:   errCode,
		expiresAt: time.Now().Add(m.ttl),
	})
}

// Stop terminates the cleanup goroutine.
func (m *Memory) Stop() {
	close(m.done)
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.store.Range(func(key, value any) bool {
				if now.After(value.(*memoryEntry).expiresAt) {
					m.store.Delete(key)
				}
				return true
			})
		}
	}
}
