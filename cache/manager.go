// Package cache manages the process wide caches: parsed URLs, reference absolutization results
// and the document caches shared across dereference calls.
package cache

import (
	"sync"

	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
)

// Manager tracks the document caches shared across dereference calls.
type Manager struct {
	mu     sync.Mutex
	caches []*retrieval.Cache
}

var defaultManager = &Manager{}

// Register adds c to the caches cleared by ClearAllCaches. Registering a cache twice is a no-op.
func (m *Manager) Register(c *retrieval.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.caches {
		if existing == c {
			return
		}
	}
	m.caches = append(m.caches, c)
}

// Unregister forgets c without clearing it.
func (m *Manager) Unregister(c *retrieval.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.caches {
		if existing == c {
			m.caches = append(m.caches[:i], m.caches[i+1:]...)
			return
		}
	}
}

// Clear empties every registered document cache.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Clear()
	}
}

// Documents returns the number of outcomes held by the registered caches.
func (m *Manager) Documents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.caches {
		n += c.Len()
	}
	return n
}

// Register adds c to the caches cleared by ClearAllCaches.
func Register(c *retrieval.Cache) {
	defaultManager.Register(c)
}

// Unregister forgets c.
func Unregister(c *retrieval.Cache) {
	defaultManager.Unregister(c)
}

// ClearAllCaches clears all global caches in the system.
// This includes:
// - URL parsing cache (references)
// - Reference resolution cache (references)
// - Registered document caches (retrieval)
//
// This function is thread-safe and can be called from multiple goroutines.
func ClearAllCaches() {
	ClearURLCache()
	ClearReferenceCache()
	ClearDocumentCaches()
}

// ClearURLCache clears the global URL parsing and resolution cache.
func ClearURLCache() {
	references.ClearURLCache()
}

// ClearReferenceCache clears the global reference resolution cache.
// This cache stores resolved reference results to avoid repeated resolution
// of the same (reference, target) pairs.
func ClearReferenceCache() {
	references.ClearGlobalRefCache()
}

// ClearDocumentCaches clears every registered document cache, so documents are retrieved again
// on next use.
func ClearDocumentCaches() {
	defaultManager.Clear()
}

// CacheStats reports the size of the global caches.
type CacheStats struct {
	URLCacheSize       int64
	ReferenceCacheSize int64
	DocumentCount      int
}

// GetAllCacheStats returns statistics about all global caches in the system
func GetAllCacheStats() CacheStats {
	return CacheStats{
		URLCacheSize:       references.URLCacheSize(),
		ReferenceCacheSize: references.GetRefCacheSize(),
		DocumentCount:      defaultManager.Documents(),
	}
}
