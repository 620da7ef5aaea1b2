package references

import (
	"fmt"
	"net/url"
	"sync"
)

// URLCache memoizes URL parsing and the resolution of relative references against a base URL.
// Every base is parsed once and keeps its own table of the references resolved against it, so a
// document referencing the same siblings many times resolves each of them once.
type URLCache struct {
	mu    sync.RWMutex
	bases map[string]*urlBase
}

type urlBase struct {
	parsed *url.URL
	err    error
	// resolved maps a relative reference to its absolute form.
	resolved sync.Map
}

var globalURLCache = &URLCache{}

// ParseURL parses rawURL through the process wide URLCache.
func ParseURL(rawURL string) (*url.URL, error) {
	return globalURLCache.Parse(rawURL)
}

// ResolveURL resolves relative against base through the process wide URLCache.
func ResolveURL(base, relative string) (string, error) {
	return globalURLCache.Resolve(base, relative)
}

func (c *URLCache) base(rawURL string) *urlBase {
	c.mu.RLock()
	b, ok := c.bases[rawURL]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.bases[rawURL]; ok {
		return b
	}
	if c.bases == nil {
		c.bases = map[string]*urlBase{}
	}
	b = &urlBase{}
	b.parsed, b.err = url.Parse(rawURL)
	c.bases[rawURL] = b
	return b
}

// Parse returns a copy of the parse of rawURL. Failed parses are remembered too.
func (c *URLCache) Parse(rawURL string) (*url.URL, error) {
	b := c.base(rawURL)
	if b.err != nil {
		return nil, b.err
	}
	u := *b.parsed
	return &u, nil
}

// Resolve returns relative resolved against base as a string.
func (c *URLCache) Resolve(base, relative string) (string, error) {
	b := c.base(base)
	if b.err != nil {
		return "", fmt.Errorf("invalid base URL: %w", b.err)
	}
	if abs, ok := b.resolved.Load(relative); ok {
		return abs.(string), nil
	}

	rel, err := url.Parse(relative)
	if err != nil {
		return "", fmt.Errorf("invalid relative URL: %w", err)
	}
	abs := b.parsed.ResolveReference(rel).String()
	b.resolved.Store(relative, abs)
	return abs, nil
}

// Forget drops base and everything resolved against it.
func (c *URLCache) Forget(base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bases, base)
}

// Clear empties the cache.
func (c *URLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bases = nil
}

// Size returns the number of parsed URLs plus the number of resolutions remembered against them.
func (c *URLCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	size := int64(len(c.bases))
	for _, b := range c.bases {
		b.resolved.Range(func(_, _ any) bool {
			size++
			return true
		})
	}
	return size
}

// ClearURLCache empties the process wide URL cache.
func ClearURLCache() {
	globalURLCache.Clear()
}

// URLCacheSize returns the number of entries in the process wide URL cache.
func URLCacheSize() int64 {
	return globalURLCache.Size()
}
