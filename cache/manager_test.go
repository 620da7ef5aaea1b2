package cache

import (
	"testing"

	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearAllCaches_Success(t *testing.T) { //nolint:paralleltest
	docs := newDocumentCache(t)
	Register(docs)
	t.Cleanup(func() { Unregister(docs) })

	populateURLCache(t)
	populateReferenceCache(t)
	docs.Put("api.yaml", node.NewObject())

	stats := GetAllCacheStats()
	assert.Positive(t, stats.URLCacheSize, "URL cache should have entries")
	assert.Positive(t, stats.ReferenceCacheSize, "Reference cache should have entries")
	assert.Equal(t, 1, stats.DocumentCount, "document cache should have an entry")

	ClearAllCaches()

	stats = GetAllCacheStats()
	assert.Equal(t, int64(0), stats.URLCacheSize, "URL cache should be empty")
	assert.Equal(t, int64(0), stats.ReferenceCacheSize, "Reference cache should be empty")
	assert.Equal(t, 0, stats.DocumentCount, "document cache should be empty")
	assert.Equal(t, 0, docs.Len())
}

func TestManager_RegisterTwice(t *testing.T) {
	t.Parallel()

	m := &Manager{}
	docs := newDocumentCache(t)
	m.Register(docs)
	m.Register(docs)
	docs.Put("a.yaml", node.NewObject())
	assert.Equal(t, 1, m.Documents())

	m.Unregister(docs)
	assert.Equal(t, 0, m.Documents())
	assert.Equal(t, 1, docs.Len(), "unregistering must not clear the cache")
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	m := &Manager{}
	first, second := newDocumentCache(t), newDocumentCache(t)
	m.Register(first)
	m.Register(second)
	first.Put("a.yaml", node.NewObject())
	second.Put("b.yaml", node.NewObject())
	second.Put("c.yaml", node.NewObject())
	assert.Equal(t, 3, m.Documents())

	m.Clear()
	assert.Equal(t, 0, m.Documents())
}

func newDocumentCache(t *testing.T) *retrieval.Cache {
	t.Helper()
	c, err := retrieval.NewCache(retrieval.Options{})
	require.NoError(t, err)
	return c
}

func populateURLCache(t *testing.T) {
	t.Helper()
	for _, u := range []string{"https://example1.com/api/v1", "https://example2.com/api/v2"} {
		_, err := references.ResolveURL(u, "schemas.yaml")
		require.NoError(t, err)
	}
}

func populateReferenceCache(t *testing.T) {
	t.Helper()
	_, err := references.ResolveAbsoluteReference(references.Reference("schemas.yaml#/Pet"), "https://example.com/openapi.yaml")
	require.NoError(t, err)
}
