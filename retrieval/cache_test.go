package retrieval_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.yaml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCache_Get_HTTP_Success(t *testing.T) {
	t.Parallel()

	srv, hits := newCountingServer(t, "a:\n  b: 1\n")
	cache, err := retrieval.NewCache(retrieval.Options{HTTPClient: srv.Client()})
	require.NoError(t, err)

	doc, err := cache.Get(t.Context(), srv.URL+"/spec.yaml#/a")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/spec.yaml", doc.URI)
	assert.Equal(t, retrieval.MediaTypeYAML, doc.MediaType)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 1}}, node.ToAny(doc.Root))

	again, err := cache.Get(t.Context(), srv.URL+"/spec.yaml")
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, int32(1), hits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(cache.Metrics().Hits), 0)
}

func TestCache_Get_ConcurrentRequestsCoalesce(t *testing.T) {
	t.Parallel()

	srv, hits := newCountingServer(t, "x: 1\n")
	cache, err := retrieval.NewCache(retrieval.Options{HTTPClient: srv.Client()})
	require.NoError(t, err)

	const callers = 10
	docs := make([]*retrieval.Document, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := cache.Get(context.Background(), srv.URL+"/shared.yaml")
			assert.NoError(t, err)
			docs[i] = doc
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load(), "exactly one retrieval for one URI")
	for _, d := range docs {
		assert.Same(t, docs[0], d)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(cache.Metrics().Fetches.WithLabelValues("success")), 0)
}

func TestCache_Get_ErrorsAreTerminal(t *testing.T) {
	t.Parallel()

	srv, hits := newCountingServer(t, "")
	cache, err := retrieval.NewCache(retrieval.Options{HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = cache.Get(t.Context(), srv.URL+"/missing.yaml")
	require.ErrorIs(t, err, errors.ErrRetrieval)
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = cache.Get(t.Context(), srv.URL+"/missing.yaml")
	require.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, int32(1), hits.Load(), "failures are not retried")

	cache.Clear()
	_, err = cache.Get(t.Context(), srv.URL+"/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCache_Get_File_Errors(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"specs/broken.yaml": {Data: []byte("a: [1, 2")},
		"specs/large.json":  {Data: make([]byte, 64)},
	}
	cache, err := retrieval.NewCache(retrieval.Options{
		Resolvers: []retrieval.Resolver{&retrieval.FileResolver{FS: fsys, MaxSize: 32}},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "missing file", uri: "specs/none.yaml", wantErr: errors.ErrNotFound},
		{name: "parse failure", uri: "specs/broken.yaml", wantErr: errors.ErrParse},
		{name: "too large", uri: "specs/large.json", wantErr: errors.ErrRetrieval},
		{name: "no resolver", uri: "https://example.com/a.yaml", wantErr: errors.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cache.Get(t.Context(), tt.uri)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, errors.ErrRetrieval)
		})
	}
}

func TestCache_Put_SeedsDocument(t *testing.T) {
	t.Parallel()

	cache, err := retrieval.NewCache(retrieval.Options{Resolvers: []retrieval.Resolver{}})
	require.NoError(t, err)

	root := node.MustFromAny(map[string]any{"a": 1})
	seeded := cache.Put("mem://root.yaml#/ignored", root)

	doc, err := cache.Get(t.Context(), "mem://root.yaml")
	require.NoError(t, err)
	assert.Same(t, seeded, doc)
	assert.Same(t, root, doc.Root)

	peeked, ok := cache.Peek("mem://root.yaml")
	require.True(t, ok)
	assert.Same(t, doc, peeked)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Prefetch(t *testing.T) {
	t.Parallel()

	srv, hits := newCountingServer(t, "ok: true\n")
	reg := prometheus.NewRegistry()
	cache, err := retrieval.NewCache(retrieval.Options{HTTPClient: srv.Client(), MetricsRegisterer: reg})
	require.NoError(t, err)

	cache.Prefetch(t.Context(), []string{
		srv.URL + "/a.yaml#/x",
		srv.URL + "/a.yaml#/y",
		srv.URL + "/b.yaml",
		srv.URL + "/missing.yaml",
	})
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, cache.Len())

	_, ok := cache.Peek(srv.URL + "/a.yaml")
	assert.True(t, ok)
	_, err = cache.Get(t.Context(), srv.URL+"/missing.yaml")
	require.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, int32(3), hits.Load())

	count, err := testutil.GatherAndCount(reg, "openapi_deref_retrieval_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome")
}

func TestNewCache_DuplicateRegistration_Error(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := retrieval.NewCache(retrieval.Options{MetricsRegisterer: reg})
	require.NoError(t, err)
	_, err = retrieval.NewCache(retrieval.Options{MetricsRegisterer: reg})
	require.Error(t, err)
}
