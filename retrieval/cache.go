package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/system"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPrefetchConcurrency bounds the number of documents Prefetch reads at once.
const DefaultPrefetchConcurrency = 8

// Document is a retrieved and parsed document.
type Document struct {
	// URI is the absolute retrieval URI, without fragment.
	URI string
	// Root is the parsed content.
	Root *node.Node
	// MediaType is the media type the content was parsed as.
	MediaType string
}

// Options configure a Cache. The zero value reads files from the operating system and URLs
// through http.DefaultClient.
type Options struct {
	// Resolvers are tried in order; the first one whose CanRead claims a URI reads it. Defaults to
	// DefaultResolvers(VirtualFS, HTTPClient).
	Resolvers []Resolver
	// Parsers defaults to NewParserRegistry().
	Parsers *ParserRegistry
	// VirtualFS is used by the default file resolver.
	VirtualFS system.VirtualFS
	// HTTPClient is used by the default HTTP resolver.
	HTTPClient system.Client
	// Logger defaults to system.NopLogger.
	Logger system.Logger
	// MetricsRegisterer, when set, receives the cache metrics.
	MetricsRegisterer prometheus.Registerer
	// PrefetchConcurrency defaults to DefaultPrefetchConcurrency.
	PrefetchConcurrency int
}

type entry struct {
	doc *Document
	err error
}

// Cache maps absolute URIs to retrieved documents or to the terminal error of retrieving them.
// Each URI is fetched at most once: concurrent callers share the in-flight fetch and later
// callers get the stored outcome. Failures are not retried until the cache is cleared.
type Cache struct {
	resolvers   []Resolver
	parsers     *ParserRegistry
	logger      system.Logger
	metrics     *Metrics
	concurrency int

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

// NewCache returns an empty cache.
func NewCache(opts Options) (*Cache, error) {
	metrics, err := NewMetrics(opts.MetricsRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register retrieval metrics: %w", err)
	}

	resolvers := opts.Resolvers
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers(opts.VirtualFS, opts.HTTPClient)
	}
	parsers := opts.Parsers
	if parsers == nil {
		parsers = NewParserRegistry()
	}
	concurrency := opts.PrefetchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultPrefetchConcurrency
	}

	return &Cache{
		resolvers:   resolvers,
		parsers:     parsers,
		logger:      system.LoggerOrNop(opts.Logger),
		metrics:     metrics,
		concurrency: concurrency,
		entries:     map[string]entry{},
	}, nil
}

// Metrics returns the counters of the cache.
func (c *Cache) Metrics() *Metrics {
	return c.metrics
}

// Put stores an already parsed document under uri, replacing nothing that is already cached.
// It is used to seed the cache with the root document so references back into it are not
// fetched again.
func (c *Cache) Put(uri string, root *node.Node) *Document {
	uri = references.StripFragment(uri)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok && e.doc != nil {
		return e.doc
	}
	doc := &Document{URI: uri, Root: root}
	c.entries[uri] = entry{doc: doc}
	c.metrics.setDocuments(len(c.entries))
	return doc
}

// Peek returns the cached document at uri without fetching.
func (c *Cache) Peek(uri string) (*Document, bool) {
	e, ok := c.lookup(references.StripFragment(uri))
	return e.doc, ok && e.doc != nil
}

func (c *Cache) lookup(uri string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[uri]
	return e, ok
}

// Get returns the document at uri, fetching and parsing it on first use. uri must already be
// absolute; its fragment is ignored.
func (c *Cache) Get(ctx context.Context, uri string) (*Document, error) {
	uri = references.StripFragment(uri)

	if e, ok := c.lookup(uri); ok {
		c.metrics.recordHit()
		return e.doc, e.err
	}

	v, err, shared := c.group.Do(uri, func() (any, error) {
		// a fetch may have completed between the lookup above and joining the group
		if e, ok := c.lookup(uri); ok {
			return e.doc, e.err
		}

		doc, err := c.fetch(ctx, uri)
		if err != nil && ctx.Err() != nil {
			// cancellation is the caller's outcome, not the document's
			return nil, err
		}

		c.mu.Lock()
		c.entries[uri] = entry{doc: doc, err: err}
		c.metrics.setDocuments(len(c.entries))
		c.mu.Unlock()

		return doc, err
	})
	if shared {
		c.metrics.recordCoalesced()
	}
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (c *Cache) fetch(ctx context.Context, uri string) (*Document, error) {
	resolver := c.resolverFor(uri)
	if resolver == nil {
		err := errors.ErrRetrieval.Wrap(errors.ErrUnsupported.Wrapf("no resolver can read %s", uri))
		c.metrics.recordFetch(err)
		return nil, err
	}

	c.logger.Debug("retrieving document", "uri", uri)

	res, err := resolver.Read(ctx, uri)
	if err == nil {
		var root *node.Node
		root, err = c.parsers.Parse(res)
		if err == nil {
			c.metrics.recordFetch(nil)
			return &Document{URI: uri, Root: root, MediaType: res.MediaType}, nil
		}
	}

	c.metrics.recordFetch(err)
	c.logger.Debug("retrieval failed", "uri", uri, "error", err)
	return nil, err
}

func (c *Cache) resolverFor(uri string) Resolver {
	for _, r := range c.resolvers {
		if r.CanRead(uri) {
			return r
		}
	}
	return nil
}

// ReadResource reads uri through the first resolver claiming it, bypassing the document cache.
// It is used for content that is not a document, such as example external values.
func (c *Cache) ReadResource(ctx context.Context, uri string) (*Resource, error) {
	resolver := c.resolverFor(uri)
	if resolver == nil {
		return nil, errors.ErrRetrieval.Wrap(errors.ErrUnsupported.Wrapf("no resolver can read %s", uri))
	}
	return resolver.Read(ctx, uri)
}

// Parsers returns the parser registry of the cache.
func (c *Cache) Parsers() *ParserRegistry {
	return c.parsers
}

// Prefetch starts retrieval of every uri concurrently and waits for all of them. Outcomes are
// stored in the cache; individual failures are not returned, they surface when the document is
// asked for with Get.
func (c *Cache) Prefetch(ctx context.Context, uris []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	seen := map[string]struct{}{}
	for _, uri := range uris {
		uri = references.StripFragment(uri)
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		if _, ok := c.lookup(uri); ok {
			continue
		}

		g.Go(func() error {
			_, _ = c.Get(gctx, uri)
			return nil
		})
	}

	_ = g.Wait()
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear forgets every cached document and error.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]entry{}
	c.metrics.setDocuments(0)
}
