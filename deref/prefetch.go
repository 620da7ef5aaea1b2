package deref

import (
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
)

// prefetch starts retrieval of every other document doc references so the walk finds them in
// the cache. Failures are left in the cache and reported by the walk where the reference is.
func (e *engine) prefetch(doc *retrieval.Document) {
	uris := e.externalDocuments(doc)
	if len(uris) == 0 {
		return
	}
	e.logger.Debug("prefetching referenced documents", "document", doc.URI, "count", len(uris))
	e.cache.Prefetch(e.ctx, uris)
}

// externalDocuments lists the retrieval URIs of the documents referenced from doc that are
// neither the root document, nor declared with $id, nor already cached.
func (e *engine) externalDocuments(doc *retrieval.Document) []string {
	var uris []string
	seen := map[string]struct{}{}
	visited := map[uint64]struct{}{}

	var walk func(n *node.Node)
	walk = func(n *node.Node) {
		if !n.IsObject() && !n.IsArray() {
			return
		}
		if _, ok := visited[n.ID()]; ok {
			return
		}
		visited[n.ID()] = struct{}{}

		if n.IsArray() {
			for _, item := range n.Items() {
				walk(item)
			}
			return
		}

		if raw, ok := n.RefValue(); ok {
			if uri, ok := e.externalDocument(raw, e.index.BaseOf(n, doc.URI)); ok {
				if _, dup := seen[uri]; !dup {
					seen[uri] = struct{}{}
					uris = append(uris, uri)
				}
			}
		}
		for k, v := range n.Fields() {
			if _, data := schemaData[k]; data && k != "examples" {
				continue
			}
			walk(v)
		}
	}
	walk(doc.Root)

	return uris
}

func (e *engine) externalDocument(raw, base string) (string, bool) {
	ref := references.Reference(raw)
	if ref.IsLocal() {
		return "", false
	}
	abs, err := references.Absolutize(ref, base)
	if err != nil {
		return "", false
	}
	uri := references.StripFragment(abs)
	if uri == "" || uri == e.root.URI || e.index.Knows(abs) {
		return "", false
	}
	if _, ok := e.cache.Peek(uri); ok {
		return "", false
	}
	return uri, true
}
