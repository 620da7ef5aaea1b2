package retrieval

import (
	"sync"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
)

const (
	MediaTypeJSON = "application/json"
	MediaTypeYAML = "application/yaml"
)

// ParseFunc parses raw content into a document tree.
type ParseFunc func(data []byte) (*node.Node, error)

// ParserRegistry maps media types to parsers. Content with an unregistered or missing media type
// goes to the fallback parser.
type ParserRegistry struct {
	mu       sync.RWMutex
	parsers  map[string]ParseFunc
	fallback ParseFunc
}

// NewParserRegistry returns a registry parsing JSON and YAML media types, with YAML as fallback.
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{
		parsers:  map[string]ParseFunc{},
		fallback: node.Parse,
	}
	for _, mt := range []string{
		MediaTypeJSON,
		"application/openapi+json",
		"application/schema+json",
		"application/vnd.oai.openapi+json",
		MediaTypeYAML,
		"application/x-yaml",
		"text/yaml",
		"text/x-yaml",
		"application/openapi+yaml",
		"application/vnd.oai.openapi",
	} {
		r.parsers[mt] = node.Parse
	}
	return r
}

// Register sets the parser for mediaType, replacing any previous one.
func (r *ParserRegistry) Register(mediaType string, fn ParseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[mediaType] = fn
}

// SetFallback sets the parser used for unregistered media types.
func (r *ParserRegistry) SetFallback(fn ParseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
}

// Lookup returns the parser registered for mediaType.
func (r *ParserRegistry) Lookup(mediaType string) (ParseFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.parsers[mediaType]
	return fn, ok
}

// Parse parses res with the parser for its media type.
func (r *ParserRegistry) Parse(res *Resource) (*node.Node, error) {
	fn, ok := r.Lookup(res.MediaType)
	if !ok {
		r.mu.RLock()
		fn = r.fallback
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, errors.ErrRetrieval.Wrap(errors.ErrParse.Wrapf("no parser for media type %q of %s", res.MediaType, res.URI))
	}

	root, err := fn(res.Data)
	if err != nil {
		return nil, errors.ErrRetrieval.Wrap(errors.ErrParse.Wrapf("%s: %w", res.URI, err))
	}
	return root, nil
}
