// Package deref replaces the references of an OpenAPI, Swagger 2.0 or JSON Schema document with
// the content they point at, following them into other documents, and reports every reference
// it could not resolve instead of failing.
package deref

import (
	"context"
	"fmt"
	"slices"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/patch"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/speakeasy-api/openapi-deref/system"
)

// Result is the outcome of a dereference call.
type Result struct {
	// Document is the dereferenced document. It shares nothing with the input.
	Document *node.Node
	// Errors lists every reference or rewrite that failed, in document order.
	Errors []*errors.ResolutionError
	// Dialect is the dialect detected from the root document.
	Dialect Dialect
}

// Dereference dereferences root, an already parsed document retrieved from opts.BaseDoc. The
// returned error is only set when opts are unusable; resolution failures are in Result.Errors.
func Dereference(ctx context.Context, root *node.Node, opts Options) (*Result, error) {
	cache, err := opts.cache()
	if err != nil {
		return nil, err
	}
	doc := &retrieval.Document{URI: references.StripFragment(opts.BaseDoc), Root: root}
	return dereference(ctx, doc, cache, opts), nil
}

// DereferenceURI retrieves the document at uri and dereferences it. Failing to retrieve or parse
// that document is the only resolution failure returned as an error.
func DereferenceURI(ctx context.Context, uri string, opts Options) (*Result, error) {
	cache, err := opts.cache()
	if err != nil {
		return nil, err
	}
	doc, err := cache.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve root document %s: %w", uri, err)
	}
	return dereference(ctx, doc, cache, opts), nil
}

func dereference(ctx context.Context, doc *retrieval.Document, cache *retrieval.Cache, opts Options) *Result {
	logger := system.LoggerOrNop(opts.Logger)
	dialect := DetectDialect(doc.Root)
	logger.Debug("dereferencing document", "uri", doc.URI, "dialect", dialect.String())

	e := newEngine(ctx, doc, cache, opts)
	out := e.run(dialect.rootKind())
	errs := e.errs.Errors()

	plugins := slices.Clone(opts.Plugins)
	if opts.ResolveExternalValues && !opts.DisableExternalRefs {
		plugins = append(plugins, ExternalValuePlugin(cache))
	}
	if len(plugins) > 0 {
		res := patch.Apply(ctx, out, plugins, patch.Options{BaseDoc: doc.URI, Logger: logger})
		out = res.Document
		errs = append(errs, res.Errors...)
	}

	logger.Info("dereferenced document", "uri", doc.URI, "errors", len(errs))

	return &Result{Document: out, Errors: errs, Dialect: dialect}
}

// ErrorsOf returns the errors of the given kind.
func (r *Result) ErrorsOf(kind errors.Error) []*errors.ResolutionError {
	var out []*errors.ResolutionError
	for _, err := range r.Errors {
		if err.Kind == kind {
			out = append(out, err)
		}
	}
	return out
}
