// Package selector finds the node a reference addresses inside a retrieved document: by JSON
// pointer, by the canonical URI a schema declares with $id, or by a $anchor name.
package selector

import (
	"strings"
	"sync"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/jsonpointer"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/references"
)

// Match is a node found by an evaluator.
type Match struct {
	Node *node.Node
	// DocumentURI is the retrieval URI of the document holding Node.
	DocumentURI string
	// BaseURI is the base URI in effect at Node, which differs from DocumentURI below a $id.
	BaseURI string
}

type location struct {
	node   *node.Node
	docURI string
}

// Index records the $id and $anchor declarations of every document added to it, along with the
// base URI in effect at each object.
type Index struct {
	mu      sync.RWMutex
	ids     map[string]location
	anchors map[string]location
	bases   map[uint64]string
	docs    map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		ids:     map[string]location{},
		anchors: map[string]location{},
		bases:   map[uint64]string{},
		docs:    map[string]struct{}{},
	}
}

// AddDocument indexes root, retrieved from docURI. Adding the same document twice is a no-op.
func (i *Index) AddDocument(docURI string, root *node.Node) {
	docURI = references.StripFragment(docURI)

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.docs[docURI]; ok {
		return
	}
	i.docs[docURI] = struct{}{}
	i.walk(root, "", docURI, docURI, map[uint64]struct{}{})
}

func (i *Index) walk(n *node.Node, parentKey, docURI, base string, visited map[uint64]struct{}) {
	if !n.IsObject() && !n.IsArray() {
		return
	}
	if _, ok := visited[n.ID()]; ok {
		return
	}
	visited[n.ID()] = struct{}{}

	if n.IsObject() {
		if id, ok := n.StringField("$id"); ok && id != "" {
			ref := references.Reference(id)
			if ref.IsLocal() {
				// draft-06 style plain name fragment
				if anchor, ok := ref.GetAnchor(); ok {
					i.anchors[base+"#"+anchor] = location{node: n, docURI: docURI}
				}
			} else if abs, err := references.ResolveAbsoluteReference(ref, base); err == nil {
				base = abs.AbsoluteReference
				if _, exists := i.ids[base]; !exists {
					i.ids[base] = location{node: n, docURI: docURI}
				}
			}
		}
		for _, key := range []string{"$anchor", "$dynamicAnchor"} {
			if anchor, ok := n.StringField(key); ok && anchor != "" {
				k := base + "#" + anchor
				if _, exists := i.anchors[k]; !exists {
					i.anchors[k] = location{node: n, docURI: docURI}
				}
			}
		}
	}

	i.bases[n.ID()] = base

	if n.IsArray() {
		for _, item := range n.Items() {
			i.walk(item, parentKey, docURI, base, visited)
		}
		return
	}
	for key, v := range n.Fields() {
		if dataKeywords[key] && !namedSchemaMaps[parentKey] {
			continue
		}
		i.walk(v, key, docURI, base, visited)
	}
}

// values under these keys are instance data, not schemas
var dataKeywords = map[string]bool{
	"enum":     true,
	"const":    true,
	"default":  true,
	"example":  true,
	"examples": true,
}

// the keys of these maps are names chosen by the author
var namedSchemaMaps = map[string]bool{
	"properties":        true,
	"patternProperties": true,
	"$defs":             true,
	"definitions":       true,
	"schemas":           true,
}

// Indexed reports whether the document at docURI has been added.
func (i *Index) Indexed(docURI string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.docs[references.StripFragment(docURI)]
	return ok
}

// Knows reports whether some indexed schema declares uri (fragment ignored) with $id.
func (i *Index) Knows(uri string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.ids[references.StripFragment(uri)]
	return ok
}

// BaseOf returns the base URI in effect at n, or fallback when n was not indexed.
func (i *Index) BaseOf(n *node.Node, fallback string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if b, ok := i.bases[n.ID()]; ok {
		return b
	}
	return fallback
}

// EvaluateURI finds the node identified by an absolute uri whose document part was declared with
// $id. The fragment, if any, is a JSON pointer relative to that node or an anchor name declared
// under it. It fails with errors.ErrUnknownURI when no schema declares the URI.
func (i *Index) EvaluateURI(uri string) (Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	base, fragment, _ := strings.Cut(uri, "#")
	loc, ok := i.ids[base]
	if !ok {
		return Match{}, errors.ErrUnknownURI.Wrapf("no schema declares $id %s", base)
	}

	ref := references.Reference(uri)
	switch {
	case fragment == "":
		return i.match(loc.node, loc.docURI, base), nil
	case ref.HasJSONPointer():
		target, err := loc.node.Resolve(ref.GetJSONPointer())
		if err != nil {
			return Match{}, errors.ErrEvaluation.Wrapf("%s: %w", uri, err)
		}
		return i.match(target, loc.docURI, base), nil
	default:
		anchor, _ := ref.GetAnchor()
		a, ok := i.anchors[base+"#"+anchor]
		if !ok {
			return Match{}, errors.ErrEvaluation.Wrapf("anchor %q not declared under %s", anchor, base)
		}
		return i.match(a.node, a.docURI, base), nil
	}
}

// EvaluateAnchor finds the node declaring anchor at the top level resource of the document at
// docURI.
func (i *Index) EvaluateAnchor(docURI, anchor string) (Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docURI = references.StripFragment(docURI)
	a, ok := i.anchors[docURI+"#"+anchor]
	if !ok {
		return Match{}, errors.ErrEvaluation.Wrapf("anchor %q not declared in %s", anchor, docURI)
	}
	return i.match(a.node, a.docURI, docURI), nil
}

// EvaluatePointer evaluates pointer against root, the document retrieved from docURI.
func (i *Index) EvaluatePointer(docURI string, root *node.Node, pointer jsonpointer.JSONPointer) (Match, error) {
	target, err := EvaluatePointer(root, pointer)
	if err != nil {
		return Match{}, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.match(target, references.StripFragment(docURI), references.StripFragment(docURI)), nil
}

func (i *Index) match(n *node.Node, docURI, fallbackBase string) Match {
	base, ok := i.bases[n.ID()]
	if !ok {
		base = fallbackBase
	}
	return Match{Node: n, DocumentURI: docURI, BaseURI: base}
}

// Select evaluates the absolute reference uri the way schema references are resolved: by
// canonical URI first, then, only when no schema declares the URI, by anchor for plain name
// fragments or by JSON pointer otherwise, against root retrieved from docURI. Any error other
// than errors.ErrUnknownURI is returned without fallback.
func (i *Index) Select(uri, docURI string, root *node.Node) (Match, error) {
	m, err := i.EvaluateURI(uri)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, errors.ErrUnknownURI) {
		return Match{}, err
	}

	ref := references.Reference(uri)
	if anchor, ok := ref.GetAnchor(); ok {
		return i.EvaluateAnchor(docURI, anchor)
	}
	return i.EvaluatePointer(docURI, root, ref.GetJSONPointer())
}

// EvaluatePointer evaluates pointer against root. The empty pointer addresses root. Failures are
// errors.ErrEvaluation.
func EvaluatePointer(root *node.Node, pointer jsonpointer.JSONPointer) (*node.Node, error) {
	if err := pointer.Validate(); err != nil {
		return nil, errors.ErrEvaluation.Wrapf("invalid JSON pointer %q: %w", pointer, err)
	}
	target, err := root.Resolve(pointer)
	if err != nil {
		return nil, errors.ErrEvaluation.Wrapf("JSON pointer %q: %w", pointer, err)
	}
	return target, nil
}
