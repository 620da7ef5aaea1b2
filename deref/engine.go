package deref

import (
	"context"
	"slices"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/lineage"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/speakeasy-api/openapi-deref/selector"
	"github.com/speakeasy-api/openapi-deref/system"
)

// frame is the state of one traversal branch. It is passed by value so every child gets its own
// copy.
type frame struct {
	// doc is the retrieval URI of the document the visited node lives in.
	doc string
	// base is the URI relative references are resolved against.
	base string
	kind elementKind
	// path is the location of the output node in the output document.
	path node.Path
	// refs is the indirection stack, the absolute references followed to get here.
	refs []string
}

func (f frame) child(key string, kind elementKind) frame {
	f.kind = kind
	f.path = f.path.Child(key)
	return f
}

type memoKey struct {
	id   uint64
	kind elementKind
}

type activeNode struct {
	out  *node.Node
	path node.Path
}

type engine struct {
	ctx     context.Context
	opts    Options
	logger  system.Logger
	cache   *retrieval.Cache
	index   *selector.Index
	errs    *errors.Collector
	lineage *lineage.Lineage

	root *retrieval.Document

	// memo holds the finished output of every object and array expanded so far.
	memo map[memoKey]*node.Node
	// active holds the outputs still being built along the current branch.
	active map[memoKey]activeNode
}

func newEngine(ctx context.Context, root *retrieval.Document, cache *retrieval.Cache, opts Options) *engine {
	return &engine{
		ctx:     ctx,
		opts:    opts,
		logger:  system.LoggerOrNop(opts.Logger),
		cache:   cache,
		index:   selector.NewIndex(),
		errs:    errors.NewCollector(),
		root:    root,
		memo:    map[memoKey]*node.Node{},
		active:  map[memoKey]activeNode{},
	}
}

func (e *engine) run(kind elementKind) *node.Node {
	e.load(e.root)

	// the root is the only ancestor before any reference is crossed
	ancestors, current := lineage.ToAncestorLineage([][]*node.Node{{e.root.Root}})
	ancestors.PushFrame(current)
	e.lineage = ancestors

	out, keep := e.visit(e.root.Root, frame{
		doc:  e.root.URI,
		base: e.root.URI,
		kind: kind,
	})
	if !keep {
		return node.NewNull()
	}
	return out
}

// visit returns the output for src. A false second result drops src from its parent.
func (e *engine) visit(src *node.Node, f frame) (*node.Node, bool) {
	switch src.Kind() {
	case node.KindObject:
		if f.kind == kindData {
			return src.Clone(), true
		}
		if ref, ok := src.RefValue(); ok && f.kind.refSite() {
			return e.resolve(src, ref, f)
		}
		return e.visitObject(src, f), true
	case node.KindArray:
		if f.kind == kindData {
			return src.Clone(), true
		}
		return e.visitArray(src, f), true
	default:
		return src, true
	}
}

func (e *engine) visitObject(src *node.Node, f frame) *node.Node {
	key := memoKey{id: src.ID(), kind: f.kind}
	if out, ok := e.memo[key]; ok {
		return e.reuse(out)
	}
	if a, ok := e.active[key]; ok {
		// src contains itself through shared YAML anchors
		if e.opts.Circular == CircularKeep {
			return a.out
		}
		return node.NewReference(a.path.Fragment())
	}

	out := node.NewObject()
	e.enter(key, out, f.path)
	defer e.exit(key)
	failures := e.errs.Len()

	f.base = e.index.BaseOf(src, f.base)
	for k, v := range src.Fields() {
		child, keep := e.visit(v, f.child(k, childKind(f.kind, k)))
		if keep {
			out.Set(k, child)
		}
	}
	e.finish(out, f)

	// outputs that recorded errors are rebuilt at every site, each with its own depth
	if e.errs.Len() == failures {
		e.memo[key] = out
	}
	return out
}

func (e *engine) visitArray(src *node.Node, f frame) *node.Node {
	key := memoKey{id: src.ID(), kind: f.kind}
	if out, ok := e.memo[key]; ok {
		return e.reuse(out)
	}
	if a, ok := e.active[key]; ok {
		if e.opts.Circular == CircularKeep {
			return a.out
		}
		return node.NewReference(a.path.Fragment())
	}

	out := node.NewArray()
	e.enter(key, out, f.path)
	defer e.exit(key)
	failures := e.errs.Len()

	kind := itemKind(f.kind)
	for i, item := range src.Items() {
		child, keep := e.visit(item, f.child(strconv.Itoa(i), kind))
		if keep {
			out.Append(child)
		}
	}

	if e.errs.Len() == failures {
		e.memo[key] = out
	}
	return out
}

func (e *engine) enter(key memoKey, out *node.Node, path node.Path) {
	e.lineage.Add(key.id)
	e.active[key] = activeNode{out: out, path: path}
}

func (e *engine) exit(key memoKey) {
	e.lineage.Remove(key.id)
	delete(e.active, key)
}

// reuse returns the output to place at one more site. Cyclic outputs are shared, everything
// else is copied so later merges at one site do not leak into another.
func (e *engine) reuse(out *node.Node) *node.Node {
	if e.opts.Circular == CircularKeep {
		return out.ShallowCopy()
	}
	return out.Clone()
}

// finish runs the visitors that rewrite a fully expanded object.
func (e *engine) finish(out *node.Node, f frame) {
	switch f.kind {
	case kindSchema:
		// allOf members ran the macro over their own properties already
		if e.opts.ModelPropertyMacro != nil {
			e.applyModelPropertyMacro(out, f)
		}
		if !e.opts.DisableAllOfMerge {
			e.mergeAllOf(out, f)
		}
	case kindOperation:
		if e.opts.ParameterMacro != nil {
			e.applyParameterMacro(out, f)
		}
	}
}

// resolve expands the reference object src whose $ref is raw.
func (e *engine) resolve(src *node.Node, raw string, f frame) (*node.Node, bool) {
	e.lineage.Add(src.ID())
	defer e.lineage.Remove(src.ID())

	ref := references.Reference(raw)
	pointer := ""
	if ref.HasJSONPointer() {
		pointer = string(ref.GetJSONPointer())
	}

	abs, err := references.Absolutize(ref, f.base)
	if err != nil {
		e.fail(errors.ErrEvaluation, errors.ErrEvaluation.Wrapf("invalid reference %q: %w", raw, err), f, raw, pointer)
		return src.Clone(), true
	}

	if e.opts.DisableExternalRefs && e.isExternal(abs, f.kind) {
		if f.kind == kindPathItem {
			e.logger.Debug("pruning external path item", "path", f.path.String(), "ref", raw)
			return nil, false
		}
		return e.visitObject(src, f), true
	}

	if slices.Contains(f.refs, abs) {
		return e.cycle(src, raw, abs, nil, f)
	}

	if len(f.refs) >= e.opts.maxDepth() {
		err := errors.ErrMaximumDereferenceDepth.Wrapf("maximum dereference depth of %d exceeded in %s", e.opts.maxDepth(), f.doc)
		e.fail(errors.ErrMaximumDereferenceDepth, err, f, raw, pointer)
		return src.Clone(), true
	}

	match, err := e.locate(abs, f.kind)
	if err != nil {
		kind := errors.KindOf(err)
		if kind == "" {
			kind = errors.ErrEvaluation
		}
		e.fail(kind, err, f, raw, pointer)
		return src.Clone(), true
	}

	if e.lineage.Has(match.Node.ID()) {
		return e.cycle(src, raw, abs, match.Node, f)
	}

	e.lineage.Push()
	out, keep := e.visit(match.Node, frame{
		doc:  match.DocumentURI,
		base: match.BaseURI,
		kind: f.kind,
		path: f.path,
		refs: append(slices.Clone(f.refs), abs),
	})
	e.lineage.Pop()
	if !keep {
		return nil, false
	}

	return e.merge(src, out, abs, match.DocumentURI, f), true
}

func (e *engine) isExternal(abs string, kind elementKind) bool {
	if references.StripFragment(abs) == e.root.URI {
		return false
	}
	return kind != kindSchema || !e.index.Knows(abs)
}

// locate finds the node addressed by abs. Schemas are looked up by $id and $anchor before JSON
// pointer; every other element only supports JSON pointers.
func (e *engine) locate(abs string, kind elementKind) (selector.Match, error) {
	if kind == kindSchema && e.index.Knows(abs) {
		return e.index.EvaluateURI(abs)
	}

	doc, err := e.document(references.StripFragment(abs))
	if err != nil {
		return selector.Match{}, err
	}
	if kind == kindSchema {
		return e.index.Select(abs, doc.URI, doc.Root)
	}

	ref := references.Reference(abs)
	if anchor, ok := ref.GetAnchor(); ok {
		return selector.Match{}, errors.ErrEvaluation.Wrapf("anchor %q can only address schemas", anchor)
	}
	return e.index.EvaluatePointer(doc.URI, doc.Root, ref.GetJSONPointer())
}

// document returns the document at uri, the root one or one retrieved through the cache.
func (e *engine) document(uri string) (*retrieval.Document, error) {
	if uri == e.root.URI {
		return e.root, nil
	}
	doc, err := e.cache.Get(e.ctx, uri)
	if err != nil {
		return nil, err
	}
	e.load(doc)
	return doc, nil
}

// load indexes doc and starts fetching the documents it references.
func (e *engine) load(doc *retrieval.Document) {
	if e.index.Indexed(doc.URI) {
		return
	}
	e.index.AddDocument(doc.URI, doc.Root)
	if !e.opts.DisableExternalRefs {
		e.prefetch(doc)
	}
}

// cycle handles a reference back to target, a node being expanded on the current branch. target
// is nil when the cycle was found from the indirection stack, before retrieval.
func (e *engine) cycle(src *node.Node, raw, abs string, target *node.Node, f frame) (*node.Node, bool) {
	e.logger.Debug("circular reference", "path", f.path.String(), "ref", raw, "policy", e.opts.Circular.String(), "depth", e.lineage.Depth())

	switch e.opts.Circular {
	case CircularIgnore:
		return nil, false
	case CircularError:
		pointer := ""
		if ref := references.Reference(raw); ref.HasJSONPointer() {
			pointer = string(ref.GetJSONPointer())
		}
		e.fail(errors.ErrRecursiveReference, errors.ErrRecursiveReference.Wrapf("%s refers back to one of its ancestors", abs), f, raw, pointer)
		return src.Clone(), true
	case CircularKeep:
		if target != nil {
			if out, ok := e.activeOutput(target.ID(), f.kind); ok {
				return out, true
			}
		}
	}

	// references written in the root document stay readable, others must be absolute to mean
	// anything once inlined
	marker := raw
	if f.doc != e.root.URI {
		marker = abs
	}
	out := node.NewReference(marker)
	out.SetMeta(node.Meta{RefFields: src.Clone(), RefOrigin: f.doc})
	return out, true
}

func (e *engine) activeOutput(id uint64, kind elementKind) (*node.Node, bool) {
	if a, ok := e.active[memoKey{id: id, kind: kind}]; ok {
		return a.out, true
	}
	for key, a := range e.active {
		if key.id == id {
			return a.out, true
		}
	}
	return nil, false
}

func (e *engine) fail(kind errors.Error, err error, f frame, ref, pointer string) {
	re := errors.Annotate(kind, err, f.path.String(), f.doc, ref, pointer)
	e.errs.Add(re)
	e.logger.Warn("reference not resolved", "path", re.FullPath, "ref", ref, "kind", string(re.Kind), "error", re.Message)
}
