package patch

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/system"
)

// DefaultMaxPasses caps the number of times one path may be changed in one Apply call.
const DefaultMaxPasses = 1000

// ContextKeyBaseDoc is the context key holding the retrieval URI of the document a subtree came
// from.
const ContextKeyBaseDoc = "baseDoc"

// State is what a plugin sees besides the value it reacts to.
type State struct {
	// Document is the current working document. Plugins must not modify it, they return patches.
	Document *node.Node
	// Tree holds the path scoped context.
	Tree *ContextTree
}

// BaseDoc returns the retrieval URI of the document the node at path came from.
func (s *State) BaseDoc(path node.Path) string {
	return s.Tree.GetString(path, ContextKeyBaseDoc)
}

// PluginFunc reacts to value, found under key at path. It returns the patches to apply, none
// once there is nothing left to do, or an error which removes the subtree at path and is
// recorded.
type PluginFunc func(ctx context.Context, value *node.Node, key string, path node.Path, state *State) ([]Patch, error)

// Plugin is invoked for every object field named Key.
type Plugin struct {
	Name string
	Key  string
	Fn   PluginFunc
}

// Options configure Apply.
type Options struct {
	// BaseDoc is the retrieval URI of the document, the root value of ContextKeyBaseDoc.
	BaseDoc string
	// MaxPasses caps the number of times a plugin may change the same path. The number of region
	// walks is capped at MaxPasses times the number of nodes of the document. Defaults to
	// DefaultMaxPasses.
	MaxPasses int
	// Logger defaults to system.NopLogger.
	Logger system.Logger
}

// Result is the outcome of Apply.
type Result struct {
	Document *node.Node
	Errors   []*errors.ResolutionError
	// Passes is the number of region walks performed.
	Passes int
}

type pipeline struct {
	plugins map[string][]Plugin
	state   *State
	logger  system.Logger
	errs    []*errors.ResolutionError
}

// Apply runs plugins over a copy of doc until a fixed point: each walk visits the document depth
// first in key order and invokes the plugins registered for each key. Every patch is applied at
// once and the walk restarts from the region it touched. Apply stops when a walk of the whole
// document yields no change, or when the pass cap is hit, which is recorded as an error.
func Apply(ctx context.Context, doc *node.Node, plugins []Plugin, opts Options) *Result {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	p := &pipeline{
		plugins: map[string][]Plugin{},
		state:   &State{Document: doc.Clone(), Tree: NewContextTree()},
		logger:  system.LoggerOrNop(opts.Logger),
	}
	for _, pl := range plugins {
		p.plugins[pl.Key] = append(p.plugins[pl.Key], pl)
	}
	if opts.BaseDoc != "" {
		p.state.Tree.Set(nil, map[string]any{ContextKeyBaseDoc: opts.BaseDoc})
	}

	maxWalks := maxPasses * size(doc, map[uint64]struct{}{})
	changes := map[string]int{}

	regions := []node.Path{nil}
	passes := 0
	for len(regions) > 0 {
		if ctx.Err() != nil {
			p.record(nil, errors.ErrPlugin.Wrap(ctx.Err()))
			break
		}
		if passes >= maxWalks {
			p.record(nil, errors.ErrPlugin.Wrapf("no fixed point after %d passes", passes))
			break
		}
		passes++

		region := regions[len(regions)-1]
		regions = regions[:len(regions)-1]

		start, err := p.state.Document.Resolve(region.Pointer())
		if err != nil {
			continue
		}

		touched, ok := p.walk(ctx, start, region, map[uint64]struct{}{})
		if !ok {
			continue
		}
		changes[touched.String()]++
		if changes[touched.String()] >= maxPasses {
			p.record(touched, errors.ErrPlugin.Wrapf("no fixed point after changing %s %d times", touched, maxPasses))
			break
		}
		// finish the interrupted region after the touched one settles
		if len(regions) == 0 || !slices.Equal(regions[len(regions)-1], region) {
			regions = append(regions, region)
		}
		regions = append(regions, p.existingAncestor(touched))
	}

	p.logger.Debug("patch pipeline finished", "passes", passes, "errors", len(p.errs))

	return &Result{Document: p.state.Document, Errors: p.errs, Passes: passes}
}

// walk visits n at path and returns the path of the first change made, if any.
func (p *pipeline) walk(ctx context.Context, n *node.Node, path node.Path, visited map[uint64]struct{}) (node.Path, bool) {
	if !n.IsObject() && !n.IsArray() {
		return nil, false
	}
	if _, ok := visited[n.ID()]; ok {
		return nil, false
	}
	visited[n.ID()] = struct{}{}

	// merged nodes carry the document they were resolved from
	if origin := n.RefOrigin(); origin != "" && p.state.Tree.GetString(path, ContextKeyBaseDoc) != origin {
		p.state.Tree.Set(path, map[string]any{ContextKeyBaseDoc: origin})
	}

	if n.IsArray() {
		for i, item := range n.Items() {
			if touched, ok := p.walk(ctx, item, path.Child(strconv.Itoa(i)), visited); ok {
				return touched, true
			}
		}
		return nil, false
	}

	for key, value := range n.Fields() {
		childPath := path.Child(key)
		for _, pl := range p.plugins[key] {
			if touched, ok := p.invoke(ctx, pl, value, key, childPath); ok {
				return touched, true
			}
		}
		// a plugin may have replaced the value without reporting a change
		current, ok := n.Get(key)
		if !ok {
			continue
		}
		if touched, ok := p.walk(ctx, current, childPath, visited); ok {
			return touched, true
		}
	}
	return nil, false
}

func (p *pipeline) invoke(ctx context.Context, pl Plugin, value *node.Node, key string, path node.Path) (touched node.Path, changed bool) {
	defer func() {
		if r := recover(); r != nil {
			touched, changed = p.fail(pl, path, fmt.Errorf("panic: %v", r))
		}
	}()

	patches, err := pl.Fn(ctx, value, key, path, p.state)
	if err != nil {
		return p.fail(pl, path, err)
	}

	for _, patch := range patches {
		doc, ok, err := apply(p.state.Document, patch, p.state.Tree)
		if err != nil {
			return p.fail(pl, path, err)
		}
		p.state.Document = doc
		if ok {
			if patch.Op == OpRemove {
				p.state.Tree.Prune(patch.Path)
			}
			changed = true
			if touched == nil || len(patch.Path) < len(touched) {
				touched = patch.Path
			}
		}
	}
	if changed {
		p.logger.Debug("plugin patched document", "plugin", pl.Name, "path", path.String(), "patches", len(patches))
	}
	return touched, changed
}

// fail removes the subtree at path and records err against it.
func (p *pipeline) fail(pl Plugin, path node.Path, err error) (node.Path, bool) {
	p.record(path, err)
	p.logger.Warn("plugin failed", "plugin", pl.Name, "path", path.String(), "error", err)

	doc, changed, applyErr := apply(p.state.Document, Remove(path), p.state.Tree)
	if applyErr != nil || !changed {
		// nothing to remove, the walk goes on as if the plugin had done nothing
		return nil, false
	}
	p.state.Document = doc
	p.state.Tree.Prune(path)
	return path, true
}

func (p *pipeline) record(path node.Path, err error) {
	baseDoc := p.state.Tree.GetString(path, ContextKeyBaseDoc)
	p.errs = append(p.errs, errors.Annotate(errors.ErrPlugin, err, path.String(), baseDoc, "", ""))
}

// size counts the nodes of n, each shared node once.
func size(n *node.Node, seen map[uint64]struct{}) int {
	if _, ok := seen[n.ID()]; ok {
		return 0
	}
	seen[n.ID()] = struct{}{}
	total := 1
	switch {
	case n.IsObject():
		for _, v := range n.Fields() {
			total += size(v, seen)
		}
	case n.IsArray():
		for _, item := range n.Items() {
			total += size(item, seen)
		}
	}
	return total
}

func (p *pipeline) existingAncestor(path node.Path) node.Path {
	region := path.Parent()
	for {
		if _, err := p.state.Document.Resolve(region.Pointer()); err == nil || len(region) == 0 {
			return region
		}
		region = region.Parent()
	}
}
