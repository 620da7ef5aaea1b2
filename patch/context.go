package patch

import (
	"maps"
	"reflect"

	"github.com/speakeasy-api/openapi-deref/node"
)

// ContextTree holds metadata scoped to subtrees of the document. A value set at a path applies
// to every node below it until a deeper path sets the same key again.
type ContextTree struct {
	root *contextNode
}

type contextNode struct {
	values   map[string]any
	children map[string]*contextNode
}

// NewContextTree returns an empty tree.
func NewContextTree() *ContextTree {
	return &ContextTree{root: &contextNode{}}
}

// Set merges values into the context of path and reports whether anything changed.
func (t *ContextTree) Set(path node.Path, values map[string]any) bool {
	n := t.root
	for _, seg := range path {
		if n.children == nil {
			n.children = map[string]*contextNode{}
		}
		child, ok := n.children[seg]
		if !ok {
			child = &contextNode{}
			n.children[seg] = child
		}
		n = child
	}

	changed := false
	for k, v := range values {
		if existing, ok := n.values[k]; ok && sameValue(existing, v) {
			continue
		}
		if n.values == nil {
			n.values = map[string]any{}
		}
		n.values[k] = v
		changed = true
	}
	return changed
}

// Get returns the value of key set at path or at its nearest ancestor.
func (t *ContextTree) Get(path node.Path, key string) (any, bool) {
	var (
		found any
		ok    bool
	)
	n := t.root
	for i := 0; ; i++ {
		if v, has := n.values[key]; has {
			found, ok = v, true
		}
		if i == len(path) {
			break
		}
		child, has := n.children[path[i]]
		if !has {
			break
		}
		n = child
	}
	return found, ok
}

// GetString is Get for string values.
func (t *ContextTree) GetString(path node.Path, key string) string {
	v, ok := t.Get(path, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Values returns the context values in effect at path, nearest ones winning.
func (t *ContextTree) Values(path node.Path) map[string]any {
	out := map[string]any{}
	n := t.root
	for i := 0; ; i++ {
		maps.Copy(out, n.values)
		if i == len(path) {
			break
		}
		child, has := n.children[path[i]]
		if !has {
			break
		}
		n = child
	}
	return out
}

// Prune forgets the context of path and everything below it.
func (t *ContextTree) Prune(path node.Path) {
	if len(path) == 0 {
		t.root = &contextNode{}
		return
	}
	n := t.root
	for _, seg := range path.Parent() {
		child, ok := n.children[seg]
		if !ok {
			return
		}
		n = child
	}
	delete(n.children, path.Last())
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
