// Package patch applies plugin generated patches to a document until no plugin has anything
// left to change.
package patch

import (
	"fmt"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/node"
)

// Op is the kind of a patch.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
	// OpMerge shallow merges an object value into the object at the path. Fields of the value win.
	OpMerge Op = "merge"
	// OpContext records metadata for the subtree at the path in the ContextTree without touching
	// the document.
	OpContext Op = "context"
)

// Patch is one change to the working document.
type Patch struct {
	Op    Op
	Path  node.Path
	Value *node.Node
	// Context holds the values of an OpContext patch.
	Context map[string]any
}

func Add(path node.Path, value *node.Node) Patch {
	return Patch{Op: OpAdd, Path: path, Value: value}
}

func Replace(path node.Path, value *node.Node) Patch {
	return Patch{Op: OpReplace, Path: path, Value: value}
}

func Remove(path node.Path) Patch {
	return Patch{Op: OpRemove, Path: path}
}

func Merge(path node.Path, value *node.Node) Patch {
	return Patch{Op: OpMerge, Path: path, Value: value}
}

func Context(path node.Path, values map[string]any) Patch {
	return Patch{Op: OpContext, Path: path, Context: values}
}

func (p Patch) String() string {
	return fmt.Sprintf("%s %s", p.Op, p.Path)
}

// apply performs p on doc and returns the new root along with whether anything changed.
// Patches that would leave the document as it was report no change.
func apply(doc *node.Node, p Patch, tree *ContextTree) (*node.Node, bool, error) {
	if p.Op == OpContext {
		return doc, tree.Set(p.Path, p.Context), nil
	}

	if len(p.Path) == 0 {
		switch p.Op {
		case OpAdd, OpReplace:
			return p.Value, !node.Equal(doc, p.Value), nil
		case OpRemove:
			return node.NewNull(), doc.Kind() != node.KindNull, nil
		case OpMerge:
			changed, err := mergeInto(doc, p.Value)
			return doc, changed, err
		}
		return doc, false, fmt.Errorf("unknown patch op %q", p.Op)
	}

	parent, err := doc.Resolve(p.Path.Parent().Pointer())
	if err != nil {
		if p.Op == OpRemove {
			return doc, false, nil
		}
		return doc, false, fmt.Errorf("%s: parent not found: %w", p, err)
	}
	key := p.Path.Last()

	switch p.Op {
	case OpAdd, OpReplace:
		if parent.IsArray() {
			changed, err := setArray(parent, key, p.Value, p.Op == OpAdd)
			return doc, changed, err
		}
		if !parent.IsObject() {
			return doc, false, fmt.Errorf("%s: parent is a %s", p, parent.Kind())
		}
		if existing, ok := parent.Get(key); ok && node.Equal(existing, p.Value) {
			return doc, false, nil
		}
		parent.Set(key, p.Value)
		return doc, true, nil

	case OpRemove:
		if parent.IsArray() {
			i, err := strconv.Atoi(key)
			if err != nil {
				return doc, false, fmt.Errorf("%s: %w", p, err)
			}
			if _, ok := parent.Index(i); !ok {
				return doc, false, nil
			}
			return doc, true, parent.RemoveIndex(i)
		}
		return doc, parent.Delete(key), nil

	case OpMerge:
		target, ok := parent.Get(key)
		if parent.IsArray() {
			i, _ := strconv.Atoi(key)
			target, ok = parent.Index(i)
		}
		if !ok {
			parent.Set(key, p.Value)
			return doc, true, nil
		}
		changed, err := mergeInto(target, p.Value)
		if err != nil {
			return doc, false, fmt.Errorf("%s: %w", p, err)
		}
		return doc, changed, nil
	}

	return doc, false, fmt.Errorf("unknown patch op %q", p.Op)
}

func setArray(arr *node.Node, key string, value *node.Node, insert bool) (bool, error) {
	if key == "-" {
		arr.Append(value)
		return true, nil
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return false, fmt.Errorf("invalid array index %q", key)
	}
	if insert {
		return true, arr.InsertIndex(i, value)
	}
	if existing, ok := arr.Index(i); ok && node.Equal(existing, value) {
		return false, nil
	}
	return true, arr.SetIndex(i, value)
}

func mergeInto(target, value *node.Node) (bool, error) {
	if !target.IsObject() || !value.IsObject() {
		return false, fmt.Errorf("merge needs objects, got %s and %s", target.Kind(), value.Kind())
	}
	changed := false
	for k, v := range value.Fields() {
		if existing, ok := target.Get(k); ok && node.Equal(existing, v) {
			continue
		}
		target.Set(k, v)
		changed = true
	}
	return changed, nil
}
