package node

import (
	"fmt"
	"iter"
	"slices"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/jsonpointer"
)

// Get returns the value stored under key on an object node.
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsObject() {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Has reports whether an object node has key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores value under key on an object node. New keys are appended, existing keys keep their
// position. Set panics if n is not an object.
func (n *Node) Set(key string, value *Node) {
	n.mustBe(KindObject)
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Delete removes key from an object node and reports whether it was present.
func (n *Node) Delete(key string) bool {
	if !n.IsObject() {
		return false
	}
	if _, ok := n.fields[key]; !ok {
		return false
	}
	delete(n.fields, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
	return true
}

// Keys returns the keys of an object node in insertion order.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	return slices.Clone(n.keys)
}

// Fields iterates the key/value pairs of an object node in insertion order.
func (n *Node) Fields() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		if !n.IsObject() {
			return
		}
		for _, k := range slices.Clone(n.keys) {
			v, ok := n.fields[k]
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Len returns the number of fields of an object or items of an array.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindObject:
		return len(n.keys)
	case KindArray:
		return len(n.items)
	default:
		return 0
	}
}

// Items returns the items of an array node.
func (n *Node) Items() []*Node {
	if !n.IsArray() {
		return nil
	}
	return slices.Clone(n.items)
}

// Index returns the item at i of an array node.
func (n *Node) Index(i int) (*Node, bool) {
	if !n.IsArray() || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// Append adds items to the end of an array node. Append panics if n is not an array.
func (n *Node) Append(items ...*Node) {
	n.mustBe(KindArray)
	n.items = append(n.items, items...)
}

// SetIndex replaces the item at i of an array node.
func (n *Node) SetIndex(i int, value *Node) error {
	if !n.IsArray() {
		return fmt.Errorf("cannot set index on %s", n.Kind())
	}
	if i < 0 || i >= len(n.items) {
		return fmt.Errorf("index %d out of range for array of length %d", i, len(n.items))
	}
	n.items[i] = value
	return nil
}

// RemoveIndex removes the item at i of an array node.
func (n *Node) RemoveIndex(i int) error {
	if !n.IsArray() {
		return fmt.Errorf("cannot remove index on %s", n.Kind())
	}
	if i < 0 || i >= len(n.items) {
		return fmt.Errorf("index %d out of range for array of length %d", i, len(n.items))
	}
	n.items = slices.Delete(n.items, i, i+1)
	return nil
}

// InsertIndex inserts value before the item at i of an array node. i may equal the length.
func (n *Node) InsertIndex(i int, value *Node) error {
	if !n.IsArray() {
		return fmt.Errorf("cannot insert index on %s", n.Kind())
	}
	if i < 0 || i > len(n.items) {
		return fmt.Errorf("index %d out of range for array of length %d", i, len(n.items))
	}
	n.items = slices.Insert(n.items, i, value)
	return nil
}

var (
	_ jsonpointer.KeyNavigable   = (*Node)(nil)
	_ jsonpointer.IndexNavigable = (*Node)(nil)
)

// NavigateWithKey implements jsonpointer.KeyNavigable.
func (n *Node) NavigateWithKey(key string) (any, error) {
	switch n.Kind() {
	case KindObject:
		v, ok := n.fields[key]
		if !ok {
			return nil, fmt.Errorf("key %s not found", key)
		}
		return v, nil
	case KindArray:
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil, jsonpointer.ErrInvalidPath.Wrapf("expected index, got %q", key)
		}
		return n.NavigateWithIndex(i)
	default:
		return nil, jsonpointer.ErrInvalidPath.Wrapf("cannot navigate into %s with key %s", n.Kind(), key)
	}
}

// NavigateWithIndex implements jsonpointer.IndexNavigable.
func (n *Node) NavigateWithIndex(index int) (any, error) {
	if !n.IsArray() {
		return nil, jsonpointer.ErrInvalidPath.Wrapf("cannot navigate into %s with index %d", n.Kind(), index)
	}
	if index < 0 || index >= len(n.items) {
		return nil, fmt.Errorf("index %d out of range for array of length %d", index, len(n.items))
	}
	return n.items[index], nil
}

// Resolve evaluates pointer against n and returns the addressed node.
func (n *Node) Resolve(pointer jsonpointer.JSONPointer) (*Node, error) {
	target, err := jsonpointer.GetTarget(n, pointer)
	if err != nil {
		return nil, err
	}
	out, ok := target.(*Node)
	if !ok {
		return nil, jsonpointer.ErrInvalidPath.Wrapf("unexpected target %T", target)
	}
	return out, nil
}

func (n *Node) mustBe(kind Kind) {
	if n.Kind() != kind {
		panic(fmt.Sprintf("node: expected %s, got %s", kind, n.Kind()))
	}
}
