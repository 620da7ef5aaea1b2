package node

import "strconv"

// ShallowCopy returns a new node with its own identity holding the same children as n.
func (n *Node) ShallowCopy() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		id:      nextID(),
		kind:    n.kind,
		text:    n.text,
		boolean: n.boolean,
		meta:    n.meta,
	}
	switch n.kind {
	case KindObject:
		out.keys = append([]string{}, n.keys...)
		out.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			out.fields[k] = v
		}
	case KindArray:
		out.items = append([]*Node{}, n.items...)
	}
	return out
}

// Clone returns a deep copy of n. Every copied node gets a new identity; nodes shared within n
// stay shared within the copy and cycles are reproduced.
func (n *Node) Clone() *Node {
	return n.clone(map[uint64]*Node{})
}

func (n *Node) clone(seen map[uint64]*Node) *Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n.id]; ok {
		return c
	}
	out := &Node{
		id:      nextID(),
		kind:    n.kind,
		text:    n.text,
		boolean: n.boolean,
		meta:    n.meta,
	}
	seen[n.id] = out
	switch n.kind {
	case KindObject:
		out.keys = append([]string{}, n.keys...)
		out.fields = make(map[string]*Node, len(n.fields))
		for _, k := range n.keys {
			out.fields[k] = n.fields[k].clone(seen)
		}
	case KindArray:
		out.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			out.items[i] = item.clone(seen)
		}
	}
	return out
}

// Equal reports whether a and b are structurally equal. Metadata and identity are ignored and
// cyclic graphs are compared without looping.
func Equal(a, b *Node) bool {
	return equal(a, b, map[[2]uint64]struct{}{})
}

func equal(a, b *Node, visiting map[[2]uint64]struct{}) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindString, KindReference:
		return a.text == b.text
	case KindNumber:
		if a.text == b.text {
			return true
		}
		fa, errA := strconv.ParseFloat(a.text, 64)
		fb, errB := strconv.ParseFloat(b.text, 64)
		return errA == nil && errB == nil && fa == fb
	}

	pair := [2]uint64{a.id, b.id}
	if _, ok := visiting[pair]; ok {
		return true
	}
	visiting[pair] = struct{}{}

	if a.Len() != b.Len() {
		return false
	}
	if a.kind == KindArray {
		for i := range a.items {
			if !equal(a.items[i], b.items[i], visiting) {
				return false
			}
		}
		return true
	}
	for k, av := range a.fields {
		bv, ok := b.fields[k]
		if !ok || !equal(av, bv, visiting) {
			return false
		}
	}
	return true
}
