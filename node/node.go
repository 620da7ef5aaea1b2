// Package node provides the generic document tree every other package operates on.
//
// A Node is a tagged value: an ordered object, an array, a scalar or a reference marker. Every
// node carries a stable integer identity allocated at construction time, so two structurally
// identical nodes are still told apart when detecting cycles, and a shared node reached along
// two paths is recognized as the same node.
package node

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Kind discriminates the value held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
	// KindReference marks a reference that was deliberately left unexpanded. It renders as
	// {"$ref": target}.
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

// Node is an element of a document tree.
type Node struct {
	id   uint64
	kind Kind

	// text holds the string value, the literal of a number or the target of a reference.
	text    string
	boolean bool

	keys   []string
	fields map[string]*Node
	items  []*Node

	meta Meta
}

func newNode(kind Kind) *Node {
	return &Node{id: nextID(), kind: kind}
}

// NewNull returns a null node.
func NewNull() *Node {
	return newNode(KindNull)
}

// NewBool returns a boolean node.
func NewBool(v bool) *Node {
	n := newNode(KindBool)
	n.boolean = v
	return n
}

// NewString returns a string node.
func NewString(v string) *Node {
	n := newNode(KindString)
	n.text = v
	return n
}

// NewNumber returns a number node holding the given literal. The literal is not validated.
func NewNumber(literal string) *Node {
	n := newNode(KindNumber)
	n.text = literal
	return n
}

// NewInt returns a number node holding v.
func NewInt(v int64) *Node {
	return NewNumber(strconv.FormatInt(v, 10))
}

// NewFloat returns a number node holding v.
func NewFloat(v float64) *Node {
	return NewNumber(strconv.FormatFloat(v, 'g', -1, 64))
}

// NewReference returns a reference marker pointing at target.
func NewReference(target string) *Node {
	n := newNode(KindReference)
	n.text = target
	return n
}

// NewObject returns an empty object node.
func NewObject() *Node {
	n := newNode(KindObject)
	n.fields = map[string]*Node{}
	return n
}

// NewArray returns an array node holding items.
func NewArray(items ...*Node) *Node {
	n := newNode(KindArray)
	n.items = append([]*Node{}, items...)
	return n
}

// ID returns the identity of the node. IDs are unique for the lifetime of the process.
func (n *Node) ID() uint64 {
	if n == nil {
		return 0
	}
	return n.id
}

// Kind returns the kind of the node. A nil node is null.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

func (n *Node) IsObject() bool    { return n.Kind() == KindObject }
func (n *Node) IsArray() bool     { return n.Kind() == KindArray }
func (n *Node) IsString() bool    { return n.Kind() == KindString }
func (n *Node) IsReference() bool { return n.Kind() == KindReference }

// IsScalar reports whether the node is null, a boolean, a number or a string.
func (n *Node) IsScalar() bool {
	switch n.Kind() {
	case KindNull, KindBool, KindNumber, KindString:
		return true
	default:
		return false
	}
}

// Str returns the value of a string node.
func (n *Node) Str() (string, bool) {
	if n.Kind() != KindString {
		return "", false
	}
	return n.text, true
}

// Bool returns the value of a boolean node.
func (n *Node) Bool() (bool, bool) {
	if n.Kind() != KindBool {
		return false, false
	}
	return n.boolean, true
}

// Literal returns the literal text of a number node.
func (n *Node) Literal() (string, bool) {
	if n.Kind() != KindNumber {
		return "", false
	}
	return n.text, true
}

// Float returns the value of a number node as a float64.
func (n *Node) Float() (float64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the value of a number node holding an integer.
func (n *Node) Int() (int64, bool) {
	if n.Kind() != KindNumber {
		return 0, false
	}
	i, err := strconv.ParseInt(n.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Target returns the target of a reference marker.
func (n *Node) Target() (string, bool) {
	if n.Kind() != KindReference {
		return "", false
	}
	return n.text, true
}

// RefValue returns the value of the $ref field of an object node when it is a string.
func (n *Node) RefValue() (string, bool) {
	if !n.IsObject() {
		return "", false
	}
	v, ok := n.fields["$ref"]
	if !ok {
		return "", false
	}
	return v.Str()
}

// StringField returns the string value of key on an object node.
func (n *Node) StringField(key string) (string, bool) {
	v, ok := n.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// String returns a short human readable description of the node, for debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(n.boolean)
	case KindNumber:
		return n.text
	case KindString:
		return strconv.Quote(n.text)
	case KindReference:
		return fmt.Sprintf("$ref(%s)", n.text)
	case KindObject:
		return fmt.Sprintf("object#%d%v", n.id, n.keys)
	case KindArray:
		return fmt.Sprintf("array#%d[%d]", n.id, len(n.items))
	default:
		return n.kind.String()
	}
}
