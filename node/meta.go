package node

// Meta is provenance data carried next to a node. It never takes part in structural equality.
type Meta struct {
	// RefFields holds the fields of the referencing node a merged node was produced from.
	RefFields *Node
	// RefOrigin is the retrieval URI of the document the content was resolved from.
	RefOrigin string
}

// IsZero reports whether no provenance has been recorded.
func (m Meta) IsZero() bool {
	return m.RefFields == nil && m.RefOrigin == ""
}

// Meta returns the provenance of the node.
func (n *Node) Meta() Meta {
	if n == nil {
		return Meta{}
	}
	return n.meta
}

// SetMeta replaces the provenance of the node.
func (n *Node) SetMeta(m Meta) {
	n.meta = m
}

// RefFields returns the fields of the referencing node, if recorded.
func (n *Node) RefFields() *Node {
	return n.Meta().RefFields
}

// RefOrigin returns the retrieval URI the content was resolved from, if recorded.
func (n *Node) RefOrigin() string {
	return n.Meta().RefOrigin
}
