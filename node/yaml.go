package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON document into a node tree.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return NewNull(), nil
	}
	return FromYAML(&doc)
}

// FromYAML converts a yaml.v3 node into a node tree. Anchored values referenced through aliases
// become a single shared node.
func FromYAML(y *yaml.Node) (*Node, error) {
	c := yamlConverter{seen: map[*yaml.Node]*Node{}}
	return c.convert(y)
}

type yamlConverter struct {
	seen map[*yaml.Node]*Node
}

func (c *yamlConverter) convert(y *yaml.Node) (*Node, error) {
	if y == nil {
		return NewNull(), nil
	}
	if n, ok := c.seen[y]; ok {
		return n, nil
	}

	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NewNull(), nil
		}
		return c.convert(y.Content[0])
	case yaml.AliasNode:
		return c.convert(y.Alias)
	case yaml.MappingNode:
		return c.convertMapping(y)
	case yaml.SequenceNode:
		out := NewArray()
		c.seen[y] = out
		for _, item := range y.Content {
			v, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, v)
		}
		return out, nil
	case yaml.ScalarNode:
		n, err := convertScalar(y)
		if err != nil {
			return nil, err
		}
		c.seen[y] = n
		return n, nil
	default:
		return nil, fmt.Errorf("unknown yaml node kind %d at line %d", y.Kind, y.Line)
	}
}

func (c *yamlConverter) convertMapping(y *yaml.Node) (*Node, error) {
	out := NewObject()
	c.seen[y] = out

	var merges []*yaml.Node
	for i := 0; i+1 < len(y.Content); i += 2 {
		keyNode, valueNode := y.Content[i], y.Content[i+1]
		if keyNode.ShortTag() == "!!merge" {
			merges = append(merges, valueNode)
			continue
		}
		v, err := c.convert(valueNode)
		if err != nil {
			return nil, err
		}
		out.Set(keyNode.Value, v)
	}

	// explicit keys win over merged ones
	for _, m := range merges {
		sources := []*yaml.Node{m}
		if resolveAlias(m).Kind == yaml.SequenceNode {
			sources = resolveAlias(m).Content
		}
		for _, src := range sources {
			merged, err := c.convert(src)
			if err != nil {
				return nil, err
			}
			if !merged.IsObject() {
				return nil, fmt.Errorf("merge value at line %d is not a mapping", m.Line)
			}
			for k, v := range merged.Fields() {
				if !out.Has(k) {
					out.Set(k, v)
				}
			}
		}
	}
	return out, nil
}

func resolveAlias(y *yaml.Node) *yaml.Node {
	for y.Kind == yaml.AliasNode && y.Alias != nil {
		y = y.Alias
	}
	return y
}

func convertScalar(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, err
		}
		return NewBool(b), nil
	case "!!int", "!!float":
		// keep the literal as written when JSON can carry it, so 2.0 stays 2.0
		if json.Valid([]byte(y.Value)) {
			return NewNumber(y.Value), nil
		}
		var v any
		if err := y.Decode(&v); err != nil {
			return nil, err
		}
		n, err := FromAny(v)
		if err != nil {
			// .inf and .nan have no JSON representation
			return NewString(y.Value), nil
		}
		return n, nil
	default:
		return NewString(y.Value), nil
	}
}

// ToYAML converts a node tree into a yaml.v3 node. Reference markers render as {$ref: target}.
// A node reached again while it is still being rendered renders as a $ref to the fragment of
// its first occurrence, so cyclic trees produce finite output.
func ToYAML(n *Node) *yaml.Node {
	r := renderer{active: map[uint64]Path{}}
	return r.yaml(n, nil)
}

type renderer struct {
	active map[uint64]Path
}

func refYAML(target string) *yaml.Node {
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "$ref"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: target},
		},
	}
}

func (r *renderer) yaml(n *Node, path Path) *yaml.Node {
	switch n.Kind() {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.boolean)}
	case KindNumber:
		tag := "!!float"
		if _, err := strconv.ParseInt(n.text, 10, 64); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.text}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.text}
	case KindReference:
		return refYAML(n.text)
	}

	if first, ok := r.active[n.id]; ok {
		return refYAML(first.Fragment())
	}
	r.active[n.id] = path
	defer delete(r.active, n.id)

	if n.kind == KindArray {
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range n.items {
			out.Content = append(out.Content, r.yaml(item, path.Child(strconv.Itoa(i))))
		}
		return out
	}
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range n.keys {
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			r.yaml(n.fields[k], path.Child(k)),
		)
	}
	return out
}

// MarshalYAML renders the node as a YAML document with the given indentation.
func MarshalYAML(n *Node, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(ToYAML(n)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
