// Package json writes documents as JSON without reordering object keys.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/speakeasy-api/openapi-deref/node"
	"gopkg.in/yaml.v3"
)

// Marshal writes n to w as JSON indented by indentation spaces, or compact when indentation is
// zero. Reference markers and cycles are written as {"$ref": ...} objects.
func Marshal(n *node.Node, indentation int, w io.Writer) error {
	return YAMLToJSON(node.ToYAML(n), indentation, w)
}

// YAMLToJSON will convert the provided YAML node to JSON in a stable way not reordering keys.
func YAMLToJSON(y *yaml.Node, indentation int, buffer io.Writer) error {
	if y == nil {
		return errors.New("yaml node is nil")
	}

	v, err := handleYAMLNode(y)
	if err != nil {
		return err
	}

	e := json.NewEncoder(buffer)
	e.SetEscapeHTML(false)
	if indentation > 0 {
		e.SetIndent("", strings.Repeat(" ", indentation))
	}

	return e.Encode(v)
}

// object is a JSON object that remembers the order its keys were added in.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshal encodes v without escaping <, > and &, which json.Marshal always does.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func handleYAMLNode(y *yaml.Node) (any, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return nil, nil
		}
		return handleYAMLNode(y.Content[0])
	case yaml.SequenceNode:
		return handleSequenceNode(y)
	case yaml.MappingNode:
		return handleMappingNode(y)
	case yaml.ScalarNode:
		return handleScalarNode(y)
	case yaml.AliasNode:
		return handleYAMLNode(y.Alias)
	default:
		return nil, fmt.Errorf("unknown node kind: %d", y.Kind)
	}
}

func handleMappingNode(y *yaml.Node) (any, error) {
	v := &object{values: map[string]any{}}
	for i := 0; i+1 < len(y.Content); i += 2 {
		keyNode := y.Content[i]
		key := keyNode.Value
		if keyNode.Kind != yaml.ScalarNode {
			kv, err := handleYAMLNode(keyNode)
			if err != nil {
				return nil, err
			}
			keyData, err := marshal(kv)
			if err != nil {
				return nil, err
			}
			key = string(keyData)
		}

		vv, err := handleYAMLNode(y.Content[i+1])
		if err != nil {
			return nil, err
		}

		v.set(key, vv)
	}

	return v, nil
}

func handleSequenceNode(y *yaml.Node) (any, error) {
	v := make([]any, len(y.Content))
	for i, item := range y.Content {
		vv, err := handleYAMLNode(item)
		if err != nil {
			return nil, err
		}
		v[i] = vv
	}

	return v, nil
}

func handleScalarNode(y *yaml.Node) (any, error) {
	var v any

	if err := y.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}
