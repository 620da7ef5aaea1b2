package node

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// FromAny converts a plain Go value (the shape produced by encoding/json or yaml.v3 decoding into
// any) into a node tree. Map keys are sorted since Go maps carry no order.
func FromAny(v any) (*Node, error) {
	switch v := v.(type) {
	case nil:
		return NewNull(), nil
	case *Node:
		return v, nil
	case bool:
		return NewBool(v), nil
	case string:
		return NewString(v), nil
	case json.Number:
		return NewNumber(v.String()), nil
	case int:
		return NewInt(int64(v)), nil
	case int8:
		return NewInt(int64(v)), nil
	case int16:
		return NewInt(int64(v)), nil
	case int32:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case uint:
		return NewNumber(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return NewInt(int64(v)), nil
	case uint16:
		return NewInt(int64(v)), nil
	case uint32:
		return NewInt(int64(v)), nil
	case uint64:
		return NewNumber(strconv.FormatUint(v, 10)), nil
	case float32:
		return NewFloat(float64(v)), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("unsupported number %v", v)
		}
		return NewFloat(v), nil
	case []any:
		out := NewArray()
		for _, item := range v {
			n, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, n)
		}
		return out, nil
	case map[string]any:
		out := NewObject()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			n, err := FromAny(v[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, n)
		}
		return out, nil
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return FromAny(m)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return FromAny(items)
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return FromAny(m)
	case reflect.String:
		return NewString(rv.String()), nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// MustFromAny is FromAny panicking on error, for literals in tests and examples.
func MustFromAny(v any) *Node {
	n, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return n
}

// ToAny converts the node tree into plain Go values: map[string]any, []any, string, bool, int,
// float64 and nil. Reference markers and revisited in-progress nodes become {"$ref": target}
// maps, as in ToYAML.
func ToAny(n *Node) any {
	r := renderer{active: map[uint64]Path{}}
	return r.plain(n, nil)
}

func (r *renderer) plain(n *Node, path Path) any {
	switch n.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return n.boolean
	case KindNumber:
		if i, err := strconv.ParseInt(n.text, 10, 64); err == nil {
			if i >= math.MinInt && i <= math.MaxInt {
				return int(i)
			}
			return i
		}
		f, err := strconv.ParseFloat(n.text, 64)
		if err != nil {
			return n.text
		}
		return f
	case KindString:
		return n.text
	case KindReference:
		return map[string]any{"$ref": n.text}
	}

	if first, ok := r.active[n.id]; ok {
		return map[string]any{"$ref": first.Fragment()}
	}
	r.active[n.id] = path
	defer delete(r.active, n.id)

	if n.kind == KindArray {
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = r.plain(item, path.Child(strconv.Itoa(i)))
		}
		return out
	}
	out := make(map[string]any, len(n.keys))
	for _, k := range n.keys {
		out[k] = r.plain(n.fields[k], path.Child(k))
	}
	return out
}
