package deref

import (
	"slices"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/hashing"
	"github.com/speakeasy-api/openapi-deref/node"
)

// mergeAllOf folds the members of the allOf of schema into schema, in place. The fields of schema
// win over the members and its example and examples are kept as they are.
func (e *engine) mergeAllOf(schema *node.Node, f frame) {
	allOf, ok := schema.Get("allOf")
	if !ok {
		return
	}
	path := f.path.Child("allOf")

	if !allOf.IsArray() {
		e.fail(errors.ErrAllOfType, errors.ErrAllOfType.Wrapf("allOf must be an array, got %s", allOf.Kind()), frame{doc: f.doc, path: path}, "", "")
		return
	}
	if allOf.Len() == 0 {
		schema.Delete("allOf")
		return
	}

	for i, member := range allOf.Items() {
		switch {
		case member.IsReference():
			// cut cycle, nothing to merge
			return
		case !member.IsObject():
			e.fail(errors.ErrAllOfType, errors.ErrAllOfType.Wrapf("allOf members must be schemas, got %s", member.Kind()), frame{doc: f.doc, path: path.Child(strconv.Itoa(i))}, "", "")
			return
		case member.Has("$ref"):
			// unresolved member, already reported
			return
		}
	}

	merged := node.NewObject()
	for _, member := range allOf.Items() {
		for k, v := range member.Fields() {
			if k == MetaRefKey {
				continue
			}
			if existing, ok := merged.Get(k); ok {
				merged.Set(k, mergeValues(existing, v))
			} else {
				merged.Set(k, v.Clone())
			}
		}
	}

	for k, v := range schema.Fields() {
		if k == "allOf" {
			continue
		}
		existing, ok := merged.Get(k)
		if !ok || k == "example" || k == "examples" {
			merged.Set(k, v)
			continue
		}
		merged.Set(k, mergeValues(existing, v))
	}

	for _, k := range schema.Keys() {
		schema.Delete(k)
	}
	for k, v := range merged.Fields() {
		schema.Set(k, v)
	}
}

// mergeValues deep merges over into base. Objects merge field by field, arrays are concatenated
// without duplicates and anything else is replaced by over.
func mergeValues(base, over *node.Node) *node.Node {
	switch {
	case base.IsObject() && over.IsObject():
		out := node.NewObject()
		for k, v := range base.Fields() {
			out.Set(k, v)
		}
		for k, v := range over.Fields() {
			if existing, ok := out.Get(k); ok {
				out.Set(k, mergeValues(existing, v))
			} else {
				out.Set(k, v)
			}
		}
		return out
	case base.IsArray() && over.IsArray():
		out := node.NewArray()
		seen := map[string]struct{}{}
		for _, item := range slices.Concat(base.Items(), over.Items()) {
			h := hashing.Hash(item)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out.Append(item)
		}
		return out
	default:
		return over
	}
}
