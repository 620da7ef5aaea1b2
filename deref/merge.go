package deref

import (
	"github.com/speakeasy-api/openapi-deref/node"
)

// MetaRefKey is the field stamped with the absolute resolved URI when Options.AllowMetaPatches
// is set.
const MetaRefKey = "$$ref"

// overridable are the Reference Object fields that replace the ones of the target.
var overridable = []string{"description", "summary"}

// merge builds the output of the reference object src from out, the expanded target found at abs
// in the document at origin.
func (e *engine) merge(src, out *node.Node, abs, origin string, f frame) *node.Node {
	switch out.Kind() {
	case node.KindObject:
	case node.KindArray:
		return e.reuse(out)
	default:
		// scalars, boolean schemas and cut cycles replace the reference as they are
		return out
	}

	result := e.reuse(out)
	if f.kind.mergesSiblings() {
		merged := node.NewObject()
		for k, v := range result.Fields() {
			merged.Set(k, v)
		}
		for k, v := range src.Fields() {
			if k == "$ref" {
				continue
			}
			child, keep := e.visit(v, f.child(k, childKind(f.kind, k)))
			if keep {
				merged.Set(k, child)
			}
		}
		result = merged
	} else {
		for _, k := range overridable {
			if v, ok := src.Get(k); ok && result.Has(k) {
				result.Set(k, v)
			}
		}
	}

	result.SetMeta(node.Meta{RefFields: src.Clone(), RefOrigin: origin})
	if e.opts.AllowMetaPatches {
		StampMetaRef(result, abs)
	}
	if f.kind == kindSchema {
		// the target finished on its own, only the siblings written at this site are left
		if e.opts.ModelPropertyMacro != nil && src.Has("properties") {
			e.applyModelPropertyMacro(result, f)
		}
		if !e.opts.DisableAllOfMerge && src.Has("allOf") {
			e.mergeAllOf(result, f)
		}
	}
	return result
}

// StampMetaRef sets $$ref on obj unless it is already there. It reports whether obj changed.
func StampMetaRef(obj *node.Node, abs string) bool {
	if !obj.IsObject() || obj.Has(MetaRefKey) {
		return false
	}
	obj.Set(MetaRefKey, node.NewString(abs))
	return true
}
