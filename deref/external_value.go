package deref

import (
	"context"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/patch"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/retrieval"
)

// ExternalValuePlugin returns the plugin inlining the content an Example Object points at with
// externalValue as its value. JSON and YAML content is parsed, anything else is kept as a
// string. Examples that already have a value are left alone.
func ExternalValuePlugin(cache *retrieval.Cache) patch.Plugin {
	return patch.Plugin{
		Name: "external-value",
		Key:  "externalValue",
		Fn: func(ctx context.Context, value *node.Node, _ string, path node.Path, state *patch.State) ([]patch.Patch, error) {
			raw, ok := value.Str()
			if !ok || raw == "" {
				return nil, nil
			}
			example, err := state.Document.Resolve(path.Parent().Pointer())
			if err != nil || !example.IsObject() || example.Has("value") {
				return nil, nil
			}

			uri, err := references.Absolutize(references.Reference(raw), state.BaseDoc(path))
			if err != nil {
				return nil, externalValueError(raw, err)
			}
			res, err := cache.ReadResource(ctx, references.StripFragment(uri))
			if err != nil {
				return nil, externalValueError(raw, err)
			}

			var content *node.Node
			if _, ok := cache.Parsers().Lookup(res.MediaType); ok {
				content, err = cache.Parsers().Parse(res)
				if err != nil {
					return nil, externalValueError(raw, err)
				}
			} else {
				content = node.NewString(string(res.Data))
			}

			return []patch.Patch{patch.Add(path.Parent().Child("value"), content)}, nil
		},
	}
}

func externalValueError(raw string, err error) error {
	return &errors.ResolutionError{
		Kind:    errors.ErrExternalValue,
		Message: errors.RootCause(err).Error(),
		Ref:     raw,
		Cause:   err,
	}
}
