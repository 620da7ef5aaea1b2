package patch_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_FixedPoint(t *testing.T) {
	t.Parallel()

	doc := node.MustFromAny(map[string]any{
		"a": map[string]any{"counter": 0},
		"b": map[string]any{"counter": 5},
	})

	// increments every counter until it reaches 3
	plugin := patch.Plugin{
		Name: "counter",
		Key:  "counter",
		Fn: func(_ context.Context, value *node.Node, _ string, path node.Path, _ *patch.State) ([]patch.Patch, error) {
			i, _ := value.Int()
			if i >= 3 {
				return nil, nil
			}
			return []patch.Patch{patch.Replace(path, node.NewInt(i+1))}, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"counter": 3},
		"b": map[string]any{"counter": 5},
	}, node.ToAny(res.Document))

	// input is untouched
	assert.Equal(t, map[string]any{
		"a": map[string]any{"counter": 0},
		"b": map[string]any{"counter": 5},
	}, node.ToAny(doc))
}

func TestApply_PluginErrorRemovesSubtree(t *testing.T) {
	t.Parallel()

	doc := node.MustFromAny(map[string]any{
		"examples": map[string]any{
			"good": map[string]any{"bad": false},
			"evil": map[string]any{"bad": true},
		},
	})

	plugin := patch.Plugin{
		Name: "reject",
		Key:  "bad",
		Fn: func(_ context.Context, value *node.Node, _ string, _ node.Path, _ *patch.State) ([]patch.Patch, error) {
			if b, _ := value.Bool(); b {
				return nil, errors.New("bad value")
			}
			return nil, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{BaseDoc: "file:///root.yaml"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, errors.ErrPlugin, res.Errors[0].Kind)
	assert.Equal(t, "/examples/evil/bad", res.Errors[0].FullPath)
	assert.Equal(t, "file:///root.yaml", res.Errors[0].BaseDoc)
	assert.Equal(t, "bad value", res.Errors[0].Message)

	assert.Equal(t, map[string]any{
		"examples": map[string]any{
			"good": map[string]any{"bad": false},
			"evil": map[string]any{},
		},
	}, node.ToAny(res.Document))
}

func TestApply_PanicIsRecorded(t *testing.T) {
	t.Parallel()

	doc := node.MustFromAny(map[string]any{"x": 1})
	plugin := patch.Plugin{
		Name: "panics",
		Key:  "x",
		Fn: func(context.Context, *node.Node, string, node.Path, *patch.State) ([]patch.Patch, error) {
			panic("boom")
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{})
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "boom")
	assert.Equal(t, map[string]any{}, node.ToAny(res.Document))
}

func TestApply_PassCap(t *testing.T) {
	t.Parallel()

	doc := node.MustFromAny(map[string]any{"n": 0})
	plugin := patch.Plugin{
		Name: "forever",
		Key:  "n",
		Fn: func(_ context.Context, value *node.Node, _ string, path node.Path, _ *patch.State) ([]patch.Patch, error) {
			i, _ := value.Int()
			return []patch.Patch{patch.Replace(path, node.NewInt(i+1))}, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{MaxPasses: 10})
	assert.Equal(t, 10, res.Passes)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], errors.ErrPlugin)
	assert.Equal(t, "/n", res.Errors[0].FullPath)
}

func TestApply_ManyChangesConverge(t *testing.T) {
	t.Parallel()

	examples := map[string]any{}
	for i := range 1500 {
		examples["e"+strconv.Itoa(i)] = map[string]any{"externalValue": "v.json"}
	}
	doc := node.MustFromAny(map[string]any{"examples": examples})

	plugin := patch.Plugin{
		Name: "inline",
		Key:  "externalValue",
		Fn: func(_ context.Context, _ *node.Node, _ string, path node.Path, state *patch.State) ([]patch.Patch, error) {
			example, err := state.Document.Resolve(path.Parent().Pointer())
			if err != nil || example.Has("value") {
				return nil, nil
			}
			return []patch.Patch{patch.Add(path.Parent().Child("value"), node.NewString("inlined"))}, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{MaxPasses: 5})
	require.Empty(t, res.Errors)

	out, ok := res.Document.Get("examples")
	require.True(t, ok)
	assert.Equal(t, 1500, out.Len())
	for name, example := range out.Fields() {
		v, ok := example.StringField("value")
		assert.True(t, ok, "example %s has no value", name)
		assert.Equal(t, "inlined", v)
	}
}

func TestApply_ArrayPatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patch    patch.Patch
		expected []any
		err      bool
	}{
		{name: "replace index", patch: patch.Replace(node.Path{"list", "1"}, node.NewString("B")), expected: []any{"a", "B", "c"}},
		{name: "insert at index", patch: patch.Add(node.Path{"list", "0"}, node.NewString("z")), expected: []any{"z", "a", "b", "c"}},
		{name: "append", patch: patch.Add(node.Path{"list", "-"}, node.NewString("d")), expected: []any{"a", "b", "c", "d"}},
		{name: "remove index", patch: patch.Remove(node.Path{"list", "2"}), expected: []any{"a", "b"}},
		{name: "invalid index", patch: patch.Replace(node.Path{"list", "x"}, node.NewString("B")), err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := node.MustFromAny(map[string]any{"list": []any{"a", "b", "c"}, "trigger": true})
			applied := false
			plugin := patch.Plugin{
				Name: "once",
				Key:  "trigger",
				Fn: func(context.Context, *node.Node, string, node.Path, *patch.State) ([]patch.Patch, error) {
					if applied {
						return nil, nil
					}
					applied = true
					return []patch.Patch{tt.patch}, nil
				},
			}

			res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{})
			if tt.err {
				require.Len(t, res.Errors, 1)
				assert.Contains(t, res.Errors[0].Message, `invalid array index "x"`)
				return
			}
			require.Empty(t, res.Errors)
			list, ok := res.Document.Get("list")
			require.True(t, ok)
			assert.Equal(t, tt.expected, node.ToAny(list))
		})
	}
}

func TestApply_MergeAddRemove(t *testing.T) {
	t.Parallel()

	doc := node.MustFromAny(map[string]any{
		"example": map[string]any{"externalValue": "x.json", "summary": "s"},
		"list":    []any{"a"},
	})

	plugin := patch.Plugin{
		Name: "inline",
		Key:  "externalValue",
		Fn: func(_ context.Context, _ *node.Node, _ string, path node.Path, _ *patch.State) ([]patch.Patch, error) {
			return []patch.Patch{
				patch.Merge(path.Parent(), node.MustFromAny(map[string]any{"value": "inlined"})),
				patch.Remove(path),
				patch.Add(node.Path{"list", "-"}, node.NewString("b")),
			}, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{
		"example": map[string]any{"summary": "s", "value": "inlined"},
		"list":    []any{"a", "b"},
	}, node.ToAny(res.Document))
}

func TestApply_ContextFromProvenance(t *testing.T) {
	t.Parallel()

	inner := node.MustFromAny(map[string]any{"marker": true})
	inner.SetMeta(node.Meta{RefOrigin: "https://example.com/ext.yaml"})
	doc := node.NewObject()
	doc.Set("local", node.MustFromAny(map[string]any{"marker": true}))
	doc.Set("remote", inner)

	seen := map[string]string{}
	plugin := patch.Plugin{
		Name: "marker",
		Key:  "marker",
		Fn: func(_ context.Context, _ *node.Node, _ string, path node.Path, state *patch.State) ([]patch.Patch, error) {
			seen[path.String()] = state.BaseDoc(path)
			return nil, nil
		},
	}

	res := patch.Apply(t.Context(), doc, []patch.Plugin{plugin}, patch.Options{BaseDoc: "file:///root.yaml"})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]string{
		"/local/marker":  "file:///root.yaml",
		"/remote/marker": "https://example.com/ext.yaml",
	}, seen)
}

func TestContextTree(t *testing.T) {
	t.Parallel()

	tree := patch.NewContextTree()
	assert.True(t, tree.Set(nil, map[string]any{"baseDoc": "root", "x": 1}))
	assert.False(t, tree.Set(nil, map[string]any{"baseDoc": "root"}))
	assert.True(t, tree.Set(node.Path{"a", "b"}, map[string]any{"baseDoc": "ab"}))

	assert.Equal(t, "root", tree.GetString(node.Path{"a"}, "baseDoc"))
	assert.Equal(t, "ab", tree.GetString(node.Path{"a", "b", "c"}, "baseDoc"))
	assert.Equal(t, map[string]any{"baseDoc": "ab", "x": 1}, tree.Values(node.Path{"a", "b"}))

	tree.Prune(node.Path{"a"})
	assert.Equal(t, "root", tree.GetString(node.Path{"a", "b"}, "baseDoc"))

	_, ok := tree.Get(nil, "missing")
	assert.False(t, ok)
}
