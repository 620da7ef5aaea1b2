package hashing

import (
	"testing"

	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/stretchr/testify/assert"
)

func TestHash_Equivalence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		a         any
		b         any
		wantEqual bool
	}{
		{
			name:      "same string",
			a:         "hello",
			b:         "hello",
			wantEqual: true,
		},
		{
			name:      "key order is ignored",
			a:         map[string]any{"type": "string", "minLength": 1},
			b:         map[string]any{"minLength": 1, "type": "string"},
			wantEqual: true,
		},
		{
			name:      "int and float of same value",
			a:         1,
			b:         1.0,
			wantEqual: true,
		},
		{
			name:      "string and number differ",
			a:         "1",
			b:         1,
			wantEqual: false,
		},
		{
			name:      "array order matters",
			a:         []any{"a", "b"},
			b:         []any{"b", "a"},
			wantEqual: false,
		},
		{
			name:      "nested arrays are delimited",
			a:         []any{[]any{"a"}, "b"},
			b:         []any{[]any{"a", "b"}},
			wantEqual: false,
		},
		{
			name:      "key and value boundaries",
			a:         map[string]any{"ab": "c"},
			b:         map[string]any{"a": "bc"},
			wantEqual: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ha := Hash(node.MustFromAny(tt.a))
			hb := Hash(node.MustFromAny(tt.b))
			assert.Len(t, ha, 16)
			if tt.wantEqual {
				assert.Equal(t, ha, hb)
			} else {
				assert.NotEqual(t, ha, hb)
			}
		})
	}
}

func TestHash_IgnoresIdentityAndMeta(t *testing.T) {
	t.Parallel()

	a := node.MustFromAny(map[string]any{"type": "object"})
	b := a.Clone()
	b.SetMeta(node.Meta{RefOrigin: "http://example.com/spec.yaml"})
	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_Cycle(t *testing.T) {
	t.Parallel()

	a := node.NewObject()
	a.Set("self", a)
	assert.NotEmpty(t, Hash(a))
}

func TestFormatHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0000000000000000", formatHash(0))
	assert.Equal(t, "cbf29ce484222325", formatHash(0xcbf29ce484222325))
}
