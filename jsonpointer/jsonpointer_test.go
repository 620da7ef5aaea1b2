package jsonpointer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPointer_Validate_Success(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		j    JSONPointer
	}{
		{name: "empty is root", j: JSONPointer("")},
		{name: "root", j: JSONPointer("/")},
		{name: "simple path", j: JSONPointer("/some/path")},
		{name: "path with indices", j: JSONPointer("/some/path/0/1")},
		{name: "escaped path", j: JSONPointer("/~0/some~1path")},
		{name: "complex statement", j: JSONPointer("/paths/~1special-events~1{eventId}/get")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, tt.j.Validate())
		})
	}
}

func TestJSONPointer_Validate_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		j       JSONPointer
		wantErr string
	}{
		{
			name:    "invalid beginning",
			j:       JSONPointer("some/path"),
			wantErr: "validation error -- jsonpointer must start with /: some/path",
		},
		{
			name:    "empty part in path",
			j:       JSONPointer("/some//path"),
			wantErr: "validation error -- jsonpointer part must not be empty: /some//path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.EqualError(t, tt.j.Validate(), tt.wantErr)
		})
	}
}

func TestJSONPointer_Validate_UnescapedTilde_Error(t *testing.T) {
	t.Parallel()
	err := JSONPointer("/~/some~path").Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

type navigable struct {
	values map[string]any
	items  []any
}

func (n navigable) NavigateWithKey(key string) (any, error) {
	v, ok := n.values[key]
	if !ok {
		return nil, errors.New("missing " + key)
	}
	return v, nil
}

func (n navigable) NavigateWithIndex(index int) (any, error) {
	if index >= len(n.items) {
		return nil, errors.New("out of range")
	}
	return n.items[index], nil
}

func TestGetTarget_Success(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		source  any
		pointer JSONPointer
		want    any
	}{
		{
			name:    "root finds primitive",
			source:  1,
			pointer: JSONPointer("/"),
			want:    1,
		},
		{
			name:    "empty pointer finds object",
			source:  map[string]any{"a": 1},
			pointer: JSONPointer(""),
			want:    map[string]any{"a": 1},
		},
		{
			name:    "simple path in top level map",
			source:  map[string]any{"a": 1},
			pointer: JSONPointer("/a"),
			want:    1,
		},
		{
			name:    "numeric key in map",
			source:  map[string]any{"responses": map[string]any{"200": "ok"}},
			pointer: JSONPointer("/responses/200"),
			want:    "ok",
		},
		{
			name:    "index in slice",
			source:  map[string]any{"a": []any{"x", "y"}},
			pointer: JSONPointer("/a/1"),
			want:    "y",
		},
		{
			name:    "escaped keys",
			source:  map[string]any{"paths": map[string]any{"/pets/{id}": map[string]any{"a~b": true}}},
			pointer: JSONPointer("/paths/~1pets~1{id}/a~0b"),
			want:    true,
		},
		{
			name:    "navigable by key then index",
			source:  navigable{values: map[string]any{"list": navigable{items: []any{"first"}}}},
			pointer: JSONPointer("/list/0"),
			want:    "first",
		},
		{
			name:    "numeric key on navigable object falls back to key",
			source:  navigable{values: map[string]any{"404": "missing"}},
			pointer: JSONPointer("/404"),
			want:    "missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := GetTarget(tt.source, tt.pointer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetTarget_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		source  any
		pointer JSONPointer
		wantErr error
	}{
		{
			name:    "missing key",
			source:  map[string]any{"a": 1},
			pointer: JSONPointer("/b"),
			wantErr: ErrNotFound,
		},
		{
			name:    "index out of range",
			source:  []any{1},
			pointer: JSONPointer("/3"),
			wantErr: ErrNotFound,
		},
		{
			name:    "key on slice",
			source:  []any{1},
			pointer: JSONPointer("/a"),
			wantErr: ErrInvalidPath,
		},
		{
			name:    "navigate through scalar",
			source:  map[string]any{"a": 1},
			pointer: JSONPointer("/a/b"),
			wantErr: ErrInvalidPath,
		},
		{
			name:    "invalid pointer",
			source:  map[string]any{},
			pointer: JSONPointer("a"),
			wantErr: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := GetTarget(tt.source, tt.pointer)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPartsToJSONPointer_Success(t *testing.T) {
	t.Parallel()
	assert.Equal(t, JSONPointer("/"), PartsToJSONPointer(nil))
	assert.Equal(t, JSONPointer("/paths/~1pets/get"), PartsToJSONPointer([]string{"paths", "/pets", "get"}))

	parts, err := JSONPointer("/paths/~1pets/a~0b").Parts()
	require.NoError(t, err)
	assert.Equal(t, []string{"paths", "/pets", "a~b"}, parts)
}
