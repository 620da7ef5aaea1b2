// Package jsonpointer provides JSONPointer an implementation of RFC6901 https://datatracker.ietf.org/doc/html/rfc6901
package jsonpointer

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/openapi-deref/errors"
)

const (
	// ErrNotFound is returned when the target is not found.
	ErrNotFound = errors.Error("not found")
	// ErrInvalidPath is returned when the path is invalid.
	ErrInvalidPath = errors.Error("invalid path")
	// ErrValidation is returned when the jsonpointer is invalid.
	ErrValidation = errors.Error("validation error")
)

// JSONPointer represents a JSON Pointer value as defined by RFC6901 https://datatracker.ietf.org/doc/html/rfc6901
//
// The empty pointer and "/" both address the root of the source.
type JSONPointer string

// KeyNavigable is implemented by object-like values that can be navigated by key.
type KeyNavigable interface {
	NavigateWithKey(key string) (any, error)
}

// IndexNavigable is implemented by array-like values that can be navigated by index.
type IndexNavigable interface {
	NavigateWithIndex(index int) (any, error)
}

// Validate will validate the JSONPointer is valid as per RFC6901.
func (j JSONPointer) Validate() error {
	if j == "" {
		return nil
	}
	_, err := j.getNavigationStack()
	if err != nil {
		return ErrValidation.Wrap(err)
	}
	return nil
}

// Parts returns the unescaped reference tokens of the pointer.
func (j JSONPointer) Parts() ([]string, error) {
	if j == "" {
		return nil, nil
	}
	stack, err := j.getNavigationStack()
	if err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	parts := make([]string, 0, len(stack))
	for _, p := range stack {
		parts = append(parts, p.unescapeValue())
	}
	return parts, nil
}

// IsRoot reports whether the pointer addresses the root of the source.
func (j JSONPointer) IsRoot() bool {
	return j == "" || j == "/"
}

func (j JSONPointer) String() string {
	return string(j)
}

// GetTarget will evaluate the JSONPointer against the source and return the target.
// Sources can be map[string]any, []any, or any type implementing KeyNavigable or IndexNavigable.
func GetTarget(source any, pointer JSONPointer) (any, error) {
	if pointer == "" {
		return source, nil
	}

	stack, err := pointer.getNavigationStack()
	if err != nil {
		return nil, ErrValidation.Wrap(err)
	}

	current := source
	currentPath := ""
	for _, part := range stack {
		currentPath = buildPath(currentPath, part)
		current, err = getTarget(current, part, currentPath)
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}

func getTarget(source any, part navigationPart, currentPath string) (any, error) {
	switch s := source.(type) {
	case map[string]any:
		key := part.unescapeValue()
		v, ok := s[key]
		if !ok {
			return nil, ErrNotFound.Wrap(fmt.Errorf("key %s not found in map at %s", key, currentPath))
		}
		return v, nil
	case []any:
		index, err := part.getIndex()
		if err != nil {
			return nil, ErrInvalidPath.Wrap(fmt.Errorf("%w at %s", err, currentPath))
		}
		if index >= len(s) {
			return nil, ErrNotFound.Wrap(fmt.Errorf("index %d out of range for slice of length %d at %s", index, len(s), currentPath))
		}
		return s[index], nil
	case IndexNavigable:
		if part.Type == partTypeIndex {
			index, err := part.getIndex()
			if err != nil {
				return nil, ErrInvalidPath.Wrap(fmt.Errorf("%w at %s", err, currentPath))
			}
			v, err := s.NavigateWithIndex(index)
			if err == nil {
				return v, nil
			}
			if kn, ok := source.(KeyNavigable); ok {
				return navigateKey(kn, part, currentPath)
			}
			return nil, ErrNotFound.Wrap(fmt.Errorf("%w at %s", err, currentPath))
		}
		if kn, ok := source.(KeyNavigable); ok {
			return navigateKey(kn, part, currentPath)
		}
		return nil, ErrInvalidPath.Wrap(fmt.Errorf("expected index, got %s at %s", part.Value, currentPath))
	case KeyNavigable:
		return navigateKey(s, part, currentPath)
	case nil:
		return nil, ErrNotFound.Wrap(fmt.Errorf("source is nil at %s", currentPath))
	default:
		return nil, ErrInvalidPath.Wrap(fmt.Errorf("expected object or array, got %T at %s", source, currentPath))
	}
}

func navigateKey(kn KeyNavigable, part navigationPart, currentPath string) (any, error) {
	v, err := kn.NavigateWithKey(part.unescapeValue())
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			return nil, ErrInvalidPath.Wrap(fmt.Errorf("%w at %s", err, currentPath))
		}
		return nil, ErrNotFound.Wrap(fmt.Errorf("%w at %s", err, currentPath))
	}
	return v, nil
}

// PartsToJSONPointer will convert the exploded parts of a JSONPointer to a JSONPointer.
func PartsToJSONPointer(parts []string) JSONPointer {
	if len(parts) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteByte('/')
		sb.WriteString(escape(part))
	}
	return JSONPointer(sb.String())
}

func buildPath(currentPath string, currentPart navigationPart) string {
	return currentPath + "/" + currentPart.Value
}

// EscapeString escapes a string for use as a reference token in a JSON pointer according to RFC6901.
// It replaces "~" with "~0" and "/" with "~1" as required by the specification.
func EscapeString(s string) string {
	return escape(s)
}

// UnescapeString reverses EscapeString.
func UnescapeString(s string) string {
	return unescape(s)
}

func escape(part string) string {
	return strings.ReplaceAll(strings.ReplaceAll(part, "~", "~0"), "/", "~1")
}

func unescape(part string) string {
	return strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
}
