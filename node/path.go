package node

import (
	"strings"

	"github.com/speakeasy-api/openapi-deref/jsonpointer"
)

// Path is the position of a node within a document, as the sequence of keys and indices leading
// to it from the root.
type Path []string

// Child returns a new path extending p with seg. p is never modified.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Last returns the last segment of the path, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Pointer returns the JSON pointer addressing the path.
func (p Path) Pointer() jsonpointer.JSONPointer {
	return jsonpointer.PartsToJSONPointer(p)
}

// Fragment returns the path as a URI fragment, e.g. "#/components/schemas/Pet". The root is "#".
func (p Path) Fragment() string {
	if len(p) == 0 {
		return "#"
	}
	return "#" + string(p.Pointer())
}

func (p Path) String() string {
	return string(p.Pointer())
}

// HasPrefix reports whether p starts with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ParsePath converts a JSON pointer into a Path.
func ParsePath(pointer string) (Path, error) {
	pointer = strings.TrimPrefix(pointer, "#")
	parts, err := jsonpointer.JSONPointer(pointer).Parts()
	if err != nil {
		return nil, err
	}
	return Path(parts), nil
}
