package deref

import (
	"github.com/speakeasy-api/openapi-deref/internal/version"
	"github.com/speakeasy-api/openapi-deref/node"
)

// Dialect is the kind of document being dereferenced.
type Dialect int

const (
	DialectGeneric Dialect = iota
	DialectSwagger2
	DialectOpenAPI30
	DialectOpenAPI31
	DialectJSONSchema
)

func (d Dialect) String() string {
	switch d {
	case DialectSwagger2:
		return "swagger 2.0"
	case DialectOpenAPI30:
		return "openapi 3.0"
	case DialectOpenAPI31:
		return "openapi 3.1"
	case DialectJSONSchema:
		return "json schema"
	default:
		return "generic"
	}
}

// DetectDialect inspects the root of a document. Version fields written as YAML numbers, as in
// swagger: 2.0, are accepted.
func DetectDialect(root *node.Node) Dialect {
	if v, ok := versionField(root, "swagger"); ok && v.Major == 2 {
		return DialectSwagger2
	}
	if v, ok := versionField(root, "openapi"); ok && v.Major == 3 {
		if v.Minor == 0 {
			return DialectOpenAPI30
		}
		return DialectOpenAPI31
	}
	if root.Has("$schema") {
		return DialectJSONSchema
	}
	return DialectGeneric
}

func versionField(root *node.Node, key string) (*version.Version, bool) {
	field, ok := root.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := field.Str()
	if !ok {
		if s, ok = field.Literal(); !ok {
			return nil, false
		}
	}
	v, err := version.ParseVersion(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (d Dialect) rootKind() elementKind {
	switch d {
	case DialectSwagger2, DialectOpenAPI30, DialectOpenAPI31:
		return kindDocument
	case DialectJSONSchema:
		return kindSchema
	default:
		return kindGeneric
	}
}
