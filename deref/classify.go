package deref

// elementKind is the role of a node in the document. It decides how a $ref found on the node is
// merged and how the children of the node are classified.
type elementKind int

const (
	kindGeneric elementKind = iota
	// kindData holds literal values such as examples and defaults, never dereferenced.
	kindData
	kindDocument
	kindComponents
	kindSchema
	kindSchemaMap
	kindPathItem
	kindPathItemMap
	kindOperation
	kindParameter
	// kindParameters is a list, or a map in components and swagger 2.0 documents, of parameters.
	kindParameters
	kindCallback
	kindCallbackMap
	kindExample
	kindExampleMap
)

var kindNames = map[elementKind]string{
	kindGeneric:     "generic",
	kindData:        "data",
	kindDocument:    "document",
	kindComponents:  "components",
	kindSchema:      "schema",
	kindSchemaMap:   "schema map",
	kindPathItem:    "path item",
	kindPathItemMap: "path item map",
	kindOperation:   "operation",
	kindParameter:   "parameter",
	kindParameters:  "parameters",
	kindCallback:    "callback",
	kindCallbackMap: "callback map",
	kindExample:     "example",
	kindExampleMap:  "example map",
}

func (k elementKind) String() string {
	return kindNames[k]
}

// refSite reports whether a $ref on a node of this kind is a reference.
func (k elementKind) refSite() bool {
	switch k {
	case kindData, kindDocument, kindComponents, kindSchemaMap, kindPathItemMap, kindParameters, kindCallbackMap, kindExampleMap:
		return false
	default:
		return true
	}
}

// mergesSiblings reports whether the fields next to a $ref are merged over the target instead of
// being limited to the description and summary overrides of a Reference Object.
func (k elementKind) mergesSiblings() bool {
	return k == kindSchema || k == kindPathItem
}

var httpMethods = map[string]struct{}{
	"get": {}, "put": {}, "post": {}, "delete": {}, "options": {}, "head": {}, "patch": {}, "trace": {},
}

var schemaValued = map[string]struct{}{
	"items": {}, "additionalItems": {}, "additionalProperties": {}, "not": {},
	"if": {}, "then": {}, "else": {}, "contains": {}, "propertyNames": {},
	"unevaluatedItems": {}, "unevaluatedProperties": {}, "contentSchema": {},
	"allOf": {}, "anyOf": {}, "oneOf": {}, "prefixItems": {},
}

var schemaMaps = map[string]struct{}{
	"properties": {}, "patternProperties": {}, "$defs": {}, "definitions": {},
	"dependentSchemas": {}, "dependencies": {},
}

var schemaData = map[string]struct{}{
	"example": {}, "examples": {}, "enum": {}, "const": {}, "default": {},
}

// childKind classifies the value found under key in a node of kind parent.
func childKind(parent elementKind, key string) elementKind {
	switch parent {
	case kindData:
		return kindData
	case kindDocument:
		switch key {
		case "paths", "webhooks":
			return kindPathItemMap
		case "components":
			return kindComponents
		case "definitions":
			return kindSchemaMap
		case "parameters":
			return kindParameters
		}
	case kindComponents:
		switch key {
		case "schemas":
			return kindSchemaMap
		case "pathItems":
			return kindPathItemMap
		case "callbacks":
			return kindCallbackMap
		case "parameters":
			return kindParameters
		case "examples":
			return kindExampleMap
		}
	case kindSchema:
		if _, ok := schemaValued[key]; ok {
			return kindSchema
		}
		if _, ok := schemaMaps[key]; ok {
			return kindSchemaMap
		}
		if _, ok := schemaData[key]; ok {
			return kindData
		}
		return kindGeneric
	case kindSchemaMap:
		return kindSchema
	case kindPathItemMap:
		return kindPathItem
	case kindPathItem:
		if _, ok := httpMethods[key]; ok {
			return kindOperation
		}
		if key == "parameters" {
			return kindParameters
		}
	case kindParameters:
		return kindParameter
	case kindCallbackMap:
		return kindCallback
	case kindCallback:
		return kindPathItem
	case kindExampleMap:
		return kindExample
	case kindExample:
		if key == "value" {
			return kindData
		}
	case kindParameter:
		switch key {
		case "example", "default", "enum":
			return kindData
		}
	}

	switch key {
	case "schema":
		return kindSchema
	case "example":
		return kindData
	case "examples":
		return kindExampleMap
	case "parameters":
		return kindParameters
	case "callbacks":
		return kindCallbackMap
	}
	return kindGeneric
}

// itemKind classifies the elements of an array of kind parent.
func itemKind(parent elementKind) elementKind {
	switch parent {
	case kindParameters:
		return kindParameter
	case kindSchema, kindData:
		return parent
	default:
		return kindGeneric
	}
}
