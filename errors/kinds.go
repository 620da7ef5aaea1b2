package errors

const (
	// ErrRetrieval is reported when a referenced document could not be retrieved or parsed.
	ErrRetrieval = Error("retrieval error")
	// ErrNotFound is the retrieval sub-kind for a document that does not exist.
	ErrNotFound = Error("not found")
	// ErrParse is the retrieval sub-kind for a document that could not be parsed.
	ErrParse = Error("parse failure")
	// ErrNetwork is the retrieval sub-kind for transport failures.
	ErrNetwork = Error("network failure")
	// ErrUnsupported is the retrieval sub-kind for locators no resolver can read.
	ErrUnsupported = Error("unsupported locator")

	// ErrEvaluation is reported when a JSON Pointer, $id or $anchor does not address a node.
	ErrEvaluation = Error("evaluation error")
	// ErrUnknownURI is raised by the URI evaluator when no node declares the URI. It only
	// triggers the anchor/pointer fallback and is never reported on its own.
	ErrUnknownURI = Error("unknown uri")

	// ErrMaximumDereferenceDepth is reported when a chain of references exceeds the configured depth.
	ErrMaximumDereferenceDepth = Error("maximum dereference depth exceeded")
	// ErrRecursiveReference is reported when a cycle is found and the circular policy forbids it.
	ErrRecursiveReference = Error("recursive reference")
	// ErrAllOfType is reported for an allOf whose members are not all schemas.
	ErrAllOfType = Error("allOf type error")
	// ErrMacro is reported when a parameter or model property macro fails.
	ErrMacro = Error("macro error")
	// ErrExternalValue is reported when an example externalValue cannot be fetched or parsed.
	ErrExternalValue = Error("external value error")
	// ErrPlugin is reported for any other patch plugin failure.
	ErrPlugin = Error("plugin error")
)

var kinds = []Error{
	ErrRetrieval,
	ErrEvaluation,
	ErrMaximumDereferenceDepth,
	ErrRecursiveReference,
	ErrAllOfType,
	ErrMacro,
	ErrExternalValue,
	ErrPlugin,
}
