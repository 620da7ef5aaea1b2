package deref

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/patch"
	"github.com/speakeasy-api/openapi-deref/retrieval"
	"github.com/speakeasy-api/openapi-deref/system"
)

// DefaultMaxDepth is the default ceiling on the number of references followed along one branch.
const DefaultMaxDepth = 100

// CircularPolicy decides what happens when a reference leads back to a node that is still being
// expanded on the same branch.
type CircularPolicy int

const (
	// CircularCut stops at the cycle and leaves a reference marker pointing at the target.
	CircularCut CircularPolicy = iota
	// CircularKeep lets the output point back at the ancestor, producing a cyclic tree.
	CircularKeep
	// CircularIgnore drops the cyclic field or array element.
	CircularIgnore
	// CircularError records a recursive reference error and leaves the reference as written.
	CircularError
)

func (p CircularPolicy) String() string {
	switch p {
	case CircularCut:
		return "cut"
	case CircularKeep:
		return "keep"
	case CircularIgnore:
		return "ignore"
	case CircularError:
		return "error"
	default:
		return fmt.Sprintf("CircularPolicy(%d)", int(p))
	}
}

// ParseCircularPolicy parses the name of a policy. "false" and "true" are accepted for cut and
// keep.
func ParseCircularPolicy(s string) (CircularPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cut", "false":
		return CircularCut, nil
	case "keep", "true":
		return CircularKeep, nil
	case "ignore":
		return CircularIgnore, nil
	case "error":
		return CircularError, nil
	default:
		return CircularCut, fmt.Errorf("unknown circular policy %q, expected cut, keep, ignore or error", s)
	}
}

// ParameterMacroFunc computes the default of parameter, one of the parameters of operation. A nil
// result leaves the parameter untouched.
type ParameterMacroFunc func(operation, parameter *node.Node) (*node.Node, error)

// ModelPropertyMacroFunc computes the default of a schema property. A nil result leaves the
// property untouched.
type ModelPropertyMacroFunc func(property *node.Node) (*node.Node, error)

// Options configure a dereference call. The zero value follows external references, cuts cycles
// and allows 100 levels of indirection.
type Options struct {
	// BaseDoc is the retrieval URI of the root document, the base of its relative references.
	BaseDoc string
	// DisableExternalRefs leaves references to other documents as written. Path items referencing
	// other documents are removed.
	DisableExternalRefs bool
	// MaxDepth is the maximum number of references followed along one branch. Zero means
	// DefaultMaxDepth.
	MaxDepth int
	// Circular is the cycle policy.
	Circular CircularPolicy
	// AllowMetaPatches stamps $$ref, the absolute resolved URI, onto merged objects.
	AllowMetaPatches bool
	// ParameterMacro, when set, computes the default of every operation parameter.
	ParameterMacro ParameterMacroFunc
	// ModelPropertyMacro, when set, computes the default of every schema property.
	ModelPropertyMacro ModelPropertyMacroFunc
	// ResolveExternalValues inlines the content behind Example externalValue fields as value.
	ResolveExternalValues bool
	// DisableAllOfMerge keeps allOf keywords instead of merging their members.
	DisableAllOfMerge bool
	// Plugins are run over the dereferenced document by the patch pipeline.
	Plugins []patch.Plugin

	// Cache, when set, is used instead of a per call cache, so documents are retrieved once
	// across calls.
	Cache *retrieval.Cache
	// Resolvers replace the default file and HTTP resolvers of a per call cache.
	Resolvers []retrieval.Resolver
	// Parsers replace the default parser registry of a per call cache.
	Parsers *retrieval.ParserRegistry
	// VirtualFS is the file system of the default file resolver.
	VirtualFS system.VirtualFS
	// HTTPClient is the client of the default HTTP resolver.
	HTTPClient system.Client
	// MetricsRegisterer receives the metrics of a per call cache.
	MetricsRegisterer prometheus.Registerer

	// Logger defaults to system.NopLogger.
	Logger system.Logger
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) cache() (*retrieval.Cache, error) {
	if o.Cache != nil {
		return o.Cache, nil
	}
	return retrieval.NewCache(retrieval.Options{
		Resolvers:         o.Resolvers,
		Parsers:           o.Parsers,
		VirtualFS:         o.VirtualFS,
		HTTPClient:        o.HTTPClient,
		Logger:            o.Logger,
		MetricsRegisterer: o.MetricsRegisterer,
	})
}
