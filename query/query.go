// Package query selects parts of a dereferenced document with JSONPath expressions.
package query

import (
	"fmt"

	"github.com/speakeasy-api/jsonpath/pkg/jsonpath"
	"github.com/speakeasy-api/jsonpath/pkg/jsonpath/config"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// Mode picks the JSONPath implementation.
type Mode string

const (
	// ModeAuto uses RFC 9535 and falls back to the legacy implementation, with a warning, for
	// expressions RFC 9535 rejects.
	ModeAuto Mode = ""
	// ModeRFC9535 only accepts RFC 9535 expressions.
	ModeRFC9535 Mode = "rfc9535"
	// ModeLegacy uses the yaml-jsonpath implementation.
	ModeLegacy Mode = "legacy"
)

// ParseMode parses the name of a mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeRFC9535, ModeLegacy:
		return Mode(s), nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeAuto, fmt.Errorf("unknown jsonpath mode %q, expected auto, rfc9535 or legacy", s)
	}
}

// Queryable is an interface for querying YAML nodes using JSONPath expressions.
type Queryable interface {
	Query(root *yaml.Node) []*yaml.Node
}

type yamlPathQueryable struct {
	path *yamlpath.Path
}

func (y yamlPathQueryable) Query(root *yaml.Node) []*yaml.Node {
	if y.path == nil {
		return []*yaml.Node{}
	}
	// errors aren't actually possible from yamlpath.
	result, _ := y.path.Find(root)
	return result
}

type rfcJSONPathQueryable struct {
	path *jsonpath.JSONPath
}

func (r rfcJSONPathQueryable) Query(root *yaml.Node) []*yaml.Node {
	return r.path.Query(root)
}

// NewPath compiles expr. In ModeAuto an expression RFC 9535 rejects is compiled with the legacy
// implementation and a warning is appended to warnings.
func NewPath(expr string, mode Mode, warnings *[]string) (Queryable, error) {
	if mode == ModeLegacy {
		path, err := yamlpath.NewPath(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid jsonpath %s: %w", expr, err)
		}
		return yamlPathQueryable{path: path}, nil
	}

	rfcJSONPath, rfcJSONPathErr := jsonpath.NewPath(expr, config.WithPropertyNameExtension())
	if rfcJSONPathErr == nil {
		return rfcJSONPathQueryable{path: rfcJSONPath}, nil
	}
	if mode == ModeRFC9535 {
		return nil, fmt.Errorf("invalid rfc9535 jsonpath %s: %w", expr, rfcJSONPathErr)
	}

	path, err := yamlpath.NewPath(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %s: %w", expr, rfcJSONPathErr)
	}
	if warnings != nil {
		*warnings = append(*warnings, fmt.Sprintf("invalid rfc9535 jsonpath %s: %s, evaluated with the legacy implementation", expr, rfcJSONPathErr.Error()))
	}
	return yamlPathQueryable{path: path}, nil
}

// Select evaluates expr against doc and returns copies of the matched values in match order,
// along with any warnings raised while compiling expr.
func Select(doc *node.Node, expr string, mode Mode) ([]*node.Node, []string, error) {
	var warnings []string
	q, err := NewPath(expr, mode, &warnings)
	if err != nil {
		return nil, warnings, err
	}

	root := node.ToYAML(doc)
	matches := q.Query(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}})

	out := make([]*node.Node, 0, len(matches))
	for _, m := range matches {
		n, err := node.FromYAML(m)
		if err != nil {
			return nil, warnings, fmt.Errorf("failed to convert match of %s: %w", expr, err)
		}
		out = append(out, n)
	}
	return out, warnings, nil
}
