package deref

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speakeasy-api/openapi-deref/deref"
	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/speakeasy-api/openapi-deref/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petSchema = `type: object
properties:
  name:
    type: string
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestDeref_Select_Success(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"api.yaml": `openapi: 3.1.0
info:
  title: Pets
  version: "1"
paths: {}
components:
  schemas:
    Pet:
      $ref: models/pet.yaml
`,
		"models/pet.yaml": petSchema,
	})

	stdout, stderr, err := execute(t, "", filepath.Join(dir, "api.yaml"), "--format", "json", "--select", "$.components.schemas.Pet")
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string"}}}`, stdout)
	assert.Contains(t, stderr, "Dereferenced openapi 3.1 document - 0 errors")
}

func TestDeref_WritesOutputFile(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"api.yaml": `swagger: "2.0"
info:
  title: Pets
  version: "1"
paths: {}
definitions:
  Pet:
    $ref: pet.yaml
  Pets:
    type: array
    items:
      $ref: "#/definitions/Pet"
`,
		"pet.yaml": petSchema,
	})
	out := filepath.Join(dir, "out", "api.json")

	_, stderr, err := execute(t, "", filepath.Join(dir, "api.yaml"), out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Document written to: "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"), "output format should be inferred from the .json extension")

	doc, err := node.Parse(data)
	require.NoError(t, err)
	defs, ok := doc.Get("definitions")
	require.True(t, ok)
	pets, ok := defs.Get("Pets")
	require.True(t, ok)
	items, ok := pets.Get("items")
	require.True(t, ok)
	typ, ok := items.StringField("type")
	require.True(t, ok)
	assert.Equal(t, "object", typ)
}

func TestDeref_Stdin_Success(t *testing.T) {
	t.Parallel()

	input := `{"swagger":"2.0","paths":{},"definitions":{"A":{"type":"string"},"B":{"$ref":"#/definitions/A"}}}`

	stdout, stderr, err := execute(t, input, "-", "--format", "json")
	require.NoError(t, err)

	assert.JSONEq(t, `{"swagger":"2.0","paths":{},"definitions":{"A":{"type":"string"},"B":{"type":"string"}}}`, stdout)
	assert.Contains(t, stderr, "Processing document from stdin")
}

func TestDeref_UnresolvedReferences(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"api.yaml": `openapi: 3.0.3
info:
  title: Pets
  version: "1"
paths: {}
components:
  schemas:
    Pet:
      $ref: missing.yaml
`,
	})
	input := filepath.Join(dir, "api.yaml")

	t.Run("reported without strict", func(t *testing.T) {
		t.Parallel()
		stdout, stderr, err := execute(t, "", input)
		require.NoError(t, err)
		assert.Contains(t, stdout, "$ref: missing.yaml", "unresolved reference should be left as written")
		assert.Contains(t, stderr, "1 errors")
		assert.Contains(t, stderr, "1. ")
		assert.Contains(t, stderr, "/components/schemas/Pet")
	})

	t.Run("fails with strict", func(t *testing.T) {
		t.Parallel()
		_, _, err := execute(t, "", input, "--strict")
		require.Error(t, err)
		assert.Equal(t, "1 references could not be resolved", err.Error())
	})
}

func TestDeref_InvalidFlags(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"api.yaml": "openapi: 3.1.0\n"})
	input := filepath.Join(dir, "api.yaml")

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "circular policy", args: []string{input, "--circular", "sometimes"}, expected: `unknown circular policy "sometimes"`},
		{name: "jsonpath mode", args: []string{input, "--jsonpath-mode", "xpath"}, expected: `unknown jsonpath mode "xpath"`},
		{name: "format", args: []string{input, "--format", "toml"}, expected: `unknown output format "toml"`},
		{name: "max depth", args: []string{input, "--max-depth", "-1"}, expected: "--max-depth must not be negative"},
		{name: "too many args", args: []string{input, "out.yaml", "extra"}, expected: "accepts at most 2 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestDerefFlags_Options(t *testing.T) {
	t.Parallel()

	flags := &derefFlags{
		baseDoc:        "https://example.com/api.yaml",
		noExternal:     true,
		maxDepth:       7,
		circular:       "ignore",
		metaPatches:    true,
		externalValues: true,
		noAllOf:        true,
	}
	logger := system.NopLogger{}

	opts, err := flags.options(logger, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api.yaml", opts.BaseDoc)
	assert.True(t, opts.DisableExternalRefs)
	assert.Equal(t, 7, opts.MaxDepth)
	assert.Equal(t, deref.CircularIgnore, opts.Circular)
	assert.True(t, opts.AllowMetaPatches)
	assert.True(t, opts.ResolveExternalValues)
	assert.True(t, opts.DisableAllOfMerge)
	assert.Equal(t, logger, opts.Logger)
}

func TestNewProcessor_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		output   string
		format   string
		expected string
	}{
		{name: "explicit json", input: "api.yaml", format: "json", expected: FormatJSON},
		{name: "explicit yml", input: "api.json", format: "YML", expected: FormatYAML},
		{name: "from output extension", input: "api.yaml", output: "out.json", expected: FormatJSON},
		{name: "from input extension", input: "api.json", expected: FormatJSON},
		{name: "output wins over input", input: "api.json", output: "out.yaml", expected: FormatYAML},
		{name: "stdin defaults to yaml", input: "-", expected: FormatYAML},
		{name: "unknown extension defaults to yaml", input: "api.txt", expected: FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewProcessor(tt.input, tt.output, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Format)
		})
	}
}

func TestNewProcessor_StdinDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		output        string
		fromStdin     bool
		writeToStdout bool
	}{
		{name: "dash input", input: "-", fromStdin: true, writeToStdout: true},
		{name: "dash input with output file", input: "-", output: "out.yaml", fromStdin: true},
		{name: "file input", input: "api.yaml", writeToStdout: true},
		{name: "file input with dash output", input: "api.yaml", output: "-", writeToStdout: true},
		{name: "file input with output file", input: "api.yaml", output: "out.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewProcessor(tt.input, tt.output, "")
			require.NoError(t, err)
			assert.Equal(t, tt.fromStdin, p.ReadFromStdin)
			assert.Equal(t, tt.writeToStdout, p.WriteToStdout)
		})
	}
}

func TestFormatResolutionErrors(t *testing.T) {
	t.Parallel()

	res, err := deref.Dereference(t.Context(), mustParse(t, `{"a":{"$ref":"#/missing"},"b":{"$ref":"#/gone"}}`), deref.Options{BaseDoc: "api.json"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)

	out := formatResolutionErrors(res.Errors)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "1. "))
	assert.Equal(t, "   in api.json", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2. "))
}

func TestFormatResolutionErrors_AlignsWideIndexes(t *testing.T) {
	t.Parallel()

	errs := make([]*errors.ResolutionError, 10)
	for i := range errs {
		errs[i] = &errors.ResolutionError{Kind: errors.ErrEvaluation, Message: "missing", BaseDoc: "api.yaml"}
	}

	lines := strings.Split(strings.TrimSuffix(formatResolutionErrors(errs), "\n"), "\n")
	require.Len(t, lines, 20)
	assert.True(t, strings.HasPrefix(lines[0], " 1. "))
	assert.Equal(t, "    in api.yaml", lines[1])
	assert.True(t, strings.HasPrefix(lines[18], "10. "))
	assert.Equal(t, "    in api.yaml", lines[19])
	assert.Equal(t, strings.Index(lines[18], "evaluation"), strings.Index(lines[19], "in"))
}

func mustParse(t *testing.T, s string) *node.Node {
	t.Helper()
	n, err := node.Parse([]byte(s))
	require.NoError(t, err)
	return n
}
