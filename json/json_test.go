package json_test

import (
	"bytes"
	"testing"

	"github.com/speakeasy-api/openapi-deref/json"
	"github.com/speakeasy-api/openapi-deref/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestYAMLToJSON_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		yamlInput    string
		expectedJSON string
		indentation  int
	}{
		{
			name:         "scalar string",
			yamlInput:    `hello world`,
			expectedJSON: "\"hello world\"\n",
			indentation:  2,
		},
		{
			name:         "scalar number",
			yamlInput:    `42`,
			expectedJSON: "42\n",
			indentation:  2,
		},
		{
			name: "keys keep their order",
			yamlInput: `zebra: last
apple: first
nested:
  b: 2
  a: 1`,
			expectedJSON: `{
  "zebra": "last",
  "apple": "first",
  "nested": {
    "b": 2,
    "a": 1
  }
}
`,
			indentation: 2,
		},
		{
			name:         "compact",
			yamlInput:    "name: John\ntags: [a, b]",
			expectedJSON: "{\"name\":\"John\",\"tags\":[\"a\",\"b\"]}\n",
			indentation:  0,
		},
		{
			name:         "numeric keys converted to strings",
			yamlInput:    "200: ok\n404: missing",
			expectedJSON: "{\"200\":\"ok\",\"404\":\"missing\"}\n",
		},
		{
			name:         "aliases expanded",
			yamlInput:    "base: &b {x: 1}\ncopy: *b",
			expectedJSON: "{\"base\":{\"x\":1},\"copy\":{\"x\":1}}\n",
		},
		{
			name:         "html is not escaped",
			yamlInput:    "pattern: <a&b>",
			expectedJSON: "{\"pattern\":\"<a&b>\"}\n",
		},
		{
			name:         "html is not escaped in nested keys and values",
			yamlInput:    "a:\n  b: x<y\n  k&: ['<p>']",
			indentation:  2,
			expectedJSON: "{\n  \"a\": {\n    \"b\": \"x<y\",\n    \"k&\": [\n      \"<p>\"\n    ]\n  }\n}\n",
		},
		{
			name:         "empty object",
			yamlInput:    `{}`,
			expectedJSON: "{}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var y yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(tt.yamlInput), &y))

			var buffer bytes.Buffer
			err := json.YAMLToJSON(&y, tt.indentation, &buffer)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedJSON, buffer.String())
		})
	}
}

func TestYAMLToJSON_NilNode(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	err := json.YAMLToJSON(nil, 2, &buffer)
	require.Error(t, err)
	assert.Empty(t, buffer.String())
}

func TestMarshal_ReferenceMarkers(t *testing.T) {
	t.Parallel()

	doc := node.NewObject()
	doc.Set("name", node.NewString("pet"))
	doc.Set("next", node.NewReference("#/components/schemas/Pet"))
	doc.Set("self", doc)

	var buffer bytes.Buffer
	require.NoError(t, json.Marshal(doc, 0, &buffer))
	assert.Equal(t, "{\"name\":\"pet\",\"next\":{\"$ref\":\"#/components/schemas/Pet\"},\"self\":{\"$ref\":\"#\"}}\n", buffer.String())
}
