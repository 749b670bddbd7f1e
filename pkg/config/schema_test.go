package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSchemaCompiles(t *testing.T) {
	sch, err := compiledSchema()
	require.NoError(t, err)
	assert.NotNil(t, sch)
	assert.Contains(t, Schema(), `"proxy-config"`)
}

func TestNodeAt(t *testing.T) {
	var root yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("- a: 1\n- b:\n    c: x\n"), &root))
	doc := root.Content[0]

	assert.Equal(t, 1, nodeAt(doc, "").Line)
	assert.Equal(t, 3, nodeAt(doc, "/1/b/c").Line)
	// Unknown keys resolve to the nearest existing ancestor.
	assert.Equal(t, 2, nodeAt(doc, "/1/zzz").Line)
	assert.Equal(t, 1, nodeAt(doc, "/9").Line)
}

func TestJSONValue(t *testing.T) {
	in := map[string]any{
		"n":    1,
		"list": []any{map[any]any{2: "two"}},
	}
	out := jsonValue(in).(map[string]any)

	assert.Equal(t, json.Number("1"), out["n"])
	assert.Equal(t, map[string]any{"2": "two"}, out["list"].([]any)[0])
}
