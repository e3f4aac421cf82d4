package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolveAliasesUnresolved(t *testing.T) {
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`
inputs:
- keys
- paths`), &node))
	*node.Content[0].Content[1].Content[1] = yaml.Node{Kind: yaml.AliasNode}

	assert.EqualError(t, resolveAliases(&node), "unresolved alias node")
}

func TestResolveAliases(t *testing.T) {
	table := []struct {
		name      string
		yaml      string
		yamlErr   bool
		anchorErr bool
	}{
		{
			name: "no anchors",
			yaml: `
keys: x
paths: y
`,
		},
		{
			name: "scalar anchor",
			yaml: `
keys: &k x
restore-keys: *k
`,
		},
		{
			name: "mapping anchor",
			yaml: `
keys: &flag
  required: true
paths: *flag
`,
		},
		{
			name: "forward reference",
			yaml: `
keys: &a
  ref: *b
paths: &b
  ref: *a
`,
			yamlErr: true,
		},
		{
			name: "self reference",
			yaml: `
keys: &a
  ref: *a
`,
			anchorErr: true,
		},
		{
			name: "anchor reused inside another anchor",
			yaml: `
keys: &b x
paths: &a
   ref: *b
restore-keys: *a
`,
		},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			var node yaml.Node
			err := yaml.Unmarshal([]byte(tt.yaml), &node)
			if tt.yamlErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			err = resolveAliases(&node)
			if tt.anchorErr {
				assert.EqualError(t, err, "circular alias")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReadActionWithAnchors(t *testing.T) {
	action, err := ReadAction(strings.NewReader(`
name: anchors
inputs:
  keys: &required
    description: required list
    required: true
  paths: *required
  lookup-only: &off
    default: 'false'
  fail-on-cache-miss: *off
runs:
  using: docker
  image: Dockerfile
`))
	require.NoError(t, err)

	assert.True(t, action.Inputs["paths"].Required)
	assert.Equal(t, "required list", action.Inputs["paths"].Description)
	assert.Equal(t, map[string]string{
		"lookup-only":        "false",
		"fail-on-cache-miss": "false",
	}, action.InputDefaults())
}

func TestReadActionCircularAlias(t *testing.T) {
	_, err := ReadAction(strings.NewReader(`
name: loop
inputs:
  keys: &a
    description: *a
`))
	assert.EqualError(t, err, "circular alias")
}
