package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	nodes     map[string]any
	variables map[string]any
	secrets   map[string]string
	input     any
}

func (f fakeSource) NodeOutput(id string) (any, bool) { v, ok := f.nodes[id]; return v, ok }
func (f fakeSource) Variable(key string) (any, bool)  { v, ok := f.variables[key]; return v, ok }
func (f fakeSource) Secret(key string) (string, bool) { v, ok := f.secrets[key]; return v, ok }
func (f fakeSource) Input() any                       { return f.input }

func TestIsTemplated(t *testing.T) {
	assert.True(t, IsTemplated("{{ $input }}"))
	assert.False(t, IsTemplated("plain string"))
	assert.False(t, IsTemplated(`\{{ not a ref }}`))
}

func TestCompileSingleRefResolvesNativeType(t *testing.T) {
	tmpl, err := Compile("{{ $nodes.fetch.count }}")
	require.NoError(t, err)

	src := fakeSource{nodes: map[string]any{"fetch": map[string]any{"count": 42}}}
	v, err := tmpl.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCompileMixedTemplateStringifiesAndConcatenates(t *testing.T) {
	tmpl, err := Compile("count={{ $nodes.fetch.count }}!")
	require.NoError(t, err)

	src := fakeSource{nodes: map[string]any{"fetch": map[string]any{"count": 42}}}
	v, err := tmpl.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, "count=42!", v)
}

func TestCompileEscapedBraces(t *testing.T) {
	tmpl, err := Compile(`literal \{{ text }}`)
	require.NoError(t, err)
	v, err := tmpl.Resolve(fakeSource{})
	require.NoError(t, err)
	assert.Equal(t, "literal {{ text }}", v)
}

func TestCompileUnterminatedReferenceErrors(t *testing.T) {
	_, err := Compile("{{ $input")
	assert.Error(t, err)
}

func TestParseRefVariants(t *testing.T) {
	cases := []struct {
		raw  string
		kind RefKind
	}{
		{"{{ $nodes.a.b }}", RefNode},
		{"{{ $flow.vars.x }}", RefFlowVar},
		{"{{ $flow.secrets.api_key }}", RefFlowSecret},
		{"{{ $input.payload }}", RefInput},
	}
	for _, c := range cases {
		tmpl, err := Compile(c.raw)
		require.NoError(t, err, c.raw)
		require.Len(t, tmpl.segments, 1)
		require.NotNil(t, tmpl.segments[0].ref)
		assert.Equal(t, c.kind, tmpl.segments[0].ref.Kind, c.raw)
	}
}

func TestParseRefRejectsUnknownRoot(t *testing.T) {
	_, err := Compile("{{ $bogus.x }}")
	assert.Error(t, err)
}

func TestResolveFlowVarAndSecret(t *testing.T) {
	src := fakeSource{
		variables: map[string]any{"threshold": 10},
		secrets:   map[string]string{"api_key": "sekret"},
	}
	vTmpl, err := Compile("{{ $flow.vars.threshold }}")
	require.NoError(t, err)
	v, err := vTmpl.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	sTmpl, err := Compile("{{ $flow.secrets.api_key }}")
	require.NoError(t, err)
	s, err := sTmpl.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, "sekret", s)
}

func TestResolveInputWholeAndPath(t *testing.T) {
	src := fakeSource{input: map[string]any{"payload": map[string]any{"id": 7}}}

	whole, err := Compile("{{ $input }}")
	require.NoError(t, err)
	v, err := whole.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, src.input, v)

	path, err := Compile("{{ $input.payload.id }}")
	require.NoError(t, err)
	v2, err := path.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, 7, v2)
}

func TestResolveMissingNodeOutputYieldsNil(t *testing.T) {
	tmpl, err := Compile("{{ $nodes.missing.x }}")
	require.NoError(t, err)
	v, err := tmpl.Resolve(fakeSource{nodes: map[string]any{}})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestProjectPathWithIndex(t *testing.T) {
	src := fakeSource{nodes: map[string]any{
		"list": map[string]any{"items": []any{map[string]any{"name": "first"}, map[string]any{"name": "second"}}},
	}}
	tmpl, err := Compile("{{ $nodes.list.items[1].name }}")
	require.NoError(t, err)
	v, err := tmpl.Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestPlainLiteralRoundTrip(t *testing.T) {
	tmpl, err := Compile("just a plain string")
	require.NoError(t, err)
	v, err := tmpl.Resolve(fakeSource{})
	require.NoError(t, err)
	assert.Equal(t, "just a plain string", v)
}
