package executor

import (
	"testing"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParametersLiteralPassthrough(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{"count": 5}}
	def := domain.NodeDefinition{}
	src := &runSource{}
	out, err := resolveParameters(node, def, src)
	require.Nil(t, err)
	assert.Equal(t, 5, out["count"])
}

func TestResolveParametersTemplatedValue(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{"data": "{{ $nodes.fetch.n }}"}}
	def := domain.NodeDefinition{}
	src := &runSource{nodeOutputs: map[string]any{"fetch": map[string]any{"n": 7}}}
	out, err := resolveParameters(node, def, src)
	require.Nil(t, err)
	assert.Equal(t, 7, out["data"])
}

func TestResolveParametersExcludedConditionalEdgeIsMissing(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{"data": "{{ $nodes.fetch.n }}"}}
	def := domain.NodeDefinition{}
	src := &runSource{
		nodeOutputs: map[string]any{"fetch": map[string]any{"n": 7}},
		excluded:    map[string]bool{"fetch": true},
	}
	out, err := resolveParameters(node, def, src)
	require.Nil(t, err)
	assert.Nil(t, out["data"])
}

func TestResolveParametersMissingRequiredUsesDefault(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{}}
	def := domain.NodeDefinition{Parameters: []domain.ParameterSpec{
		{Name: "mode", Required: true, Default: "fast"},
	}}
	out, err := resolveParameters(node, def, &runSource{})
	require.Nil(t, err)
	assert.Equal(t, "fast", out["mode"])
}

func TestResolveParametersMissingRequiredNoDefaultErrors(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{}}
	def := domain.NodeDefinition{Parameters: []domain.ParameterSpec{
		{Name: "mode", Required: true},
	}}
	_, err := resolveParameters(node, def, &runSource{})
	require.NotNil(t, err)
	assert.Equal(t, domain.ErrValidation, err.Kind)
	assert.False(t, err.Retryable)
}

func TestResolveParametersBadTemplateErrors(t *testing.T) {
	node := domain.FlowNode{Parameters: map[string]any{"data": "{{ $bogus.x }}"}}
	_, err := resolveParameters(node, domain.NodeDefinition{}, &runSource{})
	require.NotNil(t, err)
	assert.Equal(t, domain.ErrValidation, err.Kind)
}

func TestRunSourceInputAndVariableSecret(t *testing.T) {
	src := &runSource{
		input:     map[string]any{"k": "v"},
		variables: map[string]any{"x": 1},
		secrets:   map[string]string{"token": "abc"},
	}
	assert.Equal(t, src.input, src.Input())
	v, ok := src.Variable("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	s, ok := src.Secret("token")
	require.True(t, ok)
	assert.Equal(t, "abc", s)
}
