package nodes

import (
	"context"
	"testing"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchNodeMatchedTrue(t *testing.T) {
	n := NewBranchNode()
	ec := &domain.ExecutionContext{Input: map[string]any{
		"expression": "data.score > 10",
		"data":       map[string]any{"score": 20},
	}}
	require.NoError(t, n.Validate(context.Background(), ec))
	out, execErr := n.Execute(context.Background(), ec)
	assert.Nil(t, execErr)
	assert.Equal(t, map[string]any{"matched": true}, out)
}

func TestBranchNodeMatchedFalse(t *testing.T) {
	n := NewBranchNode()
	ec := &domain.ExecutionContext{Input: map[string]any{
		"expression": "data.score > 10",
		"data":       map[string]any{"score": 1},
	}}
	out, execErr := n.Execute(context.Background(), ec)
	assert.Nil(t, execErr)
	assert.Equal(t, map[string]any{"matched": false}, out)
}

func TestBranchNodeValidateRejectsBadExpression(t *testing.T) {
	n := NewBranchNode()
	ec := &domain.ExecutionContext{Input: map[string]any{"expression": "not valid &&& syntax"}}
	assert.Error(t, n.Validate(context.Background(), ec))
}

func TestBranchNodeExecuteErrorsOnRuntimeFailure(t *testing.T) {
	n := NewBranchNode()
	ec := &domain.ExecutionContext{Input: map[string]any{
		"expression": "data.missing.deeper", // nil pointer-ish access at runtime
		"data":       map[string]any{},
	}}
	_, execErr := n.Execute(context.Background(), ec)
	require.NotNil(t, execErr)
	assert.Equal(t, domain.ErrUser, execErr.Kind)
	assert.False(t, execErr.Retryable)
}
