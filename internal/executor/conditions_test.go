package executor

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestConditionEvaluatorBlankExpressionAlwaysTrue(t *testing.T) {
	ce := NewConditionEvaluator()
	ok, err := ce.Evaluate("", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConditionEvaluatorEvaluatesOutput(t *testing.T) {
	ce := NewConditionEvaluator()
	ok, err := ce.Evaluate(`output.status == 200`, map[string]any{"status": 200}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok2, err := ce.Evaluate(`output.status == 200`, map[string]any{"status": 500}, nil)
	require.NoError(t, err)
	assert.False(t, ok2)
}

func TestConditionEvaluatorEvaluatesVars(t *testing.T) {
	ce := NewConditionEvaluator()
	ok, err := ce.Evaluate(`vars.threshold > 10`, nil, map[string]any{"threshold": 20})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConditionEvaluatorCachesProgramByExpressionText(t *testing.T) {
	ce := NewConditionEvaluator()
	_, err := ce.Evaluate(`output.status == 200`, map[string]any{"status": 200}, nil)
	require.NoError(t, err)
	assert.Len(t, ce.cache, 1)

	_, err = ce.Evaluate(`output.status == 200`, map[string]any{"status": 500}, nil)
	require.NoError(t, err)
	assert.Len(t, ce.cache, 1, "re-evaluating the same expression text must reuse the cached program")
}

func TestConditionEvaluatorRejectsNonBooleanResult(t *testing.T) {
	ce := NewConditionEvaluator()
	_, err := ce.Evaluate(`output.status`, map[string]any{"status": 200}, nil)
	assert.Error(t, err)
}

func TestConditionEvaluatorRejectsBadExpression(t *testing.T) {
	ce := NewConditionEvaluator()
	_, err := ce.Evaluate(`this is not valid expr syntax &&&`, nil, nil)
	assert.Error(t, err)
}
