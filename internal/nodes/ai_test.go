package nodes

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestChatCompletionNodeValidateRejectsEmptyPrompt(t *testing.T) {
	n := NewChatCompletionNode("test-key")
	ec := &domain.ExecutionContext{Input: map[string]any{}}
	err := n.Validate(context.Background(), ec)
	assert.Same(t, errEmptyPrompt, err)
}

func TestChatCompletionNodeValidateAcceptsPrompt(t *testing.T) {
	n := NewChatCompletionNode("test-key")
	ec := &domain.ExecutionContext{Input: map[string]any{"prompt": "hello"}}
	assert.NoError(t, n.Validate(context.Background(), ec))
}

func TestChatCompletionNodeDefinitionDefaults(t *testing.T) {
	n := NewChatCompletionNode("test-key")
	def := n.Definition()
	assert.Equal(t, domain.CategoryAI, def.Category)
	model, ok := def.Param("model")
	assert.True(t, ok)
	assert.Equal(t, openai.GPT4oMini, model.Default)
	assert.True(t, n.SupportsRetry())
	assert.False(t, n.IsDeterministic())
}
