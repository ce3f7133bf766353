// AI category exemplar, grounded on sashabaranov/go-openai — a dependency
// the teacher's own go.mod already carried for an AI-assist feature
// unrelated to workflow execution, adopted here so the flow engine's
// domain stack exercises it too.
package nodes

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flowcore/flowcore/internal/domain"
)

// ChatCompletionNode sends a prompt to an OpenAI-compatible chat
// completion endpoint and returns the first choice's message content.
type ChatCompletionNode struct {
	client *openai.Client
}

func NewChatCompletionNode(apiKey string) *ChatCompletionNode {
	return &ChatCompletionNode{client: openai.NewClient(apiKey)}
}

func (n *ChatCompletionNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "chat_completion",
		Name:        "Chat Completion",
		Version:     "1.0.0",
		Description: "Sends a prompt to a chat completion model and returns its reply",
		Category:    domain.CategoryAI,
		Inputs: []domain.PortSpec{
			{Name: "prompt", DataType: domain.DataTypeString, Required: true},
		},
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeObject, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "model", Type: domain.ParamString, Required: false, Default: openai.GPT4oMini},
			{Name: "system_prompt", Type: domain.ParamString, Required: false},
		},
		SupportsRetry:   true,
		IsDeterministic: false,
	}
}

func (n *ChatCompletionNode) Validate(_ context.Context, ec *domain.ExecutionContext) error {
	prompt, _ := ec.Input["prompt"].(string)
	if prompt == "" {
		return errEmptyPrompt
	}
	return nil
}

var errEmptyPrompt = domain.NewExecutionError(domain.ErrValidation, "prompt must not be empty").WithRetryable(false)

func (n *ChatCompletionNode) Execute(ctx context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	prompt := ec.Input["prompt"].(string)
	model, _ := ec.Input["model"].(string)
	if model == "" {
		model = openai.GPT4oMini
	}

	messages := []openai.ChatCompletionMessage{}
	if sys, ok := ec.Input["system_prompt"].(string); ok && sys != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrNetwork, err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewExecutionError(domain.ErrInternal, "model returned no choices").WithRetryable(false)
	}
	return map[string]any{
		"content": resp.Choices[0].Message.Content,
		"model":   resp.Model,
	}, nil
}

func (n *ChatCompletionNode) SupportsRetry() bool   { return true }
func (n *ChatCompletionNode) IsDeterministic() bool { return false }
