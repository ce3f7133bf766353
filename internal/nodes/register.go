package nodes

import "github.com/flowcore/flowcore/internal/registry"

// RegisterBuiltins installs every exemplar node in this package into reg.
// openAIKey may be empty; the chat_completion node is still registered so
// it appears in catalog discovery, but any flow that actually dispatches
// it will fail at the API layer without a real key.
func RegisterBuiltins(reg *registry.Registry, openAIKey string) error {
	builtins := []struct {
		nodeType string
		impl     registry.Node
	}{
		{"http_request", NewHTTPRequestNode()},
		{"webhook_call", NewWebhookCallNode()},
		{"field_map", NewFieldMapNode()},
		{"branch", NewBranchNode()},
		{"static_data", NewStaticDataNode()},
		{"delay", NewDelayNode()},
		{"entry_point", NewEntryPointNode()},
		{"chat_completion", NewChatCompletionNode(openAIKey)},
	}
	for _, b := range builtins {
		if err := reg.Register(b.nodeType, b.impl); err != nil {
			return err
		}
	}
	return nil
}
