package nodes

import (
	"context"

	"github.com/flowcore/flowcore/internal/domain"
)

// EntryPointNode is the Trigger category exemplar. Flows typically start
// execution at an ordinary source node, but a flow author may also plant
// an explicit entry node to document what a manual/webhook/cron trigger
// is expected to deliver. Its "value" parameter is conventionally wired to
// the literal template `{{ $input }}` so it passes the flow's input_data
// through unchanged.
type EntryPointNode struct{}

func NewEntryPointNode() *EntryPointNode { return &EntryPointNode{} }

func (n *EntryPointNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "entry_point",
		Name:        "Entry Point",
		Version:     "1.0.0",
		Description: "Documents and passes through the flow's trigger input",
		Category:    domain.CategoryTrigger,
		Inputs:      nil,
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeAny, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "value", Type: domain.ParamObject, Required: false},
		},
		SupportsRetry:   false,
		IsDeterministic: true,
	}
}

func (n *EntryPointNode) Validate(context.Context, *domain.ExecutionContext) error { return nil }

func (n *EntryPointNode) Execute(_ context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	return ec.Input["value"], nil
}

func (n *EntryPointNode) SupportsRetry() bool   { return false }
func (n *EntryPointNode) IsDeterministic() bool { return true }
