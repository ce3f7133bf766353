package nodes

import (
	"context"

	"github.com/flowcore/flowcore/internal/domain"
)

// StaticDataNode is the Data category exemplar: it emits a fixed "value"
// parameter verbatim as its output, useful as a source node supplying
// constants into downstream parameter references.
type StaticDataNode struct{}

func NewStaticDataNode() *StaticDataNode { return &StaticDataNode{} }

func (n *StaticDataNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "static_data",
		Name:        "Static Data",
		Version:     "1.0.0",
		Description: "Emits a fixed value as its output",
		Category:    domain.CategoryData,
		Inputs:      nil,
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeAny, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "value", Type: domain.ParamObject, Required: true},
		},
		SupportsRetry:   false,
		IsDeterministic: true,
	}
}

func (n *StaticDataNode) Validate(context.Context, *domain.ExecutionContext) error { return nil }

func (n *StaticDataNode) Execute(_ context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	return ec.Input["value"], nil
}

func (n *StaticDataNode) SupportsRetry() bool   { return false }
func (n *StaticDataNode) IsDeterministic() bool { return true }
