package nodes

import (
	"context"
	"fmt"

	"github.com/flowcore/flowcore/internal/domain"
)

// FieldMapNode is the Transform category exemplar: it projects a subset of
// its input object into a renamed output object, declared by a "mapping"
// parameter of {outputKey: inputKey}.
type FieldMapNode struct{}

func NewFieldMapNode() *FieldMapNode { return &FieldMapNode{} }

func (n *FieldMapNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "field_map",
		Name:        "Field Map",
		Version:     "1.0.0",
		Description: "Projects and renames fields from its input into a new object",
		Category:    domain.CategoryTransform,
		Inputs: []domain.PortSpec{
			{Name: "data", DataType: domain.DataTypeObject, Required: true},
		},
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeObject, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "mapping", Type: domain.ParamObject, Required: true},
		},
		SupportsRetry:   false,
		IsDeterministic: true,
	}
}

func (n *FieldMapNode) Validate(_ context.Context, ec *domain.ExecutionContext) error {
	if _, ok := ec.Input["mapping"].(map[string]any); !ok {
		return fmt.Errorf("mapping must be an object")
	}
	return nil
}

func (n *FieldMapNode) Execute(_ context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	mapping := ec.Input["mapping"].(map[string]any)
	data, _ := ec.Input["data"].(map[string]any)

	out := make(map[string]any, len(mapping))
	for outKey, rawSrc := range mapping {
		srcKey, ok := rawSrc.(string)
		if !ok {
			continue
		}
		if v, ok := data[srcKey]; ok {
			out[outKey] = v
		}
	}
	return out, nil
}

func (n *FieldMapNode) SupportsRetry() bool   { return false }
func (n *FieldMapNode) IsDeterministic() bool { return true }
