package nodes

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/flowcore/flowcore/internal/domain"
)

// BranchNode is the ControlFlow category exemplar. It evaluates an
// expr-lang expression (the same language conditional edges use) against
// its input and returns {matched: bool}; downstream edges use that output
// in their own condition to pick a path, so this node itself never needs
// to know about the graph shape.
type BranchNode struct{}

func NewBranchNode() *BranchNode { return &BranchNode{} }

func (n *BranchNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "branch",
		Name:        "Branch",
		Version:     "1.0.0",
		Description: "Evaluates a boolean expression against its input",
		Category:    domain.CategoryControlFlow,
		Inputs: []domain.PortSpec{
			{Name: "data", DataType: domain.DataTypeAny, Required: false},
		},
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeObject, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "expression", Type: domain.ParamCode, Required: true},
		},
		SupportsRetry:   false,
		IsDeterministic: true,
	}
}

func (n *BranchNode) Validate(_ context.Context, ec *domain.ExecutionContext) error {
	expression, _ := ec.Input["expression"].(string)
	_, err := expr.Compile(expression, expr.Env(map[string]any{"data": nil}))
	return err
}

func (n *BranchNode) Execute(_ context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	expression := ec.Input["expression"].(string)
	program, err := expr.Compile(expression, expr.Env(map[string]any{"data": nil}))
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false)
	}
	result, err := expr.Run(program, map[string]any{"data": ec.Input["data"]})
	if err != nil {
		return nil, domain.NewExecutionError(domain.ErrUser, err.Error()).WithRetryable(false)
	}
	matched, _ := result.(bool)
	return map[string]any{"matched": matched}, nil
}

func (n *BranchNode) SupportsRetry() bool   { return false }
func (n *BranchNode) IsDeterministic() bool { return true }
