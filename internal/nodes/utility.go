package nodes

import (
	"context"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
)

// DelayNode is the Utility category exemplar: it sleeps for
// duration_ms, honoring ctx cancellation, then passes its input through
// unchanged.
type DelayNode struct{}

func NewDelayNode() *DelayNode { return &DelayNode{} }

func (n *DelayNode) Definition() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:          "delay",
		Name:        "Delay",
		Version:     "1.0.0",
		Description: "Sleeps for a fixed duration, then passes its input through",
		Category:    domain.CategoryUtility,
		Inputs: []domain.PortSpec{
			{Name: "data", DataType: domain.DataTypeAny, Required: false},
		},
		Outputs: []domain.PortSpec{
			{Name: "out", DataType: domain.DataTypeAny, Required: true},
		},
		Parameters: []domain.ParameterSpec{
			{Name: "duration_ms", Type: domain.ParamNumber, Required: true},
		},
		SupportsRetry:   false,
		IsDeterministic: true,
	}
}

func (n *DelayNode) Validate(context.Context, *domain.ExecutionContext) error { return nil }

func (n *DelayNode) Execute(ctx context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError) {
	ms, _ := ec.Input["duration_ms"].(float64)
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ec.Input["data"], nil
	case <-ctx.Done():
		return nil, nil
	}
}

func (n *DelayNode) SupportsRetry() bool   { return false }
func (n *DelayNode) IsDeterministic() bool { return true }
