package executor

import (
	"strings"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/template"
)

// runSource adapts one in-flight FlowExecution's node-result map, flow
// variables, secrets, and initial input into a template.Source, per §4.3
// input resolution steps 2-3. It also tracks which upstream node ids were
// excluded because their connecting edge's condition evaluated false, so
// callers can treat that reference as missing (step 5).
type runSource struct {
	nodeOutputs map[string]any
	excluded    map[string]bool
	variables   map[string]any
	secrets     map[string]string
	input       any
}

func (s *runSource) NodeOutput(nodeID string) (any, bool) {
	if s.excluded[nodeID] {
		return nil, false
	}
	v, ok := s.nodeOutputs[nodeID]
	return v, ok
}

func (s *runSource) Variable(key string) (any, bool) {
	v, ok := s.variables[key]
	return v, ok
}

func (s *runSource) Secret(key string) (string, bool) {
	v, ok := s.secrets[key]
	return v, ok
}

func (s *runSource) Input() any { return s.input }

var _ template.Source = (*runSource)(nil)

// resolveParameters performs §4.3 input resolution for a single node's
// declared parameters object, returning the final input object or a
// Validation error naming the first missing required parameter.
func resolveParameters(node domain.FlowNode, def domain.NodeDefinition, src *runSource) (map[string]any, *domain.ExecutionError) {
	resolved := make(map[string]any, len(node.Parameters))
	for name, raw := range node.Parameters {
		s, isString := raw.(string)
		if !isString || !strings.Contains(s, "{{") {
			resolved[name] = raw
			continue
		}
		tmpl, err := template.Compile(s)
		if err != nil {
			return nil, domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false)
		}
		v, err := tmpl.Resolve(src)
		if err != nil {
			return nil, domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false)
		}
		resolved[name] = v
	}

	for _, p := range def.Parameters {
		if !p.Required {
			continue
		}
		v, present := resolved[p.Name]
		if present && v != nil {
			continue
		}
		if p.Default != nil {
			resolved[p.Name] = p.Default
			continue
		}
		return nil, domain.NewExecutionError(domain.ErrValidation, "missing_input:"+p.Name).
			WithRetryable(false).WithDetail("parameter", p.Name)
	}
	return resolved, nil
}
