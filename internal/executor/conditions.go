package executor

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionEvaluator compiles and evaluates edge conditions with
// expr-lang/expr, grounded on the teacher's own ConditionEvaluator
// (internal/application/executor/conditions.go). Compiled programs are
// cached by expression text since the same condition is re-evaluated once
// per run of the flow it belongs to, but the flow itself may execute many
// times. The cache is guarded by a mutex, matching the discipline used
// elsewhere for shared state touched by concurrently executing nodes
// (registry.Registry, eventbus.Bus, scheduler.Scheduler) — wave sub-batches
// in engine.go's runBatch evaluate edge conditions concurrently, so a bare
// map here would race.
type ConditionEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{cache: make(map[string]*vm.Program)}
}

// Evaluate runs expression against the source node's output, exposed to
// the expression as the variable "output", plus "vars" for flow variables.
// A blank expression is always true (no condition set).
func (ce *ConditionEvaluator) Evaluate(expression string, output any, vars map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}
	program, err := ce.compiled(expression, output, vars)
	if err != nil {
		return false, err
	}
	result, err := expr.Run(program, map[string]any{"output": output, "vars": vars})
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean", expression)
	}
	return b, nil
}

func (ce *ConditionEvaluator) compiled(expression string, output any, vars map[string]any) (*vm.Program, error) {
	ce.mu.RLock()
	program, ok := ce.cache[expression]
	ce.mu.RUnlock()
	if ok {
		return program, nil
	}

	env := map[string]any{"output": output, "vars": vars}
	p, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", expression, err)
	}

	ce.mu.Lock()
	ce.cache[expression] = p
	ce.mu.Unlock()
	return p, nil
}
