// Package registry implements the node contract and the process-wide,
// concurrent node-type registry described in spec §4.1. It is grounded on
// the teacher's own small reader-biased registry (sync.RWMutex guarding a
// plain map), generalized from an id-keyed instance registry into a
// type-name-keyed implementation registry.
package registry

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/flowcore/flowcore/internal/domain"
)

// Node is the uniform contract every node implementation honors.
// Definition must be pure, cheap, and stable for the process lifetime.
// Validate may only inspect ctx.Input and must not perform I/O. Execute may
// perform I/O, may suspend, and must respect ctx.Done().
type Node interface {
	Definition() domain.NodeDefinition
	Validate(ctx context.Context, ec *domain.ExecutionContext) error
	Execute(ctx context.Context, ec *domain.ExecutionContext) (any, *domain.ExecutionError)
	SupportsRetry() bool
	IsDeterministic() bool
}

// Registry maps a node_type string to its implementation. Once populated at
// startup it is read-heavy; late registration is supported but takes the
// exclusive write lock, matching §5's "Shared resources" note.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

func New() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register is idempotent when the same node_type is registered twice with
// an identical NodeDefinition (by deep equality); otherwise it fails with a
// Validation error per §4.1.
func (r *Registry) Register(nodeType string, impl Node) error {
	if nodeType == "" {
		return domain.NewExecutionError(domain.ErrValidation, "node_type cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.nodes[nodeType]; ok {
		if reflect.DeepEqual(existing.Definition(), impl.Definition()) {
			return nil
		}
		return domain.NewExecutionError(domain.ErrValidation, fmt.Sprintf("duplicate node type: %s", nodeType))
	}
	r.nodes[nodeType] = impl
	return nil
}

// Get returns the implementation registered for nodeType, if any.
func (r *Registry) Get(nodeType string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[nodeType]
	return n, ok
}

// Definitions returns every registered node's static definition, for
// discovery APIs.
func (r *Registry) Definitions() []domain.NodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NodeDefinition, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Definition())
	}
	return out
}

// Validates reports whether nodeType resolves in the registry.
func (r *Registry) Validates(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[nodeType]
	return ok
}
