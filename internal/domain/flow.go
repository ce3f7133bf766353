package domain

import (
	"fmt"
	"time"
)

// VariableDef is a declared flow-level parameter: typed, with an optional
// default, supplied at execute time via ExecutionContext.Variables.
type VariableDef struct {
	Name     string        `json:"name"`
	Type     ParameterType `json:"type"`
	Required bool          `json:"required"`
	Default  any           `json:"default,omitempty"`
}

// FlowMetadata is free-form bookkeeping the core stores but never acts on.
type FlowMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    string    `json:"author,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Flow is the immutable-once-deployed DAG definition: §3's Flow. Nodes are
// keyed by node id; edges and triggers are ordered sequences matching the
// order they were added, so diagnostics referencing "the third edge" stay
// stable.
type Flow struct {
	ID          string              `json:"id"`
	Version     string              `json:"version"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	State       FlowState           `json:"state"`
	Nodes       map[string]FlowNode `json:"nodes"`
	Edges       []FlowEdge          `json:"edges"`
	Triggers    []FlowTrigger       `json:"triggers"`
	Parameters  []VariableDef       `json:"parameters"`
	Secrets     []string            `json:"secrets"`
	Metadata    FlowMetadata        `json:"metadata"`
}

// NewFlow creates a draft flow with empty collections.
func NewFlow(id, name, version string) *Flow {
	now := time.Now().UTC()
	return &Flow{
		ID:      id,
		Name:    name,
		Version: version,
		State:   FlowDraft,
		Nodes:   make(map[string]FlowNode),
		Metadata: FlowMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// AddNode inserts or replaces a node by id.
func (f *Flow) AddNode(n FlowNode) {
	f.Nodes[n.ID] = n
	f.Metadata.UpdatedAt = time.Now().UTC()
}

// AddEdge appends an edge.
func (f *Flow) AddEdge(e FlowEdge) {
	f.Edges = append(f.Edges, e)
	f.Metadata.UpdatedAt = time.Now().UTC()
}

// AddTrigger appends a trigger, enforcing invariant I4 (unique trigger id).
func (f *Flow) AddTrigger(t FlowTrigger) error {
	for _, existing := range f.Triggers {
		if existing.ID == t.ID {
			return fmt.Errorf("trigger id %q already exists in flow %s", t.ID, f.ID)
		}
	}
	f.Triggers = append(f.Triggers, t)
	f.Metadata.UpdatedAt = time.Now().UTC()
	return nil
}

// Activate transitions a draft flow to Active. The caller (runtime.deploy)
// is responsible for having validated the flow first.
func (f *Flow) Activate() { f.State = FlowActive }

// Sources returns node ids with in-degree zero in the edge graph.
func (f *Flow) Sources() []string {
	indeg := f.inDegree()
	var out []string
	for id := range f.Nodes {
		if indeg[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Sinks returns node ids with out-degree zero in the edge graph.
func (f *Flow) Sinks() []string {
	outdeg := make(map[string]int, len(f.Nodes))
	for id := range f.Nodes {
		outdeg[id] = 0
	}
	for _, e := range f.Edges {
		outdeg[e.SourceNode]++
	}
	var out []string
	for id := range f.Nodes {
		if outdeg[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

func (f *Flow) inDegree() map[string]int {
	indeg := make(map[string]int, len(f.Nodes))
	for id := range f.Nodes {
		indeg[id] = 0
	}
	for _, e := range f.Edges {
		indeg[e.TargetNode]++
	}
	return indeg
}

// OutgoingEdges returns every edge whose source is nodeID, in insertion
// order.
func (f *Flow) OutgoingEdges(nodeID string) []FlowEdge {
	var out []FlowEdge
	for _, e := range f.Edges {
		if e.SourceNode == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns every edge whose target is nodeID, in insertion
// order.
func (f *Flow) IncomingEdges(nodeID string) []FlowEdge {
	var in []FlowEdge
	for _, e := range f.Edges {
		if e.TargetNode == nodeID {
			in = append(in, e)
		}
	}
	return in
}
