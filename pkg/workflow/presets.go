package workflow

import (
	"fmt"

	"github.com/flowcore/flowcore/internal/domain"
)

// Step is one node in a preset topology: a node type plus its declared
// parameters.
type Step struct {
	ID       string
	NodeType string
	Name     string
	Params   map[string]any
}

// LinearPipeline builds a flow whose nodes form a single chain
// steps[0] → steps[1] → ... → steps[n-1], with a manual trigger. This is
// the node template library's simplest preset, grounded on
// original_source/ghostflow-core's bundled "linear pipeline" example
// template.
func LinearPipeline(id, name, version string, steps []Step) (*domain.Flow, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow: LinearPipeline requires at least one step")
	}
	b := New(id, name, version).ManualTrigger("trigger-manual")
	for _, s := range steps {
		b.Node(s.ID, s.NodeType, s.Name, s.Params)
	}
	for i := 0; i < len(steps)-1; i++ {
		b.Edge(fmt.Sprintf("edge-%d", i), steps[i].ID, steps[i+1].ID)
	}
	return b.Build(), nil
}

// FanOut builds a flow where one source step feeds every sink step in
// parallel, bounded by the executor's normal max_concurrent_nodes. This is
// the preset behind scenario-style fan-out flows (spec.md §8 S2).
func FanOut(id, name, version string, source Step, sinks []Step) (*domain.Flow, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("workflow: FanOut requires at least one sink step")
	}
	b := New(id, name, version).ManualTrigger("trigger-manual").Node(source.ID, source.NodeType, source.Name, source.Params)
	for i, sink := range sinks {
		b.Node(sink.ID, sink.NodeType, sink.Name, sink.Params)
		b.Edge(fmt.Sprintf("edge-%d", i), source.ID, sink.ID)
	}
	return b.Build(), nil
}
