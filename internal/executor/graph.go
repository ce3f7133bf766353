// Package executor implements the DAG executor: spec §4.3. Wave planning
// is grounded on the teacher's Kahn-based WorkflowGraph
// (internal/application/executor/graph.go in the teacher tree); that file
// and its sibling planner.go disagreed on WorkflowGraph's own constructor
// signature in the retrieved snapshot, so this is a single, internally
// consistent rewrite rather than a literal port.
package executor

import (
	"fmt"

	"github.com/flowcore/flowcore/internal/domain"
)

// Wave is a maximal set of node ids with no dependencies among themselves
// and all dependencies satisfied by prior waves.
type Wave struct {
	Index int
	Nodes []string
}

// Plan is the output of planning: the wave ordering.
type Plan struct {
	Waves []Wave
}

// PlanWaves computes the §4.3 wave ordering via Kahn's algorithm. Nodes with
// in-degree zero form wave 0; they are removed and the computation repeats.
// If any node remains unassigned after the graph is exhausted, a cycle
// exists and planning fails fast — the validator should have already
// caught this at deploy time, but the executor re-checks because a flow's
// definition cannot change between deploy and dispatch within this core.
func PlanWaves(flow *domain.Flow) (*Plan, error) {
	indeg := make(map[string]int, len(flow.Nodes))
	out := make(map[string][]string, len(flow.Nodes))
	for id := range flow.Nodes {
		indeg[id] = 0
	}
	for _, e := range flow.Edges {
		indeg[e.TargetNode]++
		out[e.SourceNode] = append(out[e.SourceNode], e.TargetNode)
	}

	remaining := len(flow.Nodes)
	var waves []Wave
	frontier := make([]string, 0)
	for id, d := range indeg {
		if d == 0 {
			frontier = append(frontier, id)
		}
	}

	waveIdx := 0
	for len(frontier) > 0 {
		wave := Wave{Index: waveIdx, Nodes: append([]string{}, frontier...)}
		waves = append(waves, wave)
		remaining -= len(frontier)

		var next []string
		for _, id := range frontier {
			for _, succ := range out[id] {
				indeg[succ]--
				if indeg[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		frontier = next
		waveIdx++
	}

	if remaining != 0 {
		return nil, fmt.Errorf("flow %s: cycle detected during planning", flow.ID)
	}
	return &Plan{Waves: waves}, nil
}

// WaveIndex returns the wave each node id belongs to, for tests asserting
// invariant 4 (every edge (u,v) has u's wave index < v's wave index).
func (p *Plan) WaveIndex() map[string]int {
	idx := make(map[string]int)
	for _, w := range p.Waves {
		for _, n := range w.Nodes {
			idx[n] = w.Index
		}
	}
	return idx
}

// Batches splits a wave's node list into sub-batches of size ≤ max,
// preserving submission order, per §4.3's concurrency-bound rule.
func Batches(nodes []string, max int) [][]string {
	if max <= 0 {
		max = len(nodes)
		if max == 0 {
			max = 1
		}
	}
	var batches [][]string
	for i := 0; i < len(nodes); i += max {
		end := i + max
		if end > len(nodes) {
			end = len(nodes)
		}
		batches = append(batches, nodes[i:end])
	}
	return batches
}
