// Package validator implements the pure, non-fail-fast flow validator from
// spec §4.2. It is grounded on the teacher's Kahn-algorithm cycle detector
// (internal/application/executor/graph.go in the teacher tree) generalized
// to also check node-type resolution, parameter completeness, edge
// endpoint/port/type compatibility, and trigger validity.
package validator

import (
	"fmt"
	"regexp"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/registry"
	"github.com/flowcore/flowcore/internal/template"
	"github.com/robfig/cron/v3"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is one diagnostic. Editors render the full list; deploy
// fails only if any issue has SeverityError.
type ValidationIssue struct {
	Severity Severity
	Code     string
	Message  string
	NodeID   string
	EdgeID   string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
}

// HasErrors reports whether any issue in issues is SeverityError.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var webhookPathPattern = regexp.MustCompile(`^/[A-Za-z0-9/_\-]*$`)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
var cronParserWithSeconds = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate runs every §4.2 check against flow and reports every issue
// found, not just the first.
func Validate(flow *domain.Flow, reg *registry.Registry) []ValidationIssue {
	var issues []ValidationIssue

	// 1. nodes non-empty.
	if len(flow.Nodes) == 0 {
		issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "empty_flow", Message: "flow has no nodes"})
		return issues
	}

	issues = append(issues, validateNodes(flow, reg)...)
	issues = append(issues, validateEdges(flow, reg)...)
	issues = append(issues, validateCycles(flow)...)
	issues = append(issues, validateReachability(flow)...)
	issues = append(issues, validateTriggers(flow)...)

	return issues
}

// 2. node_type resolution + required-parameter completeness.
func validateNodes(flow *domain.Flow, reg *registry.Registry) []ValidationIssue {
	var issues []ValidationIssue
	for id, node := range flow.Nodes {
		impl, ok := reg.Get(node.NodeType)
		if !ok {
			issues = append(issues, ValidationIssue{
				Severity: SeverityError, Code: "unknown_node_type", NodeID: id,
				Message: fmt.Sprintf("node %q has unknown node_type %q", id, node.NodeType),
			})
			continue
		}
		def := impl.Definition()
		for _, p := range def.Parameters {
			if !p.Required {
				continue
			}
			val, present := node.Parameters[p.Name]
			if present {
				if s, isStr := val.(string); isStr && template.IsTemplated(s) {
					if _, err := template.Compile(s); err != nil {
						issues = append(issues, ValidationIssue{
							Severity: SeverityError, Code: "bad_reference", NodeID: id,
							Message: fmt.Sprintf("node %q parameter %q: %v", id, p.Name, err),
						})
					}
				}
				continue
			}
			if p.Default != nil {
				continue
			}
			issues = append(issues, ValidationIssue{
				Severity: SeverityError, Code: "missing_required_parameter", NodeID: id,
				Message: fmt.Sprintf("node %q missing required parameter %q", id, p.Name),
			})
		}
	}
	return issues
}

// 3. edge endpoint/port existence and data-type compatibility.
func validateEdges(flow *domain.Flow, reg *registry.Registry) []ValidationIssue {
	var issues []ValidationIssue
	for _, e := range flow.Edges {
		src, srcOK := flow.Nodes[e.SourceNode]
		tgt, tgtOK := flow.Nodes[e.TargetNode]
		if !srcOK {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "dangling_edge", EdgeID: e.ID,
				Message: fmt.Sprintf("edge %q references unknown source node %q", e.ID, e.SourceNode)})
		}
		if !tgtOK {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "dangling_edge", EdgeID: e.ID,
				Message: fmt.Sprintf("edge %q references unknown target node %q", e.ID, e.TargetNode)})
		}
		if !srcOK || !tgtOK {
			continue
		}
		srcImpl, srcImplOK := reg.Get(src.NodeType)
		tgtImpl, tgtImplOK := reg.Get(tgt.NodeType)
		if !srcImplOK || !tgtImplOK {
			continue // already reported by validateNodes
		}
		srcDef := srcImpl.Definition()
		tgtDef := tgtImpl.Definition()

		var srcPort domain.PortSpec
		if e.SourcePort == "" {
			if len(srcDef.Outputs) != 1 {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "ambiguous_port", EdgeID: e.ID,
					Message: fmt.Sprintf("edge %q omits source_port but node %q declares %d outputs", e.ID, e.SourceNode, len(srcDef.Outputs))})
				continue
			}
			srcPort = srcDef.Outputs[0]
		} else {
			p, ok := domain.Port(srcDef.Outputs, e.SourcePort)
			if !ok {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "unknown_port", EdgeID: e.ID,
					Message: fmt.Sprintf("edge %q source_port %q not declared by node %q", e.ID, e.SourcePort, e.SourceNode)})
				continue
			}
			srcPort = p
		}

		var tgtPort domain.PortSpec
		if e.TargetInput == "" {
			if len(tgtDef.Inputs) != 1 {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "ambiguous_port", EdgeID: e.ID,
					Message: fmt.Sprintf("edge %q omits target_input but node %q declares %d inputs", e.ID, e.TargetNode, len(tgtDef.Inputs))})
				continue
			}
			tgtPort = tgtDef.Inputs[0]
		} else {
			p, ok := domain.Port(tgtDef.Inputs, e.TargetInput)
			if !ok {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "unknown_port", EdgeID: e.ID,
					Message: fmt.Sprintf("edge %q target_input %q not declared by node %q", e.ID, e.TargetInput, e.TargetNode)})
				continue
			}
			tgtPort = p
		}

		if !tgtPort.DataType.Compatible(srcPort.DataType) {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "type_mismatch", EdgeID: e.ID,
				Message: fmt.Sprintf("edge %q: %s (%s) incompatible with %s (%s)", e.ID, e.SourceNode, srcPort.DataType, e.TargetNode, tgtPort.DataType)})
		}
	}
	return issues
}

// 4. cycle detection via Kahn's algorithm, reporting a representative cycle.
func validateCycles(flow *domain.Flow) []ValidationIssue {
	indeg := make(map[string]int, len(flow.Nodes))
	out := make(map[string][]string, len(flow.Nodes))
	for id := range flow.Nodes {
		indeg[id] = 0
	}
	for _, e := range flow.Edges {
		if _, ok := flow.Nodes[e.SourceNode]; !ok {
			continue
		}
		if _, ok := flow.Nodes[e.TargetNode]; !ok {
			continue
		}
		indeg[e.TargetNode]++
		out[e.SourceNode] = append(out[e.SourceNode], e.TargetNode)
	}
	queue := make([]string, 0)
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	remaining := make(map[string]bool, len(flow.Nodes))
	for id := range flow.Nodes {
		remaining[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		delete(remaining, id)
		for _, next := range out[id] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited == len(flow.Nodes) {
		return nil
	}
	cycle := representativeCycle(remaining, out)
	return []ValidationIssue{{
		Severity: SeverityError, Code: "cycle",
		Message: fmt.Sprintf("flow contains a cycle: %v", cycle),
	}}
}

// representativeCycle walks forward from an arbitrary residual node until a
// repeat is seen, yielding one concrete cycle for the diagnostic.
func representativeCycle(remaining map[string]bool, out map[string][]string) []string {
	var start string
	for id := range remaining {
		start = id
		break
	}
	visited := map[string]int{}
	path := []string{}
	cur := start
	for {
		if idx, seen := visited[cur]; seen {
			return path[idx:]
		}
		visited[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, n := range out[cur] {
			if remaining[n] {
				next = n
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}

// 5. at least one source; unreachable nodes are warnings.
func validateReachability(flow *domain.Flow) []ValidationIssue {
	var issues []ValidationIssue
	sources := flow.Sources()
	if len(sources) == 0 {
		issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "no_source", Message: "flow has no source node (in-degree zero)"})
		return issues
	}
	reachable := map[string]bool{}
	out := map[string][]string{}
	for _, e := range flow.Edges {
		out[e.SourceNode] = append(out[e.SourceNode], e.TargetNode)
	}
	queue := append([]string{}, sources...)
	for _, s := range sources {
		reachable[s] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	for id := range flow.Nodes {
		if !reachable[id] {
			issues = append(issues, ValidationIssue{Severity: SeverityWarning, Code: "unreachable_node", NodeID: id,
				Message: fmt.Sprintf("node %q is not reachable from any source", id)})
		}
	}
	return issues
}

// 6. trigger id uniqueness, cron expression parseability, webhook path shape.
func validateTriggers(flow *domain.Flow) []ValidationIssue {
	var issues []ValidationIssue
	seen := map[string]bool{}
	for _, t := range flow.Triggers {
		if seen[t.ID] {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "duplicate_trigger_id",
				Message: fmt.Sprintf("trigger id %q is not unique", t.ID)})
		}
		seen[t.ID] = true

		switch t.Kind {
		case domain.TriggerCron:
			if _, err := ParseCron(t.Expression); err != nil {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "bad_cron",
					Message: fmt.Sprintf("trigger %q cron expression %q invalid: %v", t.ID, t.Expression, err)})
			}
		case domain.TriggerWebhook:
			if !webhookPathPattern.MatchString(t.Path) {
				issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "bad_webhook_path",
					Message: fmt.Sprintf("trigger %q webhook path %q does not match %s", t.ID, t.Path, webhookPathPattern.String())})
			}
		case domain.TriggerManual:
			// no extra fields to check
		default:
			issues = append(issues, ValidationIssue{Severity: SeverityError, Code: "unknown_trigger_kind",
				Message: fmt.Sprintf("trigger %q has unknown kind %q", t.ID, t.Kind)})
		}
	}
	return issues
}

// ParseCron parses a 5- or 6-field cron expression (seconds field optional),
// the documented format per spec §9 open question (b).
func ParseCron(expr string) (cron.Schedule, error) {
	fields := countFields(expr)
	if fields == 6 {
		return cronParserWithSeconds.Parse(expr)
	}
	return cronParser.Parse(expr)
}

func countFields(expr string) int {
	n := 0
	inField := false
	for _, r := range expr {
		if r == ' ' || r == '\t' {
			inField = false
			continue
		}
		if !inField {
			n++
			inField = true
		}
	}
	return n
}
