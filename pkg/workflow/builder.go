// Package workflow is the public, importable fluent builder for
// assembling a domain.Flow programmatically, grounded on the teacher's own
// builder-pattern types for Definition/NodeDef/EdgeDef/TriggerDef (the
// pkg/workflow/builder.go and types.go pair in the teacher tree), adapted
// here to the Flow/FlowNode/FlowEdge/FlowTrigger vocabulary.
package workflow

import "github.com/flowcore/flowcore/internal/domain"

// Builder accumulates a Flow definition one chained call at a time.
type Builder struct {
	flow *domain.Flow
}

// New starts a new draft flow.
func New(id, name, version string) *Builder {
	return &Builder{flow: domain.NewFlow(id, name, version)}
}

func (b *Builder) Describe(description string) *Builder {
	b.flow.Description = description
	return b
}

// Node adds a node instance of nodeType, with a zero Position and no
// retry/timeout overrides. Use NodeWithOptions for the rest.
func (b *Builder) Node(id, nodeType, name string, params map[string]any) *Builder {
	b.flow.AddNode(domain.FlowNode{ID: id, NodeType: nodeType, Name: name, Parameters: params})
	return b
}

// NodeOptions carries the optional fields Node leaves at their zero value.
type NodeOptions struct {
	Description string
	Position    domain.Position
	RetryConfig *domain.RetryConfig
	TimeoutMs   *int64
}

func (b *Builder) NodeWithOptions(id, nodeType, name string, params map[string]any, opts NodeOptions) *Builder {
	b.flow.AddNode(domain.FlowNode{
		ID:          id,
		NodeType:    nodeType,
		Name:        name,
		Description: opts.Description,
		Parameters:  params,
		Position:    opts.Position,
		RetryConfig: opts.RetryConfig,
		TimeoutMs:   opts.TimeoutMs,
	})
	return b
}

// Edge connects source's default output to target's default input.
func (b *Builder) Edge(id, source, target string) *Builder {
	b.flow.AddEdge(domain.FlowEdge{ID: id, SourceNode: source, TargetNode: target})
	return b
}

// ConditionalEdge is an Edge gated by an expr-lang boolean condition
// evaluated against source's output, per §6's grammar.
func (b *Builder) ConditionalEdge(id, source, target, condition string) *Builder {
	b.flow.AddEdge(domain.FlowEdge{ID: id, SourceNode: source, TargetNode: target, Condition: condition})
	return b
}

// PortEdge connects a named source port to a named target input, for
// multi-output/multi-input node wiring.
func (b *Builder) PortEdge(id, source, sourcePort, target, targetInput string) *Builder {
	b.flow.AddEdge(domain.FlowEdge{ID: id, SourceNode: source, SourcePort: sourcePort, TargetNode: target, TargetInput: targetInput})
	return b
}

func (b *Builder) ManualTrigger(id string) *Builder {
	_ = b.flow.AddTrigger(domain.FlowTrigger{ID: id, Kind: domain.TriggerManual, Enabled: true})
	return b
}

func (b *Builder) CronTrigger(id, expression, timezone string) *Builder {
	_ = b.flow.AddTrigger(domain.FlowTrigger{ID: id, Kind: domain.TriggerCron, Enabled: true, Expression: expression, Timezone: timezone})
	return b
}

func (b *Builder) WebhookTrigger(id, path, method string) *Builder {
	_ = b.flow.AddTrigger(domain.FlowTrigger{ID: id, Kind: domain.TriggerWebhook, Enabled: true, Path: path, Method: method})
	return b
}

func (b *Builder) Variable(name string, typ domain.ParameterType, required bool, def any) *Builder {
	b.flow.Parameters = append(b.flow.Parameters, domain.VariableDef{Name: name, Type: typ, Required: required, Default: def})
	return b
}

func (b *Builder) Secret(key string) *Builder {
	b.flow.Secrets = append(b.flow.Secrets, key)
	return b
}

func (b *Builder) Tag(tag string) *Builder {
	b.flow.Metadata.Tags = append(b.flow.Metadata.Tags, tag)
	return b
}

func (b *Builder) Author(author string) *Builder {
	b.flow.Metadata.Author = author
	return b
}

// Build returns the assembled draft Flow. It is the caller's
// responsibility to run it through validator.Validate (directly, or via
// runtime.Runtime.Deploy) before relying on it.
func (b *Builder) Build() *domain.Flow {
	return b.flow
}
