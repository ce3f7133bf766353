package domain

// PortSpec describes one declared input or output port of a node.
type PortSpec struct {
	Name     string   `json:"name"`
	DataType DataType `json:"data_type"`
	Required bool     `json:"required"`
}

// Validation carries the optional constraints a ParameterSpec enforces.
type Validation struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	MinValue  *float64 `json:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Enum      []string `json:"enum,omitempty"`
}

// ParameterSpec describes one declared parameter a node accepts.
type ParameterSpec struct {
	Name       string         `json:"name"`
	Type       ParameterType  `json:"type"`
	Required   bool           `json:"required"`
	Default    any            `json:"default,omitempty"`
	Validation *Validation    `json:"validation,omitempty"`
}

// NodeDefinition is the pure, static description a node implementation
// returns from Definition(). It never changes across the life of a process
// and must not be used to carry per-invocation state.
type NodeDefinition struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	Description     string          `json:"description"`
	Category        NodeCategory    `json:"category"`
	Inputs          []PortSpec      `json:"inputs"`
	Outputs         []PortSpec      `json:"outputs"`
	Parameters      []ParameterSpec `json:"parameters"`
	SupportsRetry   bool            `json:"supports_retry"`
	IsDeterministic bool            `json:"is_deterministic"`
}

// Param looks up a declared parameter by name.
func (d NodeDefinition) Param(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// Port looks up a declared input or output port by name.
func Port(ports []PortSpec, name string) (PortSpec, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}

// RetryConfig is a node's declared retry policy within a flow.
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts"`
	InitialDelayMs    int64   `json:"initial_delay_ms"`
	BackoffMultiplier float64 `json:"backoff_multiplier"`
	MaxDelayMs        int64   `json:"max_delay_ms"`
}

// Position is opaque editor metadata the core stores but never interprets.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowNode is one node instance inside a Flow graph.
type FlowNode struct {
	ID          string         `json:"id"`
	NodeType    string         `json:"node_type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Position    Position       `json:"position"`
	RetryConfig *RetryConfig   `json:"retry_config,omitempty"`
	TimeoutMs   *int64         `json:"timeout_ms,omitempty"`
}
