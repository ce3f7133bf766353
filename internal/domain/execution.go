package domain

import "time"

// LogEntry is one line a node emitted via ExecutionContext logging during
// Execute; NodeExecution.Logs accumulates them in emission order.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// NodeExecution is the per-node record inside a FlowExecution.
type NodeExecution struct {
	NodeID      string          `json:"node_id"`
	Status      ExecutionStatus `json:"status"`
	InputData   any             `json:"input_data,omitempty"`
	OutputData  any             `json:"output_data,omitempty"`
	Error       *ExecutionError `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	DurationMs  *int64          `json:"duration_ms,omitempty"`
	RetryCount  int             `json:"retry_count"`
	Logs        []LogEntry      `json:"logs,omitempty"`
}

func (ne *NodeExecution) Start(now time.Time) {
	ne.Status = StatusRunning
	ne.StartedAt = &now
}

func (ne *NodeExecution) Complete(now time.Time, output any) {
	ne.Status = StatusCompleted
	ne.OutputData = output
	ne.finish(now)
}

func (ne *NodeExecution) Fail(now time.Time, err *ExecutionError) {
	ne.Status = StatusFailed
	ne.Error = err
	ne.finish(now)
}

func (ne *NodeExecution) Cancel(now time.Time) {
	ne.Status = StatusCancelled
	ne.finish(now)
}

func (ne *NodeExecution) Skip() {
	ne.Status = StatusSkipped
}

func (ne *NodeExecution) finish(now time.Time) {
	ne.CompletedAt = &now
	if ne.StartedAt != nil {
		d := now.Sub(*ne.StartedAt).Milliseconds()
		ne.DurationMs = &d
	}
}

// ExecutionMetadata is free-form tracing/correlation bookkeeping.
type ExecutionMetadata struct {
	ExecutorID    string `json:"executor_id"`
	Environment   string `json:"environment"`
	CorrelationID string `json:"correlation_id,omitempty"`
	TraceID       string `json:"trace_id"`
	SpanID        string `json:"span_id,omitempty"`
}

// FlowExecution is the terminal record execute_flow produces: §3's
// FlowExecution. It is always returned, win or lose — execute_flow never
// throws.
type FlowExecution struct {
	ID              string                   `json:"id"`
	FlowID          string                   `json:"flow_id"`
	FlowVersion     string                   `json:"flow_version"`
	Status          ExecutionStatus          `json:"status"`
	Trigger         TriggerRef               `json:"trigger"`
	InputData       any                      `json:"input_data"`
	OutputData      any                      `json:"output_data,omitempty"`
	Error           *ExecutionError          `json:"error,omitempty"`
	NodeExecutions  map[string]*NodeExecution `json:"node_executions"`
	StartedAt       time.Time                `json:"started_at"`
	CompletedAt     *time.Time               `json:"completed_at,omitempty"`
	ExecutionTimeMs *int64                   `json:"execution_time_ms,omitempty"`
	Metadata        ExecutionMetadata        `json:"metadata"`
}

// NewFlowExecution creates a Pending record with an empty node-execution
// map, one entry of which is populated lazily as each node is dispatched.
func NewFlowExecution(id, flowID, flowVersion string, trigger TriggerRef, input any) *FlowExecution {
	return &FlowExecution{
		ID:             id,
		FlowID:         flowID,
		FlowVersion:    flowVersion,
		Status:         StatusPending,
		Trigger:        trigger,
		InputData:      input,
		NodeExecutions: make(map[string]*NodeExecution),
		StartedAt:      time.Now().UTC(),
	}
}

func (fe *FlowExecution) NodeExecutionFor(nodeID string) *NodeExecution {
	ne, ok := fe.NodeExecutions[nodeID]
	if !ok {
		ne = &NodeExecution{NodeID: nodeID, Status: StatusPending}
		fe.NodeExecutions[nodeID] = ne
	}
	return ne
}

func (fe *FlowExecution) finish(status ExecutionStatus, output any, err *ExecutionError) {
	now := time.Now().UTC()
	fe.Status = status
	fe.OutputData = output
	fe.Error = err
	fe.CompletedAt = &now
	d := now.Sub(fe.StartedAt).Milliseconds()
	fe.ExecutionTimeMs = &d
}

func (fe *FlowExecution) Complete(output any) { fe.finish(StatusCompleted, output, nil) }
func (fe *FlowExecution) Fail(err *ExecutionError) { fe.finish(StatusFailed, nil, err) }
func (fe *FlowExecution) Cancel() { fe.finish(StatusCancelled, nil, nil) }

// CompletedNodeCount counts node executions in a terminal, non-skipped
// state, for ExecutionProgress events.
func (fe *FlowExecution) CompletedNodeCount() int {
	n := 0
	for _, ne := range fe.NodeExecutions {
		if ne.Status == StatusCompleted || ne.Status == StatusFailed || ne.Status == StatusCancelled {
			n++
		}
	}
	return n
}

// ExecutionContext is passed to every node invocation: §3's ExecutionContext.
type ExecutionContext struct {
	ExecutionID string
	FlowID      string
	NodeID      string
	Input       map[string]any
	Variables   map[string]any
	Secrets     map[string]string
	Artifacts   map[string]any
	logs        *[]LogEntry
}

// Log appends a structured log entry to the owning NodeExecution's log
// sequence. Safe to call from within Execute.
func (ec *ExecutionContext) Log(level, message string, details map[string]any) {
	if ec.logs == nil {
		return
	}
	*ec.logs = append(*ec.logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Details:   details,
	})
}

// BindLogs attaches the log sequence a NodeExecution owns so Log() appends
// directly into the execution record.
func (ec *ExecutionContext) BindLogs(target *[]LogEntry) { ec.logs = target }
