package domain

import "time"

// EventType enumerates the exact §6 lifecycle event type strings.
type EventType string

const (
	EventExecutionStarted   EventType = "execution_started"
	EventExecutionProgress  EventType = "execution_progress"
	EventExecutionCompleted EventType = "execution_completed"
	EventExecutionFailed    EventType = "execution_failed"
	EventExecutionCancelled EventType = "execution_cancelled"
	EventNodeStarted        EventType = "node_started"
	EventNodeCompleted      EventType = "node_completed"
	EventNodeFailed         EventType = "node_failed"
	EventFlowUpdated        EventType = "flow_updated"
)

// Event is the exact §6 wire shape. Seq is a monotonic per-execution
// sequence number so observers can detect gaps from bus drops.
type Event struct {
	Type      EventType      `json:"type"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

func baseData(executionID, flowID string) map[string]any {
	return map[string]any{
		"execution_id": executionID,
		"flow_id":      flowID,
	}
}

func NewExecutionStartedEvent(seq uint64, executionID, flowID string) Event {
	return Event{Type: EventExecutionStarted, Seq: seq, Timestamp: time.Now().UTC(), Data: baseData(executionID, flowID)}
}

func NewExecutionProgressEvent(seq uint64, executionID, flowID, currentNode string, total, completed int) Event {
	d := baseData(executionID, flowID)
	d["current_node"] = currentNode
	d["total_nodes"] = total
	d["completed_nodes"] = completed
	percentage := 0.0
	if total > 0 {
		percentage = float64(completed) / float64(total) * 100
	}
	d["percentage"] = percentage
	return Event{Type: EventExecutionProgress, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewExecutionCompletedEvent(seq uint64, executionID, flowID string, output any) Event {
	d := baseData(executionID, flowID)
	d["output_data"] = output
	return Event{Type: EventExecutionCompleted, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewExecutionFailedEvent(seq uint64, executionID, flowID string, err *ExecutionError) Event {
	d := baseData(executionID, flowID)
	d["error"] = err
	return Event{Type: EventExecutionFailed, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewExecutionCancelledEvent(seq uint64, executionID, flowID string) Event {
	return Event{Type: EventExecutionCancelled, Seq: seq, Timestamp: time.Now().UTC(), Data: baseData(executionID, flowID)}
}

func NewNodeStartedEvent(seq uint64, executionID, flowID, nodeID, nodeType string) Event {
	d := baseData(executionID, flowID)
	d["node_id"] = nodeID
	d["node_type"] = nodeType
	return Event{Type: EventNodeStarted, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewNodeCompletedEvent(seq uint64, executionID, flowID, nodeID, nodeType string, durationMs int64, output any) Event {
	d := baseData(executionID, flowID)
	d["node_id"] = nodeID
	d["node_type"] = nodeType
	d["duration_ms"] = durationMs
	d["output_data"] = output
	return Event{Type: EventNodeCompleted, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewNodeFailedEvent(seq uint64, executionID, flowID, nodeID, nodeType string, durationMs int64, err *ExecutionError) Event {
	d := baseData(executionID, flowID)
	d["node_id"] = nodeID
	d["node_type"] = nodeType
	d["duration_ms"] = durationMs
	d["error"] = err
	return Event{Type: EventNodeFailed, Seq: seq, Timestamp: time.Now().UTC(), Data: d}
}

func NewFlowUpdatedEvent(seq uint64, flowID string) Event {
	return Event{Type: EventFlowUpdated, Seq: seq, Timestamp: time.Now().UTC(), Data: map[string]any{"flow_id": flowID}}
}
