package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/registry"
	"github.com/rs/zerolog/log"
)

// CancelGrace is the §5 grace window a node gets to honor cancellation
// before its task is abandoned.
const CancelGrace = 5 * time.Second

// DefaultMaxConcurrentNodes is §4.3/§5's default intra-flow concurrency
// bound.
const DefaultMaxConcurrentNodes = 10

// Publisher is the narrow surface the executor needs from an event bus;
// internal/eventbus.Bus satisfies it structurally.
type Publisher interface {
	Publish(event domain.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

// Options configures one Engine.
type Options struct {
	MaxConcurrentNodes int
}

func DefaultOptions() Options {
	return Options{MaxConcurrentNodes: DefaultMaxConcurrentNodes}
}

// Engine is the DAG executor: spec §4.3. Planning, per-node dispatch,
// retry, and output assembly are grounded on the teacher's
// ExecutionPlanner/WorkflowEngine pairing (internal/application/executor
// in the teacher tree), rewritten as one consistent implementation because
// the retrieved snapshot's planner.go and retry.go disagreed with their own
// sibling files on basic function signatures.
type Engine struct {
	registry   *registry.Registry
	conditions *ConditionEvaluator
	opts       Options
}

func New(reg *registry.Registry, opts Options) *Engine {
	if opts.MaxConcurrentNodes <= 0 {
		opts.MaxConcurrentNodes = DefaultMaxConcurrentNodes
	}
	return &Engine{registry: reg, conditions: NewConditionEvaluator(), opts: opts}
}

// run carries per-execution mutable state shared across node goroutines.
type run struct {
	flow      *domain.Flow
	exec      *domain.FlowExecution
	execMu    sync.Mutex
	outputs   map[string]any
	outputsMu sync.RWMutex
	seq       uint64
	seqMu     sync.Mutex
	sink      Publisher
	failOnce  sync.Once
	firstErr  *domain.ExecutionError
	poisoned  bool
	poisonMu  sync.RWMutex
	variables map[string]any
	secrets   map[string]string
}

func (r *run) nextSeq() uint64 {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	r.seq++
	return r.seq
}

func (r *run) emit(e domain.Event) { r.sink.Publish(e) }

func (r *run) setOutput(nodeID string, v any) {
	r.outputsMu.Lock()
	r.outputs[nodeID] = v
	r.outputsMu.Unlock()
}

func (r *run) getOutput(nodeID string) (any, bool) {
	r.outputsMu.RLock()
	defer r.outputsMu.RUnlock()
	v, ok := r.outputs[nodeID]
	return v, ok
}

func (r *run) poison(err *domain.ExecutionError) {
	r.failOnce.Do(func() { r.firstErr = err })
	r.poisonMu.Lock()
	r.poisoned = true
	r.poisonMu.Unlock()
}

func (r *run) isPoisoned() bool {
	r.poisonMu.RLock()
	defer r.poisonMu.RUnlock()
	return r.poisoned
}

// ExecuteFlow implements §4.3's contract exactly: it always returns a
// terminal FlowExecution and never returns a Go error for domain failures.
func (e *Engine) ExecuteFlow(ctx context.Context, flow *domain.Flow, trigger domain.TriggerRef, input any, variables map[string]any, secrets map[string]string, sink Publisher) *domain.FlowExecution {
	if sink == nil {
		sink = noopPublisher{}
	}
	exec := domain.NewFlowExecution(newID(), flow.ID, flow.Version, trigger, input)
	exec.Status = domain.StatusRunning

	r := &run{
		flow:      flow,
		exec:      exec,
		outputs:   make(map[string]any),
		sink:      sink,
		variables: variables,
		secrets:   secrets,
	}

	plan, err := PlanWaves(flow)
	if err != nil {
		exec.Fail(domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false))
		r.emit(domain.NewExecutionFailedEvent(r.nextSeq(), exec.ID, flow.ID, exec.Error))
		return exec
	}

	r.emit(domain.NewExecutionStartedEvent(r.nextSeq(), exec.ID, flow.ID))

	totalNodes := len(flow.Nodes)

	for _, wave := range plan.Waves {
		if ctx.Err() != nil || r.isPoisoned() {
			break
		}
		for _, batch := range Batches(wave.Nodes, e.opts.MaxConcurrentNodes) {
			e.runBatch(ctx, r, batch, totalNodes)
			if ctx.Err() != nil || r.isPoisoned() {
				break
			}
		}
	}

	switch {
	case ctx.Err() != nil:
		exec.Cancel()
		r.emit(domain.NewExecutionCancelledEvent(r.nextSeq(), exec.ID, flow.ID))
	case r.isPoisoned():
		exec.Fail(r.firstErr)
		r.emit(domain.NewExecutionFailedEvent(r.nextSeq(), exec.ID, flow.ID, exec.Error))
	default:
		output := e.assembleOutput(flow, r)
		exec.Complete(output)
		r.emit(domain.NewExecutionCompletedEvent(r.nextSeq(), exec.ID, flow.ID, output))
	}
	return exec
}

func (e *Engine) runBatch(ctx context.Context, r *run, nodeIDs []string, totalNodes int) {
	var wg sync.WaitGroup
	for _, nodeID := range nodeIDs {
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			e.runNode(ctx, r, nodeID, totalNodes)
		}(nodeID)
	}
	wg.Wait()
}

func (e *Engine) runNode(ctx context.Context, r *run, nodeID string, totalNodes int) {
	node := r.flow.Nodes[nodeID]
	ne := r.exec.NodeExecutionFor(nodeID)

	impl, ok := e.registry.Get(node.NodeType)
	if !ok {
		err := domain.NewExecutionError(domain.ErrValidation, "node_type not registered: "+node.NodeType).WithRetryable(false)
		now := time.Now().UTC()
		ne.Start(now)
		ne.Fail(now, err)
		r.poison(err)
		return
	}
	def := impl.Definition()

	src := e.buildSource(r, nodeID)

	input, inputErr := resolveParameters(node, def, src)
	started := time.Now().UTC()
	ne.Start(started)
	r.emit(domain.NewNodeStartedEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, node.NodeType))

	if inputErr != nil {
		ne.Fail(time.Now().UTC(), inputErr)
		r.poison(inputErr)
		r.emit(domain.NewNodeFailedEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, node.NodeType, 0, inputErr))
		return
	}

	ec := &domain.ExecutionContext{
		ExecutionID: r.exec.ID,
		FlowID:      r.flow.ID,
		NodeID:      nodeID,
		Input:       input,
		Variables:   r.variables,
		Secrets:     r.secrets,
		Artifacts:   map[string]any{},
	}
	ec.BindLogs(&ne.Logs)
	ne.InputData = input

	if err := impl.Validate(ctx, ec); err != nil {
		vErr := domain.NewExecutionError(domain.ErrValidation, err.Error()).WithRetryable(false)
		ne.Fail(time.Now().UTC(), vErr)
		r.poison(vErr)
		r.emit(domain.NewNodeFailedEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, node.NodeType, durationSince(started), vErr))
		return
	}

	output, execErr, cancelled := e.executeWithRetry(ctx, impl, def, ec, node, ne)

	if cancelled {
		ne.Cancel(time.Now().UTC())
		return
	}
	if execErr != nil {
		ne.Fail(time.Now().UTC(), execErr)
		r.poison(execErr)
		r.emit(domain.NewNodeFailedEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, node.NodeType, durationSince(started), execErr))
		return
	}

	ne.Complete(time.Now().UTC(), output)
	r.setOutput(nodeID, output)
	r.emit(domain.NewNodeCompletedEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, node.NodeType, durationSince(started), output))
	completed := r.exec.CompletedNodeCount()
	r.emit(domain.NewExecutionProgressEvent(r.nextSeq(), r.exec.ID, r.flow.ID, nodeID, totalNodes, completed))
}

// executeWithRetry runs the §4.3/§4.3-retry sequence: validate has already
// passed by the time this is called. It races execute against timeout_ms
// when set and retries per §4.3's retry policy.
func (e *Engine) executeWithRetry(ctx context.Context, impl registry.Node, def domain.NodeDefinition, ec *domain.ExecutionContext, node domain.FlowNode, ne *domain.NodeExecution) (output any, execErr *domain.ExecutionError, cancelled bool) {
	attempt := 0
	for {
		attempt++
		nodeCtx := ctx
		var cancel context.CancelFunc
		if node.TimeoutMs != nil {
			nodeCtx, cancel = context.WithTimeout(ctx, time.Duration(*node.TimeoutMs)*time.Millisecond)
		}

		result, done := e.invokeWithCancelGrace(nodeCtx, impl, ec)
		if cancel != nil {
			cancel()
		}

		if !done {
			return nil, nil, true
		}

		if nodeCtx.Err() == context.DeadlineExceeded {
			result.err = domain.NewExecutionError(domain.ErrTimeout, "node exceeded timeout_ms").WithRetryable(true)
			result.out = nil
		} else if ctx.Err() != nil {
			// Parent-level cancellation, as opposed to a per-node timeout:
			// whatever Execute returned is moot, the run is winding down.
			return nil, nil, true
		}

		if result.err == nil {
			return result.out, nil, false
		}

		if !shouldRetry(impl.SupportsRetry(), result.err, node.RetryConfig, attempt) {
			return nil, result.err, false
		}

		ne.RetryCount++
		delay := backoffDelay(node.RetryConfig, attempt)
		if sleepErr := sleepCancellable(ctx, delay); sleepErr != nil {
			return nil, nil, true
		}
	}
}

type invokeResult struct {
	out any
	err *domain.ExecutionError
}

// invokeWithCancelGrace calls impl.Execute on a goroutine so a caller can
// observe ctx cancellation and, failing a prompt return within CancelGrace,
// abandon the node rather than block forever — §5's abandonment rule.
func (e *Engine) invokeWithCancelGrace(ctx context.Context, impl registry.Node, ec *domain.ExecutionContext) (invokeResult, bool) {
	resultCh := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("node panic: %v", r)
				}
				execErr := domain.AsExecutionError(err).WithRetryable(false)
				resultCh <- invokeResult{err: execErr}
			}
		}()
		out, err := impl.Execute(ctx, ec)
		resultCh <- invokeResult{out: out, err: err}
	}()

	select {
	case res := <-resultCh:
		return res, true
	case <-ctx.Done():
		select {
		case res := <-resultCh:
			return res, true
		case <-time.After(CancelGrace):
			log.Warn().Str("node_id", ec.NodeID).Msg("node abandoned after cancellation grace window")
			return invokeResult{}, false
		}
	}
}

func (e *Engine) buildSource(r *run, nodeID string) *runSource {
	excluded := map[string]bool{}
	for _, edge := range r.flow.IncomingEdges(nodeID) {
		if edge.Condition == "" {
			continue
		}
		srcOutput, _ := r.getOutput(edge.SourceNode)
		ok, err := e.conditions.Evaluate(edge.Condition, srcOutput, r.variables)
		if err != nil || !ok {
			excluded[edge.SourceNode] = true
		}
	}
	r.outputsMu.RLock()
	snapshot := make(map[string]any, len(r.outputs))
	for k, v := range r.outputs {
		snapshot[k] = v
	}
	r.outputsMu.RUnlock()
	return &runSource{
		nodeOutputs: snapshot,
		excluded:    excluded,
		variables:   r.variables,
		secrets:     r.secrets,
		input:       r.exec.InputData,
	}
}

// assembleOutput implements §4.3/§9(c): single sink passes its output
// through directly; multiple sinks produce an object keyed by sink id; no
// sinks yields nil.
func (e *Engine) assembleOutput(flow *domain.Flow, r *run) any {
	sinks := flow.Sinks()
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		v, _ := r.getOutput(sinks[0])
		return v
	default:
		out := make(map[string]any, len(sinks))
		for _, id := range sinks {
			v, _ := r.getOutput(id)
			out[id] = v
		}
		return out
	}
}

func durationSince(start time.Time) int64 { return time.Since(start).Milliseconds() }
