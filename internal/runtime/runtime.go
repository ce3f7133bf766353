// Package runtime implements the §4.5 top-level orchestrator: the state
// machine per deployed flow (Absent → Deployed → Running(n) → Deployed →
// Absent) and the producer interface §6 names (deploy/undeploy/
// execute_manually/deliver_webhook/list_flows/get_flow). It is new code —
// the teacher has no equivalent top-level orchestrator — grounded on the
// teacher's own facade-and-factory idiom (constructors returning
// interfaces, zerolog for setup logging) rather than on any single
// teacher file.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/eventbus"
	"github.com/flowcore/flowcore/internal/executor"
	"github.com/flowcore/flowcore/internal/registry"
	"github.com/flowcore/flowcore/internal/scheduler"
	"github.com/flowcore/flowcore/internal/secrets"
	"github.com/flowcore/flowcore/internal/validator"
	"github.com/rs/zerolog/log"
)

// Config bundles the collaborators a Runtime is built from.
type Config struct {
	Registry         *registry.Registry
	FlowStorage      domain.FlowStorage
	ExecutionStorage domain.ExecutionStorage
	Secrets          secrets.Provider
	ExecutorOptions  executor.Options
	TickInterval     time.Duration
	EventBufferSize  int
}

// Runtime is the single owner of the deployed-flow map and the scheduler's
// trigger table, per §3's Ownership rule.
type Runtime struct {
	cfg       Config
	registry  *registry.Registry
	engine    *executor.Engine
	scheduler *scheduler.Scheduler
	bus       *eventbus.Bus
	flowStore domain.FlowStorage
	execStore domain.ExecutionStorage
	secrets   secrets.Provider

	mu        sync.RWMutex
	flows     map[string]*domain.Flow
	running   map[string]int

	cancel context.CancelFunc
	runWg  sync.WaitGroup
}

func New(cfg Config) *Runtime {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = scheduler.DefaultTickInterval
	}
	return &Runtime{
		cfg:       cfg,
		registry:  cfg.Registry,
		engine:    executor.New(cfg.Registry, cfg.ExecutorOptions),
		scheduler: scheduler.New(cfg.TickInterval),
		bus:       eventbus.NewWithBufferSize(cfg.EventBufferSize),
		flowStore: cfg.FlowStorage,
		execStore: cfg.ExecutionStorage,
		secrets:   cfg.Secrets,
		flows:     make(map[string]*domain.Flow),
		running:   make(map[string]int),
	}
}

// Registry exposes the node registry for catalog discovery, per §6.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Events returns a live subscription to the lifecycle event stream.
func (r *Runtime) Events() *eventbus.Subscription { return r.bus.Subscribe() }

// Start spawns the scheduler's tick task. Idempotent.
func (r *Runtime) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.runWg.Add(1)
	go func() {
		defer r.runWg.Done()
		r.scheduler.Run(runCtx, r.dispatch)
	}()
	log.Info().Msg("runtime started")
}

// Stop joins the scheduler tick task. Idempotent.
func (r *Runtime) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.scheduler.Stop()
	r.runWg.Wait()
	r.cancel = nil
	log.Info().Msg("runtime stopped")
}

// Deploy validates flow and, on success, activates it, schedules its
// triggers, and persists it.
func (r *Runtime) Deploy(ctx context.Context, flow *domain.Flow) error {
	issues := validator.Validate(flow, r.registry)
	if validator.HasErrors(issues) {
		return &ValidationFailedError{Issues: issues}
	}
	flow.Activate()
	if err := r.scheduler.Schedule(flow, time.Now().UTC()); err != nil {
		return err
	}
	if r.flowStore != nil {
		if err := r.flowStore.Save(ctx, flow); err != nil {
			r.scheduler.Unschedule(flow.ID)
			return err
		}
	}
	r.mu.Lock()
	r.flows[flow.ID] = flow
	r.mu.Unlock()
	r.bus.Publish(domain.NewFlowUpdatedEvent(0, flow.ID))
	return nil
}

// Undeploy unschedules and removes flowID. In-flight executions continue
// uninterrupted since they hold their own *domain.Flow reference.
func (r *Runtime) Undeploy(ctx context.Context, flowID string) error {
	r.scheduler.Unschedule(flowID)
	r.mu.Lock()
	delete(r.flows, flowID)
	r.mu.Unlock()
	if r.flowStore != nil {
		return r.flowStore.Delete(ctx, flowID)
	}
	return nil
}

// ExecuteManually bypasses the scheduler and executes flowID with
// trigger_type=Manual.
func (r *Runtime) ExecuteManually(ctx context.Context, flowID string, input any) (*domain.FlowExecution, error) {
	flow, ok := r.getDeployed(flowID)
	if !ok {
		return nil, domain.NewNotFoundError("flow", flowID)
	}
	trigger := domain.TriggerRef{Type: domain.TriggerManual}
	return r.execute(ctx, flow, trigger, input), nil
}

// DeliverWebhook routes an incoming webhook and, on a match, executes the
// owning flow with trigger_type=Webhook.
func (r *Runtime) DeliverWebhook(ctx context.Context, path, method string, body any) (*domain.FlowExecution, bool, error) {
	flow, trig, ok := r.scheduler.DeliverWebhook(path, method)
	if !ok {
		return nil, false, nil
	}
	trigger := domain.TriggerRef{Type: domain.TriggerWebhook, Source: trig.ID}
	return r.execute(ctx, flow, trigger, body), true, nil
}

func (r *Runtime) dispatch(flow *domain.Flow, trig domain.FlowTrigger) {
	ctx := context.Background()
	trigger := domain.TriggerRef{Type: domain.TriggerCron, Source: trig.ID}
	r.execute(ctx, flow, trigger, nil)
}

func (r *Runtime) execute(ctx context.Context, flow *domain.Flow, trigger domain.TriggerRef, input any) *domain.FlowExecution {
	r.mu.Lock()
	r.running[flow.ID]++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running[flow.ID]--
		r.mu.Unlock()
	}()

	variables := variablesFromDefaults(flow)
	revealedSecrets, err := secrets.RevealForFlow(ctx, r.secrets, flow)
	if err != nil {
		log.Warn().Err(err).Str("flow_id", flow.ID).Msg("failed to reveal secrets")
	}

	exec := r.engine.ExecuteFlow(ctx, flow, trigger, input, variables, revealedSecrets, r.bus)
	if r.execStore != nil {
		if err := r.execStore.Save(ctx, exec); err != nil {
			log.Warn().Err(err).Str("execution_id", exec.ID).Msg("failed to persist execution record")
		}
	}
	return exec
}

func variablesFromDefaults(flow *domain.Flow) map[string]any {
	vars := make(map[string]any, len(flow.Parameters))
	for _, p := range flow.Parameters {
		if p.Default != nil {
			vars[p.Name] = p.Default
		}
	}
	return vars
}

func (r *Runtime) getDeployed(flowID string) (*domain.Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[flowID]
	return f, ok
}

// ListFlows returns every currently deployed flow.
func (r *Runtime) ListFlows(_ context.Context) ([]*domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Flow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f)
	}
	return out, nil
}

// GetFlow returns one deployed flow by id.
func (r *Runtime) GetFlow(_ context.Context, id string) (*domain.Flow, error) {
	f, ok := r.getDeployed(id)
	if !ok {
		return nil, domain.NewNotFoundError("flow", id)
	}
	return f, nil
}

// ValidationFailedError carries the full issue list a failed Deploy
// reports, per §4.5/§7's "Deploy validation errors are returned
// synchronously with the full issue list."
type ValidationFailedError struct {
	Issues []validator.ValidationIssue
}

func (e *ValidationFailedError) Error() string {
	if len(e.Issues) == 0 {
		return "flow validation failed"
	}
	return e.Issues[0].Message
}
