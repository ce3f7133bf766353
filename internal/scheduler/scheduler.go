// Package scheduler implements the §4.4 trigger scheduler: it owns the
// flow_id → ScheduledFlow map, computes cron next-fire times with
// robfig/cron/v3 (the grammar the teacher's sibling repo snapshots already
// depend on for this exact purpose, though the checked-in teacher tree had
// no cron support at all), and runs the cooperative tick loop described in
// §4.4 and exercised by scenario S7 (missed-tick coalescing).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/flowcore/flowcore/internal/validator"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is §4.4's default scheduler loop period.
const DefaultTickInterval = 10 * time.Second

// ScheduledTrigger pairs a FlowTrigger with its computed next fire time.
// Manual and Webhook triggers always have a nil NextFire.
type ScheduledTrigger struct {
	Trigger  domain.FlowTrigger
	NextFire *time.Time
}

// ScheduledFlow is one entry in the scheduler's flow table.
type ScheduledFlow struct {
	Flow     *domain.Flow
	Triggers []*ScheduledTrigger
}

// ReadyFire is one (flow, trigger) pair whose next_fire has elapsed.
type ReadyFire struct {
	Flow    *domain.Flow
	Trigger domain.FlowTrigger
}

// Scheduler owns the deployed-flow trigger table described in §4.4.
type Scheduler struct {
	mu           sync.RWMutex
	flows        map[string]*ScheduledFlow
	tickInterval time.Duration
	stop         chan struct{}
	wg           sync.WaitGroup
}

func New(tickInterval time.Duration) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Scheduler{flows: make(map[string]*ScheduledFlow), tickInterval: tickInterval}
}

// Schedule registers flow and computes next_fire for each enabled trigger,
// per §4.4.
func (s *Scheduler) Schedule(flow *domain.Flow, now time.Time) error {
	sf := &ScheduledFlow{Flow: flow}
	for _, t := range flow.Triggers {
		st := &ScheduledTrigger{Trigger: t}
		if t.Enabled && t.Kind == domain.TriggerCron {
			next, err := computeNextFire(t, now)
			if err != nil {
				return err
			}
			st.NextFire = &next
		}
		sf.Triggers = append(sf.Triggers, st)
	}
	s.mu.Lock()
	s.flows[flow.ID] = sf
	s.mu.Unlock()
	return nil
}

// Unschedule removes flowID's entry. In-flight executions are unaffected;
// the scheduler only stops producing new fires for it.
func (s *Scheduler) Unschedule(flowID string) {
	s.mu.Lock()
	delete(s.flows, flowID)
	s.mu.Unlock()
}

// ReadyFlows returns every (flow, trigger) whose next_fire ≤ now.
func (s *Scheduler) ReadyFlows(now time.Time) []ReadyFire {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ready []ReadyFire
	for _, sf := range s.flows {
		for _, st := range sf.Triggers {
			if st.Trigger.Enabled && st.NextFire != nil && !st.NextFire.After(now) {
				ready = append(ready, ReadyFire{Flow: sf.Flow, Trigger: st.Trigger})
			}
		}
	}
	return ready
}

// UpdateNext recomputes next_fire for one trigger after it has fired.
// Computing the next occurrence from now (rather than from the missed
// next_fire) is what gives §4.4's coalescing guarantee: a trigger that
// should have fired N times while the scheduler was paused produces
// exactly one ready fire, and the recomputed next_fire lands strictly
// after now, per scenario S7.
func (s *Scheduler) UpdateNext(flowID, triggerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.flows[flowID]
	if !ok {
		return domain.NewNotFoundError("flow", flowID)
	}
	for _, st := range sf.Triggers {
		if st.Trigger.ID != triggerID {
			continue
		}
		if st.Trigger.Kind != domain.TriggerCron {
			return nil
		}
		next, err := computeNextFire(st.Trigger, now)
		if err != nil {
			return err
		}
		st.NextFire = &next
		return nil
	}
	return domain.NewNotFoundError("trigger", triggerID)
}

// DeliverWebhook routes an incoming webhook to the matching enabled
// trigger, per §4.4. Returns ok=false if no flow/trigger matches path and
// method.
func (s *Scheduler) DeliverWebhook(path, method string) (flow *domain.Flow, trigger domain.FlowTrigger, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sf := range s.flows {
		for _, st := range sf.Triggers {
			t := st.Trigger
			if t.Kind != domain.TriggerWebhook || !t.Enabled {
				continue
			}
			if t.Path == path && (t.Method == "" || t.Method == method) {
				return sf.Flow, t, true
			}
		}
	}
	return nil, domain.FlowTrigger{}, false
}

func computeNextFire(t domain.FlowTrigger, now time.Time) (time.Time, error) {
	schedule, err := validator.ParseCron(t.Expression)
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if t.Timezone != "" {
		if l, err := time.LoadLocation(t.Timezone); err == nil {
			loc = l
		}
	}
	return schedule.Next(now.In(loc)), nil
}

// Dispatcher is called once per ready fire during Run's tick loop.
type Dispatcher func(flow *domain.Flow, trigger domain.FlowTrigger)

// Run starts the cooperative tick loop: at each tickInterval it snapshots
// ready flows, hands each to dispatch, then advances next_fire. Run blocks
// until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context, dispatch Dispatcher) {
	s.stop = make(chan struct{})
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(now, dispatch)
		}
	}
}

func (s *Scheduler) tick(now time.Time, dispatch Dispatcher) {
	for _, fire := range s.ReadyFlows(now) {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Error().Interface("panic", p).Str("flow_id", fire.Flow.ID).Msg("trigger dispatch panicked")
				}
			}()
			dispatch(fire.Flow, fire.Trigger)
		}()
		if err := s.UpdateNext(fire.Flow.ID, fire.Trigger.ID, now); err != nil {
			log.Warn().Err(err).Str("flow_id", fire.Flow.ID).Str("trigger_id", fire.Trigger.ID).Msg("failed to advance next_fire")
		}
	}
}

// Stop ends a running tick loop started with Run.
func (s *Scheduler) Stop() {
	if s.stop != nil {
		close(s.stop)
	}
}
