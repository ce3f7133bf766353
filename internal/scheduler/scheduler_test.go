package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cronFlow(id, expr string) *domain.Flow {
	f := domain.NewFlow(id, "Cron Flow", "1.0.0")
	f.AddNode(domain.FlowNode{ID: "n1", NodeType: "noop"})
	_ = f.AddTrigger(domain.FlowTrigger{ID: "t1", Kind: domain.TriggerCron, Enabled: true, Expression: expr})
	return f
}

func TestScheduleComputesNextFireForCronTrigger(t *testing.T) {
	s := New(time.Second)
	f := cronFlow("f1", "* * * * *")
	now := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	require.NoError(t, s.Schedule(f, now))

	ready := s.ReadyFlows(now.Add(30 * time.Second))
	require.Len(t, ready, 1)
	assert.Equal(t, "f1", ready[0].Flow.ID)
}

func TestManualAndWebhookTriggersNeverReadyOnTheirOwn(t *testing.T) {
	s := New(time.Second)
	f := domain.NewFlow("f1", "Manual", "1.0.0")
	f.AddNode(domain.FlowNode{ID: "n1", NodeType: "noop"})
	_ = f.AddTrigger(domain.FlowTrigger{ID: "t1", Kind: domain.TriggerManual, Enabled: true})
	require.NoError(t, s.Schedule(f, time.Now()))

	ready := s.ReadyFlows(time.Now().Add(time.Hour))
	assert.Empty(t, ready)
}

func TestUnscheduleRemovesFlow(t *testing.T) {
	s := New(time.Second)
	f := cronFlow("f1", "* * * * *")
	now := time.Now()
	require.NoError(t, s.Schedule(f, now))
	s.Unschedule("f1")
	assert.Empty(t, s.ReadyFlows(now.Add(time.Hour)))
}

// S7: a trigger that should have fired many times while the scheduler was
// paused produces exactly one ready fire, and its recomputed next_fire
// lands strictly after "now" -- the missed-tick coalescing guarantee.
func TestMissedTickCoalescing(t *testing.T) {
	s := New(time.Second)
	f := cronFlow("f1", "* * * * *")
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Schedule(f, past))

	// Simulate the scheduler having been paused for an hour: many minutely
	// fires were missed.
	now := past.Add(time.Hour)
	ready := s.ReadyFlows(now)
	require.Len(t, ready, 1, "must coalesce all missed fires into exactly one")

	require.NoError(t, s.UpdateNext("f1", "t1", now))
	readyAgain := s.ReadyFlows(now)
	assert.Empty(t, readyAgain, "next_fire recomputed from now must land strictly after now")
}

func TestUpdateNextUnknownFlowOrTrigger(t *testing.T) {
	s := New(time.Second)
	assert.Error(t, s.UpdateNext("missing", "t1", time.Now()))

	f := cronFlow("f1", "* * * * *")
	require.NoError(t, s.Schedule(f, time.Now()))
	assert.Error(t, s.UpdateNext("f1", "missing-trigger", time.Now()))
}

func TestDeliverWebhookMatchesPathAndMethod(t *testing.T) {
	s := New(time.Second)
	f := domain.NewFlow("f1", "Webhook", "1.0.0")
	f.AddNode(domain.FlowNode{ID: "n1", NodeType: "noop"})
	_ = f.AddTrigger(domain.FlowTrigger{ID: "t1", Kind: domain.TriggerWebhook, Enabled: true, Path: "/hooks/in", Method: "POST"})
	require.NoError(t, s.Schedule(f, time.Now()))

	flow, trig, ok := s.DeliverWebhook("/hooks/in", "POST")
	require.True(t, ok)
	assert.Equal(t, "f1", flow.ID)
	assert.Equal(t, "t1", trig.ID)

	_, _, ok2 := s.DeliverWebhook("/hooks/in", "GET")
	assert.False(t, ok2)

	_, _, ok3 := s.DeliverWebhook("/hooks/other", "POST")
	assert.False(t, ok3)
}

func TestDeliverWebhookAnyMethodWhenUnset(t *testing.T) {
	s := New(time.Second)
	f := domain.NewFlow("f1", "Webhook", "1.0.0")
	f.AddNode(domain.FlowNode{ID: "n1", NodeType: "noop"})
	_ = f.AddTrigger(domain.FlowTrigger{ID: "t1", Kind: domain.TriggerWebhook, Enabled: true, Path: "/hooks/in"})
	require.NoError(t, s.Schedule(f, time.Now()))

	_, _, ok := s.DeliverWebhook("/hooks/in", "PUT")
	assert.True(t, ok)
}

func TestRunDispatchesOnTickAndStopsOnContextCancel(t *testing.T) {
	s := New(20 * time.Millisecond)
	f := cronFlow("f1", "* * * * * *")
	require.NoError(t, s.Schedule(f, time.Now().Add(-time.Second)))

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(flow *domain.Flow, trigger domain.FlowTrigger) {
			atomic.AddInt32(&calls, 1)
		})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.True(t, atomic.LoadInt32(&calls) >= 1)
}

func TestRunDispatchRecoversFromPanic(t *testing.T) {
	s := New(20 * time.Millisecond)
	f := cronFlow("f1", "* * * * * *")
	require.NoError(t, s.Schedule(f, time.Now().Add(-time.Second)))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	assert.NotPanics(t, func() {
		s.Run(ctx, func(flow *domain.Flow, trigger domain.FlowTrigger) {
			panic("dispatch exploded")
		})
	})
}
