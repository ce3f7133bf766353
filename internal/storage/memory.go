// Package storage implements §6's FlowStorage and ExecutionStorage
// consumer interfaces: an in-memory pair sufficient for tests (§1 says "an
// in-memory implementation suffices for tests"), plus a Postgres-backed
// pair built on uptrace/bun, grounded on the teacher's own
// BunStore/WorkflowModel pattern (internal/infrastructure/storage/bun_store.go
// in the teacher tree).
package storage

import (
	"context"
	"sync"

	"github.com/flowcore/flowcore/internal/domain"
)

// MemoryFlowStorage is a mutex-guarded map implementation of FlowStorage.
type MemoryFlowStorage struct {
	mu    sync.RWMutex
	flows map[string]*domain.Flow
}

func NewMemoryFlowStorage() *MemoryFlowStorage {
	return &MemoryFlowStorage{flows: make(map[string]*domain.Flow)}
}

func (s *MemoryFlowStorage) Save(_ context.Context, flow *domain.Flow) error {
	cp := *flow
	s.mu.Lock()
	s.flows[flow.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryFlowStorage) Get(_ context.Context, id string) (*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, domain.NewNotFoundError("flow", id)
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryFlowStorage) List(_ context.Context) ([]*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Flow, 0, len(s.flows))
	for _, f := range s.flows {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryFlowStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return domain.NewNotFoundError("flow", id)
	}
	delete(s.flows, id)
	return nil
}

// MemoryExecutionStorage is a mutex-guarded map implementation of
// ExecutionStorage.
type MemoryExecutionStorage struct {
	mu         sync.RWMutex
	executions map[string]*domain.FlowExecution
}

func NewMemoryExecutionStorage() *MemoryExecutionStorage {
	return &MemoryExecutionStorage{executions: make(map[string]*domain.FlowExecution)}
}

func (s *MemoryExecutionStorage) Save(_ context.Context, exec *domain.FlowExecution) error {
	cp := *exec
	s.mu.Lock()
	s.executions[exec.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryExecutionStorage) Get(_ context.Context, id string) (*domain.FlowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, domain.NewNotFoundError("execution", id)
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryExecutionStorage) UpdateStatus(_ context.Context, id string, status domain.ExecutionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return domain.NewNotFoundError("execution", id)
	}
	e.Status = status
	return nil
}

func (s *MemoryExecutionStorage) ListByFlow(_ context.Context, flowID string) ([]*domain.FlowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.FlowExecution
	for _, e := range s.executions {
		if e.FlowID == flowID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

var (
	_ domain.FlowStorage      = (*MemoryFlowStorage)(nil)
	_ domain.ExecutionStorage = (*MemoryExecutionStorage)(nil)
)
