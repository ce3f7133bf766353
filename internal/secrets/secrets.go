// Package secrets implements the §6 SecretsProvider consumer interface.
// The core excludes vault cryptography and storage backends by design
// (§1); this package supplies the narrow interface plus an in-memory
// implementation sufficient for tests and single-process deployments. The
// per-key metadata is a small supplement grounded on
// original_source/ghostflow-core/src/credentials.rs, which tracks
// created/rotated timestamps per credential — kept here as harmless
// bookkeeping, not as vault functionality.
package secrets

import (
	"context"
	"sync"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
)

// Provider is the §6 SecretsProvider contract.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

type entry struct {
	value     string
	createdAt time.Time
	updatedAt time.Time
}

// MemoryProvider is an in-memory Provider.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: make(map[string]*entry)}
}

func (p *MemoryProvider) Get(_ context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[key]
	if !ok {
		return "", domain.NewNotFoundError("secret", key)
	}
	return e.value, nil
}

func (p *MemoryProvider) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now().UTC()
	if e, ok := p.entries[key]; ok {
		e.value = value
		e.updatedAt = now
		return nil
	}
	p.entries[key] = &entry{value: value, createdAt: now, updatedAt: now}
	return nil
}

func (p *MemoryProvider) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[key]; !ok {
		return domain.NewNotFoundError("secret", key)
	}
	delete(p.entries, key)
	return nil
}

func (p *MemoryProvider) ListKeys(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

// RevealForFlow resolves the values of exactly the keys flow.Secrets
// declares, filtering out anything the flow did not request, per §3's
// ExecutionContext.secrets description ("filtered to Flow.secrets").
func RevealForFlow(ctx context.Context, p Provider, flow *domain.Flow) (map[string]string, error) {
	out := make(map[string]string, len(flow.Secrets))
	for _, key := range flow.Secrets {
		v, err := p.Get(ctx, key)
		if err != nil {
			continue // declared but unset secrets resolve absent, not fatal
		}
		out[key] = v
	}
	return out, nil
}
