package secrets

import (
	"context"
	"testing"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderSetGetDelete(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	_, err := p.Get(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, p.Set(ctx, "api_key", "v1"))
	v, err := p.Get(ctx, "api_key")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	require.NoError(t, p.Set(ctx, "api_key", "v2"))
	v2, err := p.Get(ctx, "api_key")
	require.NoError(t, err)
	assert.Equal(t, "v2", v2)

	require.NoError(t, p.Delete(ctx, "api_key"))
	_, err = p.Get(ctx, "api_key")
	assert.Error(t, err)

	assert.Error(t, p.Delete(ctx, "api_key"))
}

func TestMemoryProviderListKeys(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, p.Set(ctx, "a", "1"))
	require.NoError(t, p.Set(ctx, "b", "2"))
	keys, err := p.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestRevealForFlowFiltersToDeclaredKeys(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	require.NoError(t, p.Set(ctx, "used", "secret-value"))
	require.NoError(t, p.Set(ctx, "unused", "should-not-appear"))

	flow := domain.NewFlow("f1", "F", "1.0.0")
	flow.Secrets = []string{"used", "never_set"}

	revealed, err := RevealForFlow(ctx, p, flow)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"used": "secret-value"}, revealed)
}
