package prefs

import (
	"context"
	"testing"

	"github.com/ashureev/shopagent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentModeDefaultsOff(t *testing.T) {
	assert.False(t, New(store.NewMemory()).AgentMode(context.Background()))
}

func TestSetAgentModeWritesBothKeys(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	p := New(kv)

	require.NoError(t, p.SetAgentMode(ctx, true))
	assert.True(t, p.AgentMode(ctx))
	for _, key := range []string{store.KeyAgentMode, store.KeyAIModeEnabled} {
		v, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "true", v)
	}

	require.NoError(t, p.SetAgentMode(ctx, false))
	assert.False(t, p.AgentMode(ctx))
}

func TestEitherLegacyKeyEnables(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, store.KeyAIModeEnabled, "true"))
	assert.True(t, New(kv).AgentMode(ctx))
}
