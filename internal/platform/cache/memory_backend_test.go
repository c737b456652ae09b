package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(c *MemoryConfig)
		wantField string
	}{
		{name: "defaults are valid", mutate: func(*MemoryConfig) {}},
		{name: "zero capacity", mutate: func(c *MemoryConfig) { c.Capacity = 0 }, wantField: "Capacity"},
		{name: "zero shards", mutate: func(c *MemoryConfig) { c.NumShards = 0 }, wantField: "NumShards"},
		{name: "zero max ttl", mutate: func(c *MemoryConfig) { c.MaxTTL = 0 }, wantField: "MaxTTL"},
		{name: "eviction too high", mutate: func(c *MemoryConfig) { c.EvictionPercentage = 101 }, wantField: "EvictionPercentage"},
		{name: "eviction zero", mutate: func(c *MemoryConfig) { c.EvictionPercentage = 0 }, wantField: "EvictionPercentage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultMemoryConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestNewMemoryBackend_InvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := NewMemoryBackend(MemoryConfig{})
	assert.Error(t, err)
}

func TestMemoryBackend_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, err := NewMemoryBackend(DefaultMemoryConfig())
	require.NoError(t, err)

	_, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("hello")
	require.NoError(t, b.Set(ctx, "k", value, time.Minute))
	// 呼び出し元のバッファを書き換えても保存値は変わらない
	value[0] = 'j'

	got, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, b.Delete(ctx, "k"))
	_, found, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

// TestMemoryBackend_EntryExpiry はエントリごとのTTLが尊重されることを検証します。
func TestMemoryBackend_EntryExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, err := NewMemoryBackend(DefaultMemoryConfig())
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	require.NoError(t, b.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, b.Set(ctx, "long", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)

	_, found, err := b.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found, "short-lived entry should have expired")

	_, found, err = b.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryBackend_CanceledContext(t *testing.T) {
	t.Parallel()
	b, err := NewMemoryBackend(DefaultMemoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v"), time.Minute), context.Canceled)
	assert.ErrorIs(t, b.Delete(ctx, "k"), context.Canceled)
	assert.ErrorIs(t, b.Ping(ctx), context.Canceled)
	assert.NoError(t, b.Ping(context.Background()))
}
