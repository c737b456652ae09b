package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryConfig configures the sturdyc-backed in-process backend.
type MemoryConfig struct {
	// Capacity is the maximum number of entries.
	Capacity int
	// NumShards controls lock striping inside sturdyc.
	NumShards int
	// MaxTTL is the sturdyc client TTL. Entries never outlive it, whatever ttl Set receives.
	MaxTTL time.Duration
	// EvictionPercentage is the share of entries evicted when Capacity is reached (1-100).
	EvictionPercentage int
}

// DefaultMemoryConfig returns the settings used when nothing is configured.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          64,
		MaxTTL:             time.Hour,
		EvictionPercentage: 10,
	}
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// Validate checks the configuration values.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// memoryEntry carries its own absolute expiry; sturdyc only knows one client-wide TTL.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend built on sturdyc.
type MemoryBackend struct {
	client *sturdyc.Client[memoryEntry]
	now    func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend validates cfg and creates the sturdyc client.
func NewMemoryBackend(cfg MemoryConfig) (*MemoryBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[memoryEntry](cfg.Capacity, cfg.NumShards, cfg.MaxTTL, cfg.EvictionPercentage)
	return &MemoryBackend{client: client, now: time.Now}, nil
}

// Get returns the entry unless it is absent or past its own expiry.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e, ok := b.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(e.expiresAt) {
		b.client.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores a copy of value that expires after ttl.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	b.client.Set(key, memoryEntry{value: buf, expiresAt: b.now().Add(ttl)})
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.client.Delete(key)
	return nil
}

// Ping always succeeds for the in-process backend.
func (b *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}
