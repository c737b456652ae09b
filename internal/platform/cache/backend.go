// Package cache provides the cache-aside accelerator shared by read and write handlers.
// Values are JSON-encoded and held by a pluggable Backend (Redis or in-process).
package cache

import (
	"context"
	"time"
)

// Backend is the raw byte store behind Service.
// Implementations report absence with found=false and a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Backend kinds accepted by Config.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds cache settings loaded from the environment.
type Config struct {
	// Backend is BackendRedis or BackendMemory.
	Backend string
	// DefaultTTL is used when Set is called with a non-positive ttl.
	DefaultTTL time.Duration
	// Memory configures the in-process backend.
	Memory MemoryConfig
	// Namespace prefixes every key written to Redis.
	Namespace string
}
