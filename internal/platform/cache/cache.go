package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultTTL applies when neither Set nor the Service configuration gives one.
const DefaultTTL = 5 * time.Minute

// Service is the cache-aside accelerator. It JSON-encodes values, tracks every key
// it has written so that RemoveByPrefix works on backends without prefix scans,
// and never turns a backend failure into a request failure on the read path.
//
// Ordering: Set records the key in the index before writing the backend and records it
// again after the write succeeds, and removals delete from the backend before dropping the
// index entry. A removal that overlaps a Set can therefore not strand a written value
// outside the index.
type Service struct {
	backend    Backend
	defaultTTL time.Duration
	keys       *xsync.MapOf[string, struct{}]
	metrics    *Metrics
	logger     *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService wraps backend. A non-positive defaultTTL falls back to DefaultTTL.
func NewService(backend Backend, defaultTTL time.Duration, opts ...Option) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	s := &Service{
		backend:    backend,
		defaultTTL: defaultTTL,
		keys:       xsync.NewMapOf[string, struct{}](),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get decodes the cached value for key into dest and reports whether it did.
// Backend errors and undecodable entries count as misses.
func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	b, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", "key", key, "error", err)
		s.metrics.observe(resultError)
		return false
	}
	if !found || len(b) == 0 {
		s.metrics.observe(resultMiss)
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		s.logger.Warn("cache entry has unexpected shape", "key", key, "error", err)
		s.metrics.observe(resultMiss)
		// 壊れたエントリは削除しておく
		_ = s.Remove(ctx, key)
		return false
	}
	s.metrics.observe(resultHit)
	return true
}

// Set stores value under key for ttl (DefaultTTL when ttl <= 0).
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	s.keys.Store(key, struct{}{})
	if err := s.backend.Set(ctx, key, b, ttl); err != nil {
		s.metrics.observe(resultError)
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	// 書き込み中に並行して削除されたインデックスを復元する
	s.keys.Store(key, struct{}{})
	return nil
}

// Remove deletes a single entry. The index entry survives a failed backend delete.
func (s *Service) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.metrics.observe(resultError)
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	s.keys.Delete(key)
	return nil
}

// RemoveByPrefix deletes every indexed key starting with prefix.
// Keys added concurrently with the scan may be missed; their own TTL still bounds them.
func (s *Service) RemoveByPrefix(ctx context.Context, prefix string) error {
	var matched []string
	s.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
		return true
	})

	var errs []error
	removed := 0
	for _, key := range matched {
		if err := s.Remove(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	s.metrics.invalidated(removed)
	return errors.Join(errs...)
}

// Ping checks the backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// TrackedKeys returns the number of keys currently in the index.
func (s *Service) TrackedKeys() int {
	return s.keys.Size()
}
