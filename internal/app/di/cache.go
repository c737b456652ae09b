// Package di は設定からアプリケーションのコンポーネントを組み立てるファクトリを提供します。
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"product_backend/internal/platform/cache"
	"product_backend/internal/platform/redis"
)

// NewCache は設定に応じたバックエンドでキャッシュサービスを生成します。
// Redisを使う場合、返されるcloseでクライアントを閉じます。
func NewCache(ctx context.Context, cfg cache.Config, redisCfg redis.Config, reg prometheus.Registerer) (*cache.Service, func(), error) {
	var (
		backend cache.Backend
		closeFn = func() {}
	)

	switch cfg.Backend {
	case cache.BackendRedis:
		rdb, err := redis.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect cache backend: %w", err)
		}
		backend = cache.NewRedisBackend(rdb, cfg.Namespace)
		closeFn = closeRedis(rdb)
	case cache.BackendMemory, "":
		mem, err := cache.NewMemoryBackend(cfg.Memory)
		if err != nil {
			return nil, nil, fmt.Errorf("create memory cache: %w", err)
		}
		backend = mem
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	opts := []cache.Option{cache.WithLogger(slog.Default().With("component", "cache"))}
	if reg != nil {
		opts = append(opts, cache.WithMetrics(cache.NewMetrics(reg)))
	}

	slog.Info("cache backend selected", "backend", cfg.Backend, "default_ttl", cfg.DefaultTTL)
	return cache.NewService(backend, cfg.DefaultTTL, opts...), closeFn, nil
}

func closeRedis(rdb *goredis.Client) func() {
	return func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
}
