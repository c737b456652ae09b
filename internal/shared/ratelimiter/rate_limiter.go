package ratelimiter

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// RateLimiterInterface は、キー単位で操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Allow(key string) bool
}

// bucket はキーごとのトークンバケットと最終利用時刻（UnixNano）です。
type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter は、クライアントごと（IPアドレスなど）にトークンバケットを保持します。
// 一定時間使われていないバケットは Sweep で破棄されます。
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *xsync.MapOf[string, *bucket]
	now      func() time.Time
}

var _ RateLimiterInterface = (*RateLimiter)(nil)

// NewRateLimiter は1秒あたりrps回、最大burst回まで許可するRateLimiterを生成します。
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: xsync.NewMapOf[string, *bucket](),
		now:      time.Now,
	}
}

// Allow はkeyのバケットからトークンを1つ消費できればtrueを返します。
func (rl *RateLimiter) Allow(key string) bool {
	b, _ := rl.limiters.LoadOrCompute(key, func() *bucket {
		return &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	})
	b.lastSeen.Store(rl.now().UnixNano())
	return b.limiter.Allow()
}

// Sweep はidle以上使われていないバケットを削除し、削除した数を返します。
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := rl.now().Add(-idle).UnixNano()
	removed := 0
	rl.limiters.Range(func(key string, b *bucket) bool {
		if b.lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len は保持しているバケット数を返します。
func (rl *RateLimiter) Len() int {
	return rl.limiters.Size()
}

// StartSweeper はctxが終了するまでinterval毎にSweepを実行します。
func (rl *RateLimiter) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.Sweep(idle); n > 0 {
					slog.Debug("rate limiter buckets evicted", "count", n)
				}
			}
		}
	}()
}

// Middleware はクライアントIP単位でリクエストを制限するGinミドルウェアを返します。
// 上限を超えた場合は429を返して処理を中断します。
func Middleware(rl RateLimiterInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			slog.Warn("rate limit exceeded", "path", c.FullPath(), "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"statusCode": http.StatusTooManyRequests,
			})
			return
		}
		c.Next()
	}
}
