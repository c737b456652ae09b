// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"product_backend/internal/api"
)

// readinessTimeout は依存先ごとの疎通確認の上限時間です。
const readinessTimeout = 2 * time.Second

// Check は準備状態の確認対象です。
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 依存先は確認せず、プロセスが応答できることだけを返します。
func Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
	}
}

// Readiness は /readyz エンドポイントのハンドラーを返します。
// いずれかの確認が失敗した場合は503を返します。
func Readiness(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		results := make(map[string]string, len(checks))
		status := http.StatusOK
		for _, chk := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			err := chk.Ping(ctx)
			cancel()
			if err != nil {
				slog.Warn("readiness check failed", "check", chk.Name, "error", err)
				results[chk.Name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[chk.Name] = "ok"
		}

		body := api.StatusResponse{Status: "ok", Checks: results}
		if status != http.StatusOK {
			body.Status = "unavailable"
		}
		c.JSON(status, body)
	}
}
