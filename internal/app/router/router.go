// Package router はHTTPルーティングとミドルウェアの構成を提供します。
package router

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "product_backend/internal/feature/auth/transport/handler"
	producthandler "product_backend/internal/feature/product/transport/handler"
	"product_backend/internal/platform/http/handler"
	jwtmw "product_backend/internal/platform/jwt"
	"product_backend/internal/shared/ratelimiter"
)

// Deps はルーターが必要とするハンドラーと設定です。
type Deps struct {
	Auth     *authhandler.AuthHandler
	Products *producthandler.ProductHandler

	JWTSecret      string
	AllowedOrigins []string
	// TrustedProxies が空の場合、X-Forwarded-For は信頼せず接続元アドレスをクライアントIPとします。
	TrustedProxies []string
	AuthLimiter    ratelimiter.RateLimiterInterface
	ReadyChecks    []handler.Check
	// Gatherer がnilの場合、/metrics は公開しません。
	Gatherer prometheus.Gatherer
}

// NewRouter はルートを登録したGinエンジンを返します。
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	r.Use(gin.Logger(), gin.Recovery())

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.GET("/readyz", handler.Readiness(d.ReadyChecks...))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// 登録・ログインはIP単位で頻度を制限
	auth := r.Group("/auth")
	if d.AuthLimiter != nil {
		auth.Use(ratelimiter.Middleware(d.AuthLimiter))
	}
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
	}

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	products := r.Group("/products")
	products.Use(jwtmw.AuthRequired(d.JWTSecret))
	{
		products.GET("", d.Products.List)
		products.GET("/:id", d.Products.Get)
		products.POST("", d.Products.Create)
		products.PUT("/:id", d.Products.Update)
		products.DELETE("/:id", d.Products.Delete)
	}

	return r, nil
}
