package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"

	"product_backend/internal/app/di"
	"product_backend/internal/app/router"
	authhandler "product_backend/internal/feature/auth/transport/handler"
	producthandler "product_backend/internal/feature/product/transport/handler"
	"product_backend/internal/platform/config"
	"product_backend/internal/platform/db"
	"product_backend/internal/platform/http/handler"
	"product_backend/internal/shared/ratelimiter"
)

const (
	// shutdownTimeout は処理中のリクエストの完了を待つ上限時間です。
	shutdownTimeout = 10 * time.Second

	// 認証エンドポイントのレート制限バケットの掃除間隔と破棄までの無操作時間
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// .envは任意。存在しない場合は環境変数のみを使う
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// cache
	cacheSvc, closeCache, err := di.NewCache(ctx, cfg.Cache, cfg.Redis, reg)
	if err != nil {
		return err
	}
	defer closeCache()

	d := di.NewDispatcher(gdb, cacheSvc, di.AuthSettings{
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiration: cfg.Auth.JWTExpiration,
		BcryptCost:    bcrypt.DefaultCost,
	})

	authLimiter := ratelimiter.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	authLimiter.StartSweeper(ctx, limiterSweepInterval, limiterIdleTTL)

	// ルータ生成
	engine, err := router.NewRouter(router.Deps{
		Auth:           authhandler.NewAuthHandler(d),
		Products:       producthandler.NewProductHandler(d),
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		AuthLimiter:    authLimiter,
		ReadyChecks: []handler.Check{
			{Name: "database", Ping: func(ctx context.Context) error { return db.Ping(ctx, gdb) }},
			{Name: "cache", Ping: cacheSvc.Ping},
		},
		Gatherer: reg,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
