package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assetproxy/internal/api"
	"assetproxy/internal/assets"
	"assetproxy/internal/audit"
	auditpg "assetproxy/internal/audit/postgres"
	"assetproxy/internal/config"
	"assetproxy/internal/database"
	"assetproxy/internal/logging"
	"assetproxy/internal/migrations"
	"assetproxy/pkg/assetclient"
	"assetproxy/pkg/imagerules"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthCheck())
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("配置加载完成，开始启动服务", "env", cfg.AppEnv, "driver", cfg.ProviderDriver)

	if err := run(cfg, logger); err != nil {
		logger.Error("服务异常退出", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	media, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init media provider: %w", err)
	}

	recorder, db, err := newRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	policy, err := assets.ParseSuccessPolicy(cfg.DeleteSuccessPolicy)
	if err != nil {
		return err
	}

	svc := assets.NewService(media, recorder, logger, assets.Options{
		DefaultFolder: cfg.DefaultFolder,
		DefaultLimit:  cfg.DefaultPageLimit,
		MaxLimit:      cfg.MaxPageLimit,
		MaxSkipPages:  cfg.MaxSkipPages,
		SuccessPolicy: policy,
		UploadRules: imagerules.Rules{
			AllowedTypes: imagerules.DefaultAllowedTypes,
			MaxSize:      cfg.MaxUploadSize,
		},
	})

	router := api.NewRouter(cfg, logger, api.NewAssetHandler(svc, logger))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		Handler:           router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务监听端口", "addr", srv.Addr, "provider", media.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("监听失败: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("优雅关闭失败", "error", err)
	}

	logger.Info("服务已停止")
	return nil
}

// newRecorder 在开启审计时连接 PostgreSQL 并执行迁移。
func newRecorder(ctx context.Context, cfg *config.Config) (audit.Recorder, *sql.DB, error) {
	if !cfg.AuditEnabled {
		return audit.Noop{}, nil, nil
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	return auditpg.NewDeletionRepository(db), db, nil
}

// runHealthCheck 请求本机 /health，供容器健康检查使用。
func runHealthCheck() int {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := assetclient.New("http://localhost:"+port, assetclient.WithTimeout(5*time.Second)).Ping(ctx)
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Health check failed: %s\n", resp.Error)
		return 1
	}
	return 0
}
