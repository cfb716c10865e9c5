package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assetproxy/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// 数据库只承载删除审计，写入量很低。
const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Connect 建立到 PostgreSQL 的连接并执行基础健康检查。
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.DBHost == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("DB_HOST and DB_NAME are required when AUDIT_ENABLED is true")
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}

	return db, nil
}
