package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"phoneverifier/internal/config"
)

// Open connects to Postgres with the configured driver: "postgres" uses
// database/sql with lib/pq, "pgx" uses a native pgx pool.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (DBPool, error) {
	var pool DBPool
	switch cfg.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
		pool = SQLPool{DB: db}
	case "pgx":
		pcfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse pgx config: %w", err)
		}
		if cfg.MaxConns > 0 {
			pcfg.MaxConns = int32(cfg.MaxConns)
		}
		p, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("open pgx pool: %w", err)
		}
		pool = PgxPool{Pool: p}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connected", zap.String("driver", cfg.Driver))
	return pool, nil
}
