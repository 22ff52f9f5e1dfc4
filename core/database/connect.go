package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/cbrbot/core/logger"
)

const (
	connectTimeout = 30 * time.Second
	retryInterval  = 2 * time.Second
)

// Connect opens the pool and waits until Postgres answers a ping, retrying for
// up to 30 seconds so the bot can start alongside its database container.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return connect(ctx, cfg, retryInterval)
}

func connect(ctx context.Context, cfg Config, every time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}

	start := time.Now()
	attempts := 0
	for {
		attempts++
		pingErr := db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		logger.DB.Debug("db not ready",
			slog.String("event", "db.connect"),
			slog.Int("attempt", attempts),
			slog.String("err", pingErr.Error()),
		)
		select {
		case <-ctx.Done():
			_ = db.Close()
			logger.DB.Error("db connect failed",
				slog.String("event", "db.connect"),
				slog.String("driver", "postgres"),
				slog.String("dsn", cfg.Redacted()),
				slog.Int("attempts", attempts),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
				slog.String("err", pingErr.Error()),
			)
			return nil, fmt.Errorf("db connect %s: %w", cfg, pingErr)
		case <-time.After(every):
		}
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return db, nil
}
