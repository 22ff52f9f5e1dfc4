package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/cbrbot/core/logger"
)

const (
	defaultRedisTTL    = 24 * time.Hour
	defaultRedisPrefix = "cbrbot:chat:"
)

// RedisOptions configures the Redis-backed Store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type redisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. Non-idle states expire after ttl
// so abandoned converter sessions do not pile up.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) Store {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &redisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *redisStore) key(chatID int64) string {
	return fmt.Sprintf("%s%d:state", s.prefix, chatID)
}

func (s *redisStore) GetState(ctx context.Context, chatID int64) (State, error) {
	val, err := s.rdb.Get(ctx, s.key(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("state: get chat %d: %w", chatID, err)
	}
	if val == "" {
		return StateIdle, nil
	}
	return State(val), nil
}

func (s *redisStore) SetState(ctx context.Context, chatID int64, st State) error {
	if st == StateIdle || st == "" {
		return s.ClearState(ctx, chatID)
	}
	if err := s.rdb.Set(ctx, s.key(chatID), string(st), s.ttl).Err(); err != nil {
		return fmt.Errorf("state: set chat %d: %w", chatID, err)
	}
	return nil
}

func (s *redisStore) ClearState(ctx context.Context, chatID int64) error {
	if err := s.rdb.Del(ctx, s.key(chatID)).Err(); err != nil {
		return fmt.Errorf("state: clear chat %d: %w", chatID, err)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// NewStore builds a Store for backend "memory" (default) or "redis".
// The returned close func releases backend resources and is never nil.
func NewStore(backend string, opts RedisOptions) (Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			logger.Store.Error("redis ping failed",
				slog.String("event", "state.connect"),
				slog.String("backend", "redis"),
				slog.String("host", opts.Addr),
				slog.String("err", err.Error()),
			)
			return nil, nil, fmt.Errorf("state: redis ping: %w", err)
		}
		logger.Store.Info("state store ready",
			slog.String("event", "state.connect"),
			slog.String("backend", "redis"),
			slog.String("host", opts.Addr),
		)
		return NewRedisStore(rdb, opts.Prefix, opts.TTL), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
