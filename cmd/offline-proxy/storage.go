package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/Sternrassler/offline-cache/pkg/worker"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// openStorage connects the configured backend. The returned close function
// is never nil.
func openStorage(ctx context.Context, opts GlobalOptions) (cache.Storage, func() error, error) {
	logger := logging.NewLogger(logging.ComponentProxy)

	if opts.RedisURL == "" {
		logger.Warn().Msg("No Redis configured, stores are kept in memory")
		return cache.NewMemory(), func() error { return nil }, nil
	}

	redisOpts, err := redisOptions(opts.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	redisClient := redis.NewClient(redisOpts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return redisClient.Ping(pingCtx).Err()
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Str("addr", redisOpts.Addr).Msg("Redis not reachable")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, opts.ConnectRetries), ctx)
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
	}

	logger.Info().Str("addr", redisOpts.Addr).Str("prefix", opts.RedisPrefix).Msg("Connected to Redis")
	return cache.NewRedisWithPrefix(redisClient, opts.RedisPrefix), redisClient.Close, nil
}

// redisOptions accepts a bare host:port or a redis:// URL.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// loadConfig reads the worker configuration file, if any, and applies the
// origin override.
func loadConfig(opts GlobalOptions) (worker.Config, error) {
	cfg := worker.DefaultConfig()
	if opts.ConfigFile != "" {
		f, err := os.Open(opts.ConfigFile)
		if err != nil {
			return worker.Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		cfg, err = worker.LoadConfig(f)
		if err != nil {
			return worker.Config{}, fmt.Errorf("load %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Origin != "" {
		cfg.Origin = opts.Origin
	}
	if err := cfg.Validate(); err != nil {
		return worker.Config{}, err
	}
	return cfg, nil
}
