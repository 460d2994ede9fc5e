package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultPrefix namespaces all Redis keys written by RedisStorage.
const DefaultPrefix = "offline"

// RedisStorage keeps stores in Redis.
//
// Store names live in a sorted set scored by creation time, so Keys returns
// them in creation order. Each store is one hash keyed by request identity.
type RedisStorage struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedis creates a Redis backed storage using DefaultPrefix.
func NewRedis(redisClient *redis.Client) *RedisStorage {
	return NewRedisWithPrefix(redisClient, DefaultPrefix)
}

// NewRedisWithPrefix creates a Redis backed storage under a custom key prefix.
func NewRedisWithPrefix(redisClient *redis.Client, prefix string) *RedisStorage {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStorage{
		redis:  redisClient,
		prefix: prefix,
		logger: logging.NewLogger(logging.ComponentCache).With().Str("prefix", prefix).Logger(),
	}
}

func (r *RedisStorage) namesKey() string {
	return r.prefix + ":stores"
}

func (r *RedisStorage) storeKey(name string) string {
	return r.prefix + ":store:" + name
}

func (r *RedisStorage) nameMember(name string) redis.Z {
	return redis.Z{Score: float64(time.Now().UnixMicro()), Member: name}
}

// Open registers the store name if absent and returns a handle.
func (r *RedisStorage) Open(ctx context.Context, name string) (Store, error) {
	if err := r.redis.ZAddNX(ctx, r.namesKey(), r.nameMember(name)).Err(); err != nil {
		CacheErrors.WithLabelValues("open").Inc()
		return nil, fmt.Errorf("redis zadd: %w", err)
	}
	return &redisStore{storage: r, name: name}, nil
}

// Has reports whether the store name is registered.
func (r *RedisStorage) Has(ctx context.Context, name string) (bool, error) {
	err := r.redis.ZScore(ctx, r.namesKey(), name).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	CacheErrors.WithLabelValues("keys").Inc()
	return false, fmt.Errorf("redis zscore: %w", err)
}

// Keys lists store names in creation order.
func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := r.redis.ZRange(ctx, r.namesKey(), 0, -1).Result()
	if err != nil {
		CacheErrors.WithLabelValues("keys").Inc()
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	return names, nil
}

// Delete drops the store hash and its name in one transaction.
func (r *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, r.namesKey(), name)
		pipe.Del(ctx, r.storeKey(name))
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return false, fmt.Errorf("redis delete store: %w", err)
	}
	r.logger.Debug().Str("store", name).Int64("removed", removed.Val()).Msg("Deleted store")
	return removed.Val() > 0, nil
}

type redisStore struct {
	storage *RedisStorage
	name    string
}

func (s *redisStore) Name() string {
	return s.name
}

// Match retrieves the entry stored for req.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *redisStore) Match(ctx context.Context, req *http.Request) (*Entry, error) {
	key, err := keyForRequest(req)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.redis.HGet(ctx, s.storage.storeKey(s.name), key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(s.name).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("match").Inc()
		return nil, fmt.Errorf("redis hget: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues("match").Inc()
		s.storage.logger.Warn().Err(err).Str("store", s.name).Str("key", key.String()).Msg("Corrupt cache entry")
		return nil, err
	}

	CacheHits.WithLabelValues(s.name).Inc()
	return entry, nil
}

// Put stores entry under the identity of req.
func (s *redisStore) Put(ctx context.Context, req *http.Request, entry *Entry) error {
	key, err := keyForRequest(req)
	if err != nil {
		return err
	}
	if entry == nil {
		return errNilEntry
	}
	return s.putAll(ctx, []*Entry{bindEntry(entry, key)})
}

// PutAll writes all entries in one MULTI/EXEC so a batch lands completely or not at all.
func (s *redisStore) PutAll(ctx context.Context, entries []*Entry) error {
	bound := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		key, err := keyForEntry(e)
		if err != nil {
			return err
		}
		bound = append(bound, bindEntry(e, key))
	}
	return s.putAll(ctx, bound)
}

func (s *redisStore) putAll(ctx context.Context, entries []*Entry) error {
	fields := make([]interface{}, 0, 2*len(entries))
	for _, e := range entries {
		data, err := encodeEntry(e)
		if err != nil {
			CacheErrors.WithLabelValues("put").Inc()
			return err
		}
		fields = append(fields, e.Key().String(), data)
	}

	_, err := s.storage.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, s.storage.namesKey(), s.storage.nameMember(s.name))
		if len(fields) > 0 {
			pipe.HSet(ctx, s.storage.storeKey(s.name), fields...)
		}
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis hset: %w", err)
	}

	recordWrite(s.name, entries...)
	return nil
}
