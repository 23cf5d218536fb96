package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session keys so the backend can share a
// database with other workloads.
const redisKeyPrefix = "courier:session:"

// RedisOptions are the connection parameters for the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisBackend persists sessions in Redis as JSON strings. When an expiry
// window is configured the same window is also set as the key TTL, so Redis
// evicts dead sessions on its own; the Store still applies lazy expiry on
// top, keeping semantics identical across backends.
type RedisBackend struct {
	opts      RedisOptions
	expiresIn time.Duration
	client    *redis.Client
}

// NewRedisBackend creates a redis-backed session backend.
func NewRedisBackend(opts RedisOptions, expiresIn time.Duration) *RedisBackend {
	return &RedisBackend{opts: opts, expiresIn: expiresIn}
}

// Init connects and pings the server.
func (b *RedisBackend) Init(ctx context.Context) error {
	if b.client != nil {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     b.opts.Addr,
		Password: b.opts.Password,
		DB:       b.opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis: %w", err)
	}
	b.client = client
	return nil
}

// Get returns the decoded document for key, or (nil, nil) when absent.
func (b *RedisBackend) Get(ctx context.Context, key string) (*Session, error) {
	raw, err := b.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Set upserts the document, refreshing the key TTL when one is configured.
func (b *RedisBackend) Set(ctx context.Context, key string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := b.client.Set(ctx, redisKeyPrefix+key, raw, b.expiresIn).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the key; absent keys are fine.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List scans the session namespace and decodes every document.
func (b *RedisBackend) List(ctx context.Context) (map[string]*Session, error) {
	out := make(map[string]*Session)
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		raw, err := b.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", fullKey, err)
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", fullKey, err)
		}
		out[fullKey[len(redisKeyPrefix):]] = &sess
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return out, nil
}

// Close closes the client connection pool.
func (b *RedisBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
