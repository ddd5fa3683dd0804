package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "framebridge:mount:"

// RedisBackend stores each mount as a Redis hash of relative path to file
// contents.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithPrefix sets the key prefix for mounts.
func WithPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// NewRedisBackend connects to a Redis server.
func NewRedisBackend(address, password string, db int, opts ...RedisOption) *RedisBackend {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisBackendFromClient(rdb, opts...)
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Key returns the hash key used for mount.
func (b *RedisBackend) Key(mount string) string {
	return b.prefix + mountKey(mount)
}

// SyncIn writes every stored file of mount into the mount directory.
func (b *RedisBackend) SyncIn(ctx context.Context, mount string) error {
	if err := ensureMount(mount); err != nil {
		return err
	}
	stored, err := b.client.HGetAll(ctx, b.Key(mount)).Result()
	if err != nil {
		return fmt.Errorf("redis hgetall: %w", err)
	}
	files := make(map[string][]byte, len(stored))
	for rel, content := range stored {
		files[rel] = []byte(content)
	}
	return writeTree(ctx, mount, files)
}

// SyncOut replaces the stored hash with the current mount contents in a
// single transaction.
func (b *RedisBackend) SyncOut(ctx context.Context, mount string) error {
	if err := ensureMount(mount); err != nil {
		return err
	}
	files, err := readTree(ctx, mount)
	if err != nil {
		return err
	}

	key := b.Key(mount)
	fields := make(map[string]interface{}, len(files))
	for rel, data := range files {
		fields[rel] = data
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis export: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
