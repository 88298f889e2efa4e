package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store, suitable for a clustered broker
// where session records must be visible to whichever node accepts a
// client's next reconnect.
type RedisStore struct {
	client *redis.Client
	mu     sync.RWMutex
	closed bool
	ttl    time.Duration // optional TTL for keys
	prefix string
	index  string // set key indexing all client IDs
}

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // optional prefix for keys
	TTL      time.Duration // optional TTL for keys (0 = no TTL)
	Options  *redis.Options
}

// NewRedisStore connects to Redis and returns a session record store.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	var client *redis.Client

	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "session:"
	}

	return &RedisStore{
		client: client,
		ttl:    config.TTL,
		prefix: prefix,
		index:  prefix + "index",
	}, nil
}

// makeKey creates a Redis key with the prefix
func (r *RedisStore) makeKey(clientID string) string {
	return r.prefix + clientID
}

// Save stores or updates a record.
func (r *RedisStore) Save(ctx context.Context, clientID string, record Record) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	fullKey := r.makeKey(clientID)

	pipe := r.client.Pipeline()

	if r.ttl > 0 {
		pipe.Set(ctx, fullKey, data, r.ttl)
	} else {
		pipe.Set(ctx, fullKey, data, 0)
	}

	pipe.SAdd(ctx, r.index, clientID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Load retrieves a record by client ID.
func (r *RedisStore) Load(ctx context.Context, clientID string) (Record, error) {
	var zero Record
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return zero, ErrStoreClosed
	}
	r.mu.RUnlock()

	fullKey := r.makeKey(clientID)
	data, err := r.client.Get(ctx, fullKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to load record: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return zero, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return record, nil
}

// Delete removes a record.
func (r *RedisStore) Delete(ctx context.Context, clientID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	fullKey := r.makeKey(clientID)

	pipe := r.client.Pipeline()
	pipe.Del(ctx, fullKey)
	pipe.SRem(ctx, r.index, clientID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// Exists checks if a record exists for the given client ID.
func (r *RedisStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false, ErrStoreClosed
	}
	r.mu.RUnlock()

	fullKey := r.makeKey(clientID)
	count, err := r.client.Exists(ctx, fullKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return count > 0, nil
}

// List returns every client ID with a stored record.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	r.mu.RUnlock()

	clientIDs, err := r.client.SMembers(ctx, r.index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return clientIDs, nil
}

// Close closes the store.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	r.closed = true
	return r.client.Close()
}

// Count returns the total number of stored records.
func (r *RedisStore) Count(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrStoreClosed
	}
	r.mu.RUnlock()

	count, err := r.client.SCard(ctx, r.index).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return count, nil
}
