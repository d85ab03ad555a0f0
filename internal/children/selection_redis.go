package children

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SelectionStore remembers the last selected child of a parent across sessions.
type SelectionStore interface {
	SaveSelection(ctx context.Context, parentID, childID int64) error
	LoadSelection(ctx context.Context, parentID int64) (childID int64, found bool, err error)
	ClearSelection(ctx context.Context, parentID int64) error
}

const selectionTTL = 30 * 24 * time.Hour

type RedisSelectionStore struct {
	client *redis.Client
}

// NewRedisSelectionStore connects to redisURL (redis://host:port/db) and
// verifies the connection.
func NewRedisSelectionStore(redisURL, password string) (*RedisSelectionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSelectionStore{client: rdb}, nil
}

// NewRedisSelectionStoreFromClient wraps an existing client. A nil client
// gives a store where every call is a no-op.
func NewRedisSelectionStoreFromClient(client *redis.Client) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

func selectionKey(parentID int64) string {
	return fmt.Sprintf("seleccion:padre:%d", parentID)
}

func (r *RedisSelectionStore) SaveSelection(ctx context.Context, parentID, childID int64) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Set(ctx, selectionKey(parentID), childID, selectionTTL).Err()
}

func (r *RedisSelectionStore) LoadSelection(ctx context.Context, parentID int64) (int64, bool, error) {
	if r == nil || r.client == nil {
		return 0, false, nil
	}
	val, err := r.client.Get(ctx, selectionKey(parentID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid stored selection %q: %w", val, err)
	}
	return id, true, nil
}

func (r *RedisSelectionStore) ClearSelection(ctx context.Context, parentID int64) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Del(ctx, selectionKey(parentID)).Err()
}

func (r *RedisSelectionStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
