package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "datagen:session:"

// RedisStore shares session table names between server processes. Each
// session is a Redis set of table names that expires after ttl of
// inactivity. Row snapshots stay in the process that generated them and
// are dropped with the Redis key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]*memoryEntry
	now   func() time.Time
}

// NewRedisStore connects to the Redis server at url and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, local: make(map[string]*memoryEntry), now: time.Now}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	key := keyPrefix + id
	names, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A missing key means the session expired or never existed.
	if len(names) == 0 {
		delete(r.local, id)
		return WithID(id), nil
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return nil, fmt.Errorf("failed to refresh session %s: %w", id, err)
		}
	}

	entry, ok := r.local[id]
	if !ok {
		entry = &memoryEntry{session: WithID(id)}
		r.local[id] = entry
	}
	entry.used = r.now()
	for _, name := range names {
		entry.session.Mark(name)
	}
	return entry.session, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	key := keyPrefix + s.ID
	names := s.Tables()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(names) > 0 {
		members := make([]interface{}, len(names))
		for i, name := range names {
			members[i] = name
		}
		pipe.SAdd(ctx, key, members...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, e := range r.local {
		if r.ttl > 0 && now.Sub(e.used) >= r.ttl {
			delete(r.local, id)
		}
	}
	if len(names) == 0 {
		delete(r.local, s.ID)
		return nil
	}
	r.local[s.ID] = &memoryEntry{session: s, used: now}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.local, id)
	r.mu.Unlock()

	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
