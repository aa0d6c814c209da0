package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"hairstudio/internal/domain"
	"hairstudio/internal/workflow"
)

const keyPrefix = "hairstudio:session:"

// Store persists workflow snapshots between process restarts.
type Store interface {
	Save(ctx context.Context, snap workflow.Snapshot) error
	Load(ctx context.Context, id string) (*workflow.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps one JSON snapshot per session with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return keyPrefix + strings.TrimSpace(id)
}

func (s *RedisStore) Save(ctx context.Context, snap workflow.Snapshot) error {
	if strings.TrimSpace(snap.ID) == "" {
		return errors.New("session: snapshot id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save snapshot: %w", err)
	}
	return nil
}

// Load returns domain.ErrNotFound for unknown or expired sessions.
func (s *RedisStore) Load(ctx context.Context, id string) (*workflow.Snapshot, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: load snapshot: %w", err)
	}
	var snap workflow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

var _ Store = (*RedisStore)(nil)
