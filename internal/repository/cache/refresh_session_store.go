package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRefreshTTL = 30 * 24 * time.Hour

// RedisRefreshStore keeps one key per token plus a set of token hashes per
// user so sign-out can revoke them all.
type RedisRefreshStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ contract.RefreshSessionRepository = (*RedisRefreshStore)(nil)

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, prefix: "refresh:", now: time.Now}
}

func (s *RedisRefreshStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

func (s *RedisRefreshStore) userKey(userId uuid.UUID) string {
	return s.prefix + "user:" + userId.String()
}

func (s *RedisRefreshStore) Save(ctx context.Context, tokenHash string, userId uuid.UUID, expiresAt time.Time) error {
	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		ttl = defaultRefreshTTL
		expiresAt = now.Add(ttl)
	}

	data, err := json.Marshal(entity.RefreshSession{UserId: userId, CreatedAt: now, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("marshal refresh session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(tokenHash), data, ttl)
	pipe.SAdd(ctx, s.userKey(userId), tokenHash)
	pipe.Expire(ctx, s.userKey(userId), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Lookup(ctx context.Context, tokenHash string) (*entity.RefreshSession, error) {
	raw, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh session: %w", err)
	}

	var session entity.RefreshSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal refresh session: %w", err)
	}
	return &session, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, tokenHash string) error {
	session, err := s.Lookup(ctx, tokenHash)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(tokenHash))
	if session != nil {
		pipe.SRem(ctx, s.userKey(session.UserId), tokenHash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) RevokeAll(ctx context.Context, userId uuid.UUID) error {
	hashes, err := s.client.SMembers(ctx, s.userKey(userId)).Result()
	if err != nil {
		return fmt.Errorf("list refresh sessions: %w", err)
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.key(h))
	}
	keys = append(keys, s.userKey(userId))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh sessions: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) HasActive(ctx context.Context, userId uuid.UUID) (bool, error) {
	hashes, err := s.client.SMembers(ctx, s.userKey(userId)).Result()
	if err != nil {
		return false, fmt.Errorf("list refresh sessions: %w", err)
	}
	if len(hashes) == 0 {
		return false, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = s.key(h)
	}
	n, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("check refresh sessions: %w", err)
	}
	return n > 0, nil
}

func (s *RedisRefreshStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
