package memory

import (
	"context"
	"time"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// RefreshSessionRepository keeps refresh sessions in process. It is used
// when no Redis is configured, so sessions do not survive a restart.
type RefreshSessionRepository struct {
	cache *cache.Cache
	now   func() time.Time
}

var _ contract.RefreshSessionRepository = (*RefreshSessionRepository)(nil)

func NewRefreshSessionRepository() *RefreshSessionRepository {
	return &RefreshSessionRepository{
		cache: cache.New(30*24*time.Hour, 10*time.Minute),
		now:   time.Now,
	}
}

func (r *RefreshSessionRepository) Save(ctx context.Context, tokenHash string, userId uuid.UUID, expiresAt time.Time) error {
	now := r.now()
	r.cache.Set(tokenHash, &entity.RefreshSession{UserId: userId, CreatedAt: now, ExpiresAt: expiresAt}, expiresAt.Sub(now))
	return nil
}

func (r *RefreshSessionRepository) Lookup(ctx context.Context, tokenHash string) (*entity.RefreshSession, error) {
	if x, found := r.cache.Get(tokenHash); found {
		return x.(*entity.RefreshSession), nil
	}
	return nil, nil
}

func (r *RefreshSessionRepository) Revoke(ctx context.Context, tokenHash string) error {
	r.cache.Delete(tokenHash)
	return nil
}

func (r *RefreshSessionRepository) RevokeAll(ctx context.Context, userId uuid.UUID) error {
	for hash, item := range r.cache.Items() {
		if item.Object.(*entity.RefreshSession).UserId == userId {
			r.cache.Delete(hash)
		}
	}
	return nil
}

func (r *RefreshSessionRepository) HasActive(ctx context.Context, userId uuid.UUID) (bool, error) {
	// Items skips expired entries.
	for _, item := range r.cache.Items() {
		if item.Object.(*entity.RefreshSession).UserId == userId {
			return true, nil
		}
	}
	return false, nil
}
