package memory

import (
	"time"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// UploadProgressRepository remembers the latest picture upload progress
// per user for ten minutes.
type UploadProgressRepository struct {
	cache *cache.Cache
}

var _ contract.UploadProgressRepository = (*UploadProgressRepository)(nil)

func NewUploadProgressRepository() *UploadProgressRepository {
	return &UploadProgressRepository{
		cache: cache.New(10*time.Minute, 10*time.Minute),
	}
}

func (r *UploadProgressRepository) Save(progress *entity.UploadProgress) {
	r.cache.Set(progress.UserId.String(), progress, cache.DefaultExpiration)
}

func (r *UploadProgressRepository) Get(userId uuid.UUID) (*entity.UploadProgress, bool) {
	if x, found := r.cache.Get(userId.String()); found {
		return x.(*entity.UploadProgress), true
	}
	return nil, false
}
