package implementation

import (
	"context"
	"errors"

	"medimate-be/internal/entity"
	"medimate-be/internal/mapper"
	"medimate-be/internal/model"
	"medimate-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsernameRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUsernameRepository(db *gorm.DB) contract.UsernameRepository {
	return &UsernameRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UsernameRepositoryImpl) Create(ctx context.Context, reservation *entity.UsernameReservation) error {
	m := r.mapper.ReservationToModel(reservation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return normalizeWriteError(err)
	}
	*reservation = *r.mapper.ReservationToEntity(m)
	return nil
}

func (r *UsernameRepositoryImpl) FindOne(ctx context.Context, username string) (*entity.UsernameReservation, error) {
	var m model.UsernameReservation
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ReservationToEntity(&m), nil
}

func (r *UsernameRepositoryImpl) Delete(ctx context.Context, username string, owner uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("username = ? AND user_id = ?", username, owner).
		Delete(&model.UsernameReservation{})
	return res.RowsAffected, res.Error
}
