package contract

import (
	"context"

	"medimate-be/internal/entity"

	"github.com/google/uuid"
)

type UsernameRepository interface {
	// Create inserts a reservation and never overwrites one. A taken name
	// fails with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, reservation *entity.UsernameReservation) error
	FindOne(ctx context.Context, username string) (*entity.UsernameReservation, error)
	// Delete removes the reservation only when owner holds it.
	Delete(ctx context.Context, username string, owner uuid.UUID) (int64, error)
}
