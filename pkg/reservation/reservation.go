package reservation

import (
	"context"
	"errors"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const usernameTakenMessage = "This username is already taken."

// Registry keeps usernames globally unique through the usernames table.
// The primary key on that table is what rejects a racing claim; Available
// only gives forms an early answer.
type Registry struct {
	store unitofwork.RepositoryFactory
}

func NewRegistry(store unitofwork.RepositoryFactory) *Registry {
	return &Registry{store: store}
}

func Taken() *apperror.Error {
	return apperror.FieldError(apperror.KindUsernameTaken, "username", usernameTakenMessage)
}

// Available reports whether username is free or already held by owner.
func (r *Registry) Available(ctx context.Context, username string, owner uuid.UUID) (bool, error) {
	uow := r.store.NewUnitOfWork(ctx)
	existing, err := uow.UsernameRepository().FindOne(ctx, username)
	if err != nil {
		return false, apperror.Translate(err, "Failed to check username")
	}
	return existing == nil || existing.UserId == owner, nil
}

// Claim inserts the reservation inside the caller's unit of work. It never
// overwrites an existing reservation.
func Claim(ctx context.Context, uow unitofwork.UnitOfWork, username string, owner uuid.UUID) error {
	err := uow.UsernameRepository().Create(ctx, &entity.UsernameReservation{
		Username: username,
		UserId:   owner,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Taken()
	}
	return apperror.Translate(err, "Failed to reserve username")
}

// Rename moves owner from one username to another and writes the profile
// fields in the same transaction. Extra fields ride along so a settings save
// is a single batch. If the new name belongs to someone else nothing is
// written.
func (r *Registry) Rename(ctx context.Context, owner uuid.UUID, from, to string, fields map[string]interface{}) error {
	uow := r.store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Translate(err, "Failed to start rename")
	}
	defer uow.Rollback()

	existing, err := uow.UsernameRepository().FindOne(ctx, to)
	if err != nil {
		return apperror.Translate(err, "Failed to check username")
	}
	if existing != nil && existing.UserId != owner {
		return Taken()
	}

	if from != to {
		if _, err := uow.UsernameRepository().Delete(ctx, from, owner); err != nil {
			return apperror.Translate(err, "Failed to release old username")
		}
	}
	if existing == nil {
		if err := Claim(ctx, uow, to, owner); err != nil {
			return err
		}
	}

	update := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		update[k] = v
	}
	update["username"] = to
	if err := uow.UserRepository().UpdateFields(ctx, owner, update); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Taken()
		}
		return apperror.Translate(err, "Failed to update profile")
	}

	if err := uow.Commit(); err != nil {
		return apperror.Translate(err, "Failed to commit rename")
	}
	return nil
}
