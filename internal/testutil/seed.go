package testutil

import (
	"context"
	"testing"

	"medimate-be/internal/entity"
	"medimate-be/pkg/backend"

	"github.com/stretchr/testify/require"
)

const DefaultPassword = "secret123"

// SeedUser creates an auth account, a profile and the matching username
// reservation.
func (b *Backend) SeedUser(t testing.TB, email, username string, verified bool) backend.Identity {
	t.Helper()
	ctx := context.Background()

	id := b.Auth.Add(email, DefaultPassword, username, verified)
	uow := b.Store.NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	now := b.Clock()
	require.NoError(t, uow.UserRepository().Create(ctx, &entity.UserProfile{
		Id:            id.UID,
		Name:          username,
		Username:      username,
		Email:         email,
		EmailVerified: verified,
		CreatedAt:     now,
		LastLogin:     now,
	}))
	require.NoError(t, uow.UsernameRepository().Create(ctx, &entity.UsernameReservation{
		Username: username,
		UserId:   id.UID,
	}))
	require.NoError(t, uow.Commit())
	return id
}
