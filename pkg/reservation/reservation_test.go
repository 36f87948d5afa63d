package reservation

import (
	"context"
	"errors"
	"testing"

	"medimate-be/internal/apperror"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	registry := NewRegistry(b.Store)
	ctx := context.Background()

	ok, err := registry.Available(ctx, "alice", uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = registry.Available(ctx, "alice", alice.UID)
	require.NoError(t, err)
	assert.True(t, ok, "the owner may keep their own name")

	ok, err = registry.Available(ctx, "bob", uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimNeverOverwrites(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	ctx := context.Background()

	uow := b.Store.NewUnitOfWork(ctx)
	err := Claim(ctx, uow, "alice", uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindUsernameTaken))

	res, err := uow.UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.UID, res.UserId)
}

func TestRename(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	registry := NewRegistry(b.Store)
	ctx := context.Background()

	err := registry.Rename(ctx, alice.UID, "alice", "alice_md", map[string]interface{}{"name": "Alice MD"})
	require.NoError(t, err)

	uow := b.Store.NewUnitOfWork(ctx)
	old, err := uow.UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, old)

	renamed, err := uow.UsernameRepository().FindOne(ctx, "alice_md")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, alice.UID, renamed.UserId)

	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: alice.UID})
	require.NoError(t, err)
	assert.Equal(t, "alice_md", profile.Username)
	assert.Equal(t, "Alice MD", profile.Name)
}

func TestRenameToTakenNameWritesNothing(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	b.SeedUser(t, "bob@example.com", "bob", true)
	registry := NewRegistry(b.Store)
	ctx := context.Background()

	err := registry.Rename(ctx, alice.UID, "alice", "bob", map[string]interface{}{"name": "Changed"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUsernameTaken))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "username", appErr.Field)

	uow := b.Store.NewUnitOfWork(ctx)
	res, err := uow.UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, alice.UID, res.UserId)

	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: alice.UID})
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice", profile.Name)
}

func TestRenameFailureAfterReleaseKeepsOldReservation(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	registry := NewRegistry(b.Store)
	ctx := context.Background()

	// The old name is deleted first inside the batch; the insert of the new
	// one then fails.
	testutil.FailCreatesOn(t, b.DB, "usernames", errors.New("connection reset"))

	err := registry.Rename(ctx, alice.UID, "alice", "alice_md", nil)
	require.Error(t, err)

	uow := b.Store.NewUnitOfWork(ctx)
	old, err := uow.UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, alice.UID, old.UserId)

	renamed, err := uow.UsernameRepository().FindOne(ctx, "alice_md")
	require.NoError(t, err)
	assert.Nil(t, renamed)

	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: alice.UID})
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
}

func TestRenameFailureOnProfileUpdateRollsBackReservations(t *testing.T) {
	b := testutil.NewBackend(t)
	alice := b.SeedUser(t, "alice@example.com", "alice", true)
	registry := NewRegistry(b.Store)
	ctx := context.Background()

	testutil.FailUpdatesOn(t, b.DB, "users", errors.New("permission denied"))

	err := registry.Rename(ctx, alice.UID, "alice", "alice_md", nil)
	require.Error(t, err)

	uow := b.Store.NewUnitOfWork(ctx)
	old, err := uow.UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, old)
	renamed, err := uow.UsernameRepository().FindOne(ctx, "alice_md")
	require.NoError(t, err)
	assert.Nil(t, renamed)
}
