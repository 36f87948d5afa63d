package profile

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/reservation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	backend *testutil.Backend
	id      backend.Identity
	mutator *Mutator
}

func newFixture(t *testing.T) *fixture {
	b := testutil.NewBackend(t)
	id := b.SeedUser(t, "alice@example.com", "alice", true)
	mutator := NewMutator(b.Client, reservation.NewRegistry(b.Store), logger.NewNopLogger())
	return &fixture{backend: b, id: id, mutator: mutator}
}

func (f *fixture) profile(t *testing.T) *entity.UserProfile {
	t.Helper()
	ctx := context.Background()
	p, err := f.backend.Store.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByID{ID: f.id.UID})
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func unchanged(p *entity.UserProfile) Edits {
	mobile := ""
	if p.Mobile != nil {
		mobile = *p.Mobile
	}
	return Edits{Name: p.Name, Username: p.Username, Mobile: mobile}
}

func TestSaveWithoutChangesWritesNothing(t *testing.T) {
	f := newFixture(t)
	current := f.profile(t)

	result, err := f.mutator.Save(context.Background(), current, unchanged(current))
	require.NoError(t, err)
	assert.Empty(t, result.Changed)
	assert.Nil(t, result.Password)
	assert.NotContains(t, f.backend.Auth.Calls(), "UpdateProfileFields")
}

func TestSaveOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.profile(t)

	edits := unchanged(current)
	edits.Name = "  Alice Doe "
	edits.Mobile = "+14155552671"

	result, err := f.mutator.Save(ctx, current, edits)
	require.NoError(t, err)
	assert.Equal(t, []string{"mobile", "name"}, result.Changed)

	saved := f.profile(t)
	assert.Equal(t, "Alice Doe", saved.Name)
	require.NotNil(t, saved.Mobile)
	assert.Equal(t, "+14155552671", *saved.Mobile)

	identity, err := f.backend.Auth.Reload(ctx, f.id.UID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Doe", identity.DisplayName)

	edits = unchanged(saved)
	edits.Mobile = ""
	result, err = f.mutator.Save(ctx, saved, edits)
	require.NoError(t, err)
	assert.Equal(t, []string{"mobile"}, result.Changed)
	assert.Nil(t, f.profile(t).Mobile)
}

func TestSaveUpdatesDisplayNameBeforeProfile(t *testing.T) {
	f := newFixture(t)
	current := f.profile(t)
	f.backend.Auth.FailOn("UpdateProfileFields", errors.New("network down"))

	edits := unchanged(current)
	edits.Name = "Renamed"
	_, err := f.mutator.Save(context.Background(), current, edits)
	require.Error(t, err)
	assert.Equal(t, "alice", f.profile(t).Name)
}

func TestSaveRenamesUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.profile(t)

	edits := unchanged(current)
	edits.Username = "alice_md"
	edits.Name = "Dr Alice"

	result, err := f.mutator.Save(ctx, current, edits)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "username"}, result.Changed)

	saved := f.profile(t)
	assert.Equal(t, "alice_md", saved.Username)
	assert.Equal(t, "Dr Alice", saved.Name)

	identity, err := f.backend.Auth.Reload(ctx, f.id.UID)
	require.NoError(t, err)
	assert.Equal(t, "Dr Alice", identity.DisplayName)

	res, err := f.backend.Store.NewUnitOfWork(ctx).UsernameRepository().FindOne(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSaveTakenUsernameShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser(t, "bob@example.com", "bob", true)
	current := f.profile(t)

	edits := unchanged(current)
	edits.Username = "bob"
	edits.Name = "Not Saved"

	_, err := f.mutator.Save(context.Background(), current, edits)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindUsernameTaken, appErr.Kind)
	assert.Equal(t, "username", appErr.Field)

	assert.NotContains(t, f.backend.Auth.Calls(), "UpdateProfileFields")
	assert.Equal(t, "alice", f.profile(t).Name)
}

func TestSaveKeepsDisplayNameWhenRenameLosesUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.profile(t)
	before, err := f.backend.Auth.Reload(ctx, f.id.UID)
	require.NoError(t, err)

	// Another account claims the name between the check and the batch.
	testutil.FailCreatesOn(t, f.backend.DB, "usernames", gorm.ErrDuplicatedKey)

	edits := unchanged(current)
	edits.Username = "alice_md"
	edits.Name = "Dr Alice"

	_, err = f.mutator.Save(ctx, current, edits)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindUsernameTaken, appErr.Kind)

	assert.NotContains(t, f.backend.Auth.Calls(), "UpdateProfileFields")
	after, err := f.backend.Auth.Reload(ctx, f.id.UID)
	require.NoError(t, err)
	assert.Equal(t, before.DisplayName, after.DisplayName)

	saved := f.profile(t)
	assert.Equal(t, "alice", saved.Username)
	assert.Equal(t, "alice", saved.Name)
}

func TestSaveValidation(t *testing.T) {
	f := newFixture(t)
	current := f.profile(t)

	tests := []struct {
		name  string
		edit  func(*Edits)
		field string
	}{
		{"short name", func(e *Edits) { e.Name = "A" }, "name"},
		{"bad username", func(e *Edits) { e.Username = "al ice" }, "username"},
		{"short username", func(e *Edits) { e.Username = "al" }, "username"},
		{"bad mobile", func(e *Edits) { e.Mobile = "call me" }, "mobile"},
		{"password mismatch", func(e *Edits) { e.NewPassword = "secret99"; e.ConfirmPassword = "secret98" }, "confirmPassword"},
		{"short password", func(e *Edits) { e.NewPassword = "abc"; e.ConfirmPassword = "abc" }, "confirmPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits := unchanged(current)
			tt.edit(&edits)
			_, err := f.mutator.Save(context.Background(), current, edits)

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestSaveChangesPasswordLast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.profile(t)
	f.backend.Auth.ReauthRequired = true

	edits := unchanged(current)
	edits.Name = "Alice Two"
	edits.NewPassword = "brand-new"
	edits.ConfirmPassword = "brand-new"
	edits.CurrentPassword = testutil.DefaultPassword

	result, err := f.mutator.Save(ctx, current, edits)
	require.NoError(t, err)
	require.NotNil(t, result.Password)
	assert.Equal(t, PasswordSuccess, result.Password.State)
	assert.Equal(t, "brand-new", f.backend.Auth.Password(f.id.UID))

	calls := f.backend.Auth.Calls()
	assert.Less(t, indexOf(calls, "UpdateProfileFields"), indexOf(calls, "UpdatePassword"))
}

func TestSaveReportsFailedPasswordAfterProfileCommit(t *testing.T) {
	f := newFixture(t)
	current := f.profile(t)
	f.backend.Auth.ReauthRequired = true

	edits := unchanged(current)
	edits.Name = "Alice Three"
	edits.NewPassword = "brand-new"
	edits.ConfirmPassword = "brand-new"

	result, err := f.mutator.Save(context.Background(), current, edits)
	require.Error(t, err)
	assert.Equal(t, PasswordFailed, result.Password.State)
	assert.Equal(t, "currentPassword", result.Password.Err.Field)
	assert.Equal(t, "Alice Three", f.profile(t).Name)
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestUploadPicture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var progress []float64
	url, err := f.mutator.UploadPicture(ctx, f.id.UID, Picture{
		Filename:    "me.PNG",
		ContentType: "image/png",
		Size:        4,
		Body:        bytes.NewReader([]byte("png!")),
	}, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)

	uploads := f.backend.Storage.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "profilePictures/"+f.id.UID.String()+"/profile.png", uploads[0].Path)
	assert.Equal(t, []float64{0.5, 1}, progress)

	saved := f.profile(t)
	require.NotNil(t, saved.PhotoURL)
	assert.Equal(t, url, *saved.PhotoURL)

	identity, err := f.backend.Auth.Reload(ctx, f.id.UID)
	require.NoError(t, err)
	require.NotNil(t, identity.PhotoURL)
	assert.Equal(t, url, *identity.PhotoURL)
}

func TestUploadPictureRejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.mutator.UploadPicture(context.Background(), f.id.UID, Picture{ContentType: "application/pdf", Size: 10, Body: bytes.NewReader(nil)}, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.mutator.UploadPicture(context.Background(), f.id.UID, Picture{ContentType: "image/jpeg", Size: MaxPictureSize + 1, Body: bytes.NewReader(nil)}, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Empty(t, f.backend.Storage.Uploads())
}

func TestUploadPictureFailures(t *testing.T) {
	t.Run("upload failed", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Storage.Err = errors.New("bucket unreachable")

		_, err := f.mutator.UploadPicture(context.Background(), f.id.UID, Picture{ContentType: "image/png", Size: 1, Body: bytes.NewReader([]byte("x"))}, nil)
		assert.True(t, apperror.Is(err, apperror.KindUploadFailed))
		assert.Nil(t, f.profile(t).PhotoURL)
	})

	t.Run("auth sync failed still updates profile", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Auth.FailOn("UpdateProfileFields", errors.New("token expired"))

		url, err := f.mutator.UploadPicture(context.Background(), f.id.UID, Picture{ContentType: "image/png", Size: 1, Body: bytes.NewReader([]byte("x"))}, nil)
		assert.True(t, apperror.Is(err, apperror.KindProfileSyncFailed))
		require.NotNil(t, f.profile(t).PhotoURL)
		assert.Equal(t, url, *f.profile(t).PhotoURL)
	})

	t.Run("storage disabled", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Client.Storage = backend.DisabledStorage{Reason: "MINIO_ENDPOINT is not set"}

		_, err := f.mutator.UploadPicture(context.Background(), f.id.UID, Picture{ContentType: "image/png", Size: 1, Body: bytes.NewReader([]byte("x"))}, nil)
		assert.True(t, apperror.Is(err, apperror.KindConfiguration))
	})
}
