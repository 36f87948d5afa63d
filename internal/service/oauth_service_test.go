package service

import (
	"context"
	"errors"
	"testing"

	"medimate-be/internal/apperror"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/events"
	"medimate-be/pkg/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	users map[string]*GoogleUser
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (g *fakeGoogle) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	u, ok := g.users[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return u, nil
}

func newOAuthFixture(t *testing.T, google GoogleExchanger) (*testutil.Backend, *testutil.RecordingPublisher, IOAuthService) {
	b := testutil.NewBackend(t)
	publisher := &testutil.RecordingPublisher{}
	log := logger.NewNopLogger()
	svc := NewOAuthService(b.Client, google, &fakeTokens{}, session.NewManager(b.Client, log), publisher, log)
	return b, publisher, svc
}

func TestDefaultUsername(t *testing.T) {
	uid := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	tests := []struct {
		email string
		want  string
	}{
		{email: "jane_doe@gmail.com", want: "jane_doe"},
		{email: "jd@gmail.com", want: "user_a1b2c"},
		{email: "jane.doe@gmail.com", want: "user_a1b2c"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultUsername(tt.email, uid))
		})
	}
}

func TestOAuthLoginURL(t *testing.T) {
	_, _, svc := newOAuthFixture(t, &fakeGoogle{})

	url, err := svc.GetLoginURL("google")
	require.NoError(t, err)
	assert.Contains(t, url, "state=")

	_, err = svc.GetLoginURL("github")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, _, disabled := newOAuthFixture(t, nil)
	_, err = disabled.GetLoginURL("google")
	assert.True(t, apperror.Is(err, apperror.KindConfiguration))
}

func TestOAuthCallbackCreatesProfile(t *testing.T) {
	ctx := context.Background()
	google := &fakeGoogle{users: map[string]*GoogleUser{
		"code-1": {ID: "g-1", Email: "jane_doe@gmail.com", Name: "Jane Doe", Picture: "https://img.example.com/j.png"},
	}}
	b, publisher, svc := newOAuthFixture(t, google)

	res, err := svc.HandleCallback(ctx, "google", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "jane_doe", res.User.Username)
	assert.Equal(t, "Jane Doe", res.User.Name)
	assert.True(t, res.User.EmailVerified)
	assert.Equal(t, string(session.StatusReady), res.Session.Status)
	assert.Equal(t, []string{events.UserSignedUp}, publisher.Types())

	reserved, err := b.Store.NewUnitOfWork(ctx).UsernameRepository().FindOne(ctx, "jane_doe")
	require.NoError(t, err)
	require.NotNil(t, reserved)
	assert.Equal(t, res.User.Id, reserved.UserId)

	// A second sign-in reuses the profile.
	again, err := svc.HandleCallback(ctx, "google", "code-1")
	require.NoError(t, err)
	assert.Equal(t, res.User.Id, again.User.Id)
	assert.Equal(t, []string{events.UserSignedUp, events.UserLoggedIn}, publisher.Types())
}

func TestOAuthCallbackAvoidsTakenUsername(t *testing.T) {
	ctx := context.Background()
	google := &fakeGoogle{users: map[string]*GoogleUser{
		"code-2": {ID: "g-2", Email: "jane_doe@gmail.com", Name: "Jane"},
	}}
	b, _, svc := newOAuthFixture(t, google)
	b.SeedUser(t, "other@example.com", "jane_doe", true)

	res, err := svc.HandleCallback(ctx, "google", "code-2")
	require.NoError(t, err)
	assert.Equal(t, "jane_doe_"+res.User.Id.String()[:4], res.User.Username)
}

func TestOAuthCallbackRefreshesExistingProfile(t *testing.T) {
	ctx := context.Background()
	google := &fakeGoogle{users: map[string]*GoogleUser{
		"code-3": {ID: "g-3", Email: "kim@example.com", Name: "Kim Park", Picture: "https://img.example.com/k.png"},
	}}
	b, publisher, svc := newOAuthFixture(t, google)
	id := b.SeedUser(t, "kim@example.com", "kim_p", true)

	res, err := svc.HandleCallback(ctx, "google", "code-3")
	require.NoError(t, err)
	assert.Equal(t, id.UID, res.User.Id)
	assert.Equal(t, "kim_p", res.User.Username)
	assert.Equal(t, []string{events.UserLoggedIn}, publisher.Types())

	stored, err := b.Store.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByID{ID: id.UID})
	require.NoError(t, err)
	assert.Equal(t, "Kim Park", stored.Name)
	require.NotNil(t, stored.PhotoURL)
	assert.Equal(t, "https://img.example.com/k.png", *stored.PhotoURL)
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	_, publisher, svc := newOAuthFixture(t, &fakeGoogle{})

	_, err := svc.HandleCallback(context.Background(), "google", "bogus")
	require.Error(t, err)
	assert.Empty(t, publisher.Types())
}
