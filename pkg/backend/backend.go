package backend

import (
	"context"
	"io"
	"time"

	"medimate-be/internal/repository/unitofwork"
	"medimate-be/pkg/feed"

	"github.com/google/uuid"
)

// Identity is the authenticated principal as the auth provider sees it.
type Identity struct {
	UID           uuid.UUID `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	PhotoURL      *string   `json:"photo_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	Provider      string    `json:"provider"`
}

// ProfileFields is a partial update of the auth-side profile. Nil fields are
// left alone.
type ProfileFields struct {
	DisplayName *string
	PhotoURL    *string
}

// FederatedProfile is what an external identity provider vouched for.
type FederatedProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
	PhotoURL       string
	EmailVerified  bool
}

type Auth interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	// SignInFederated creates the account on first use; created reports that.
	SignInFederated(ctx context.Context, profile FederatedProfile) (identity *Identity, created bool, err error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context, uid uuid.UUID) error
	SendVerificationEmail(ctx context.Context, uid uuid.UUID) error
	Reauthenticate(ctx context.Context, uid uuid.UUID, password string) error
	UpdateProfileFields(ctx context.Context, uid uuid.UUID, fields ProfileFields) error
	// UpdatePassword fails with a ReauthRequired error when the last
	// credential proof is too old.
	UpdatePassword(ctx context.Context, uid uuid.UUID, newPassword string) error
	// Reload returns the freshest identity, or a NotFound error.
	Reload(ctx context.Context, uid uuid.UUID) (*Identity, error)
	Delete(ctx context.Context, uid uuid.UUID) error
}

// ProgressFunc receives the uploaded fraction in [0, 1].
type ProgressFunc func(fraction float64)

type Storage interface {
	// Upload writes the object at path, replacing any previous one, and
	// returns a URL the object can be downloaded from.
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error)
}

type Answer struct {
	Text   string
	Source *string
}

type Answerer interface {
	Answer(ctx context.Context, question string) (*Answer, error)
}

// Client bundles every collaborator the sync components talk to. It is built
// once at start-up and handed to each component.
type Client struct {
	Auth     Auth
	Store    unitofwork.RepositoryFactory
	Feed     feed.Feed
	Storage  Storage
	Answerer Answerer
	Now      func() time.Time
}

func (c *Client) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Notify publishes change signals. A failed publish never undoes a committed
// write; the returned error is for logging.
func (c *Client) Notify(ctx context.Context, topics ...string) error {
	if c.Feed == nil || len(topics) == 0 {
		return nil
	}
	return c.Feed.Publish(ctx, topics...)
}
