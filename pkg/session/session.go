package session

import (
	"context"
	"iter"

	"medimate-be/internal/apperror"
	"medimate-be/internal/pkg/logger"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"
	"medimate-be/pkg/subscription"

	"github.com/google/uuid"
)

type Status string

const (
	StatusLoading    Status = "loading"
	StatusSignedOut  Status = "signed_out"
	StatusUnverified Status = "unverified"
	StatusReady      Status = "ready"
)

type State struct {
	Status   Status            `json:"status"`
	Identity *backend.Identity `json:"identity,omitempty"`
}

func (s State) Verified() bool {
	return s.Status == StatusReady
}

var (
	loadingState   = State{Status: StatusLoading}
	signedOutState = State{Status: StatusSignedOut}
)

func stateOf(identity *backend.Identity) State {
	if identity == nil {
		return signedOutState
	}
	if !identity.EmailVerified {
		return State{Status: StatusUnverified, Identity: identity}
	}
	return State{Status: StatusReady, Identity: identity}
}

// Manager tracks one user's identity. Every lookup goes back to the auth
// provider so changes made elsewhere (a new photo, a verified address)
// show up on the next state.
type Manager struct {
	client *backend.Client
	logger logger.ILogger
}

func NewManager(client *backend.Client, log logger.ILogger) *Manager {
	return &Manager{client: client, logger: log}
}

// Resolve reloads the identity. Any failure resolves to signed out.
func (m *Manager) Resolve(ctx context.Context, uid uuid.UUID) State {
	identity, err := m.client.Auth.Reload(ctx, uid)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) && !apperror.Is(err, apperror.KindAuthInvalidCredential) {
			m.logger.Warn("SessionManager", "Identity reload failed", map[string]interface{}{
				"user_id": uid.String(),
				"error":   err.Error(),
			})
		}
		return signedOutState
	}
	return stateOf(identity)
}

// Watch yields Loading, then the freshly reloaded state after every change
// to the identity. When a reload fails it yields SignedOut and stops.
func (m *Manager) Watch(ctx context.Context, uid uuid.UUID) iter.Seq[State] {
	source := subscription.New(m.client.Feed, func(ctx context.Context) (*backend.Identity, error) {
		return m.client.Auth.Reload(ctx, uid)
	}, feed.IdentityTopic(uid))

	return func(yield func(State) bool) {
		if !yield(loadingState) {
			return
		}
		for identity, err := range source.Snapshots(ctx) {
			if err != nil {
				m.logger.Info("SessionManager", "Identity listener ended", map[string]interface{}{
					"user_id": uid.String(),
					"error":   err.Error(),
				})
				yield(signedOutState)
				return
			}
			if !yield(stateOf(identity)) {
				return
			}
		}
	}
}

func (m *Manager) ResendVerification(ctx context.Context, uid uuid.UUID) error {
	state := m.Resolve(ctx, uid)
	switch state.Status {
	case StatusSignedOut:
		return apperror.New(apperror.KindAuthInvalidCredential, "You are signed out.")
	case StatusReady:
		return nil
	}
	if err := m.client.Auth.SendVerificationEmail(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to send verification email")
	}
	return nil
}

// CheckVerification forces a reload and republishes the identity so every
// open watcher flips its gate when the address is now verified.
func (m *Manager) CheckVerification(ctx context.Context, uid uuid.UUID) State {
	state := m.Resolve(ctx, uid)
	if state.Status == StatusReady {
		if err := m.client.Notify(ctx, feed.IdentityTopic(uid)); err != nil {
			m.logger.Warn("SessionManager", "Failed to publish identity change", map[string]interface{}{
				"user_id": uid.String(),
				"error":   err.Error(),
			})
		}
	}
	return state
}

func (m *Manager) SignOut(ctx context.Context, uid uuid.UUID) error {
	if err := m.client.Auth.SignOut(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to sign out")
	}
	return nil
}
