package profile

import (
	"context"

	"medimate-be/internal/apperror"
	"medimate-be/pkg/backend"

	"github.com/google/uuid"
)

type PasswordState string

const (
	PasswordIdle             PasswordState = "idle"
	PasswordAttempting       PasswordState = "attempting"
	PasswordRequiresReauth   PasswordState = "requires_reauth"
	PasswordReauthenticating PasswordState = "reauthenticating"
	PasswordSuccess          PasswordState = "success"
	PasswordFailed           PasswordState = "failed"
)

// PasswordOutcome is where a password change ended and how it got there.
type PasswordOutcome struct {
	State PasswordState   `json:"state"`
	Trace []PasswordState `json:"trace"`
	Err   *apperror.Error `json:"-"`
}

func (o *PasswordOutcome) step(s PasswordState) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

func (o *PasswordOutcome) fail(err *apperror.Error) *PasswordOutcome {
	o.step(PasswordFailed)
	o.Err = err
	return o
}

// ChangePassword tries the update once. If the provider wants a fresh
// credential it re-authenticates with current and tries exactly once more.
func ChangePassword(ctx context.Context, auth backend.Auth, uid uuid.UUID, current, next string) *PasswordOutcome {
	outcome := &PasswordOutcome{State: PasswordIdle, Trace: []PasswordState{PasswordIdle}}
	outcome.step(PasswordAttempting)

	err := auth.UpdatePassword(ctx, uid, next)
	if err == nil {
		outcome.step(PasswordSuccess)
		return outcome
	}
	if !apperror.Is(err, apperror.KindReauthRequired) {
		return outcome.fail(apperror.Wrap(kindOf(err), "Failed to update password.", err).WithField("newPassword"))
	}

	outcome.step(PasswordRequiresReauth)
	if current == "" {
		return outcome.fail(apperror.FieldError(apperror.KindReauthRequired, "currentPassword", "Enter current password to change."))
	}

	outcome.step(PasswordReauthenticating)
	if err := auth.Reauthenticate(ctx, uid, current); err != nil {
		if apperror.Is(err, apperror.KindAuthInvalidCredential) {
			return outcome.fail(apperror.Wrap(apperror.KindAuthInvalidCredential, "Incorrect current password.", err).WithField("currentPassword"))
		}
		return outcome.fail(apperror.Wrap(kindOf(err), "Re-authentication failed. Could not update password.", err).WithField("currentPassword"))
	}

	if err := auth.UpdatePassword(ctx, uid, next); err != nil {
		return outcome.fail(apperror.Wrap(kindOf(err), "Re-authentication failed. Could not update password.", err).WithField("currentPassword"))
	}
	outcome.step(PasswordSuccess)
	return outcome
}

func kindOf(err error) apperror.Kind {
	return apperror.KindOf(apperror.Translate(err, ""))
}
