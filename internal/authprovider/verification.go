package authprovider

import (
	"context"
	"errors"
	"net/url"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/repository/specification"
	"medimate-be/pkg/feed"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendVerificationEmail replaces any outstanding verification link with a
// fresh one.
func (p *Provider) SendVerificationEmail(ctx context.Context, uid uuid.UUID) error {
	account, err := p.account(ctx, uid)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return nil
	}

	raw, err := randomToken()
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "Failed to create verification link", err)
	}

	now := p.now()
	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Translate(err, "Failed to create verification link")
	}
	defer uow.Rollback()

	repo := uow.AuthAccountRepository()
	if err := repo.DeleteVerificationTokens(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to create verification link")
	}
	if err := repo.CreateVerificationToken(ctx, &entity.EmailVerificationToken{
		Id:        uuid.New(),
		UserId:    uid,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(p.cfg.VerificationTTL),
		CreatedAt: now,
	}); err != nil {
		return apperror.Translate(err, "Failed to create verification link")
	}
	if err := uow.Commit(); err != nil {
		return apperror.Translate(err, "Failed to create verification link")
	}

	link := p.baseURL + "/api/auth/verify-email?token=" + url.QueryEscape(raw)
	if err := p.mailer.SendVerificationLink(account.Email, account.DisplayName, link); err != nil {
		return apperror.Wrap(apperror.KindNetworkUnavailable, "Failed to send verification email", err)
	}

	p.logger.Info("AuthProvider", "Verification email sent", map[string]interface{}{
		"user_id": uid.String(),
	})
	return nil
}

// VerifyEmail consumes a verification token and marks both the account and
// the profile verified.
func (p *Provider) VerifyEmail(ctx context.Context, token string) (uuid.UUID, error) {
	invalid := apperror.New(apperror.KindValidation, "This verification link is invalid or has expired.")

	uow := p.store.NewUnitOfWork(ctx)
	record, err := uow.AuthAccountRepository().FindVerificationToken(ctx, specification.ByTokenHash{Hash: hashToken(token)})
	if err != nil {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}
	if record == nil || p.now().After(record.ExpiresAt) {
		return uuid.Nil, invalid
	}

	if err := uow.Begin(ctx); err != nil {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}
	defer uow.Rollback()

	if err := uow.AuthAccountRepository().UpdateFields(ctx, record.UserId, map[string]interface{}{"email_verified": true}); err != nil {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}
	// The profile may not exist yet for a half-finished sign-up.
	if err := uow.UserRepository().UpdateFields(ctx, record.UserId, map[string]interface{}{"email_verified": true}); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}
	if err := uow.AuthAccountRepository().DeleteVerificationTokens(ctx, record.UserId); err != nil {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}
	if err := uow.Commit(); err != nil {
		return uuid.Nil, apperror.Translate(err, "Failed to verify email")
	}

	if p.feed != nil {
		if err := p.feed.Publish(ctx, feed.IdentityTopic(record.UserId), feed.UserTopic(record.UserId)); err != nil {
			p.logger.Warn("AuthProvider", "Failed to publish verification", map[string]interface{}{"error": err.Error()})
		}
	}
	return record.UserId, nil
}

// SetVerified flips the verification flag directly. Used by seeders.
func (p *Provider) SetVerified(ctx context.Context, uid uuid.UUID, verified bool) error {
	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.AuthAccountRepository().UpdateFields(ctx, uid, map[string]interface{}{"email_verified": verified}); err != nil {
		return apperror.Translate(err, "Failed to update account")
	}
	p.publish(ctx, uid)
	return nil
}
