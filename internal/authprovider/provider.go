package authprovider

import (
	"context"
	"strings"
	"time"

	"medimate-be/internal/apperror"
	"medimate-be/internal/config"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/mailer"
	"medimate-be/internal/repository/contract"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/repository/unitofwork"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Provider is the service's own identity provider: password and Google
// accounts in the auth_accounts table, JWT access tokens and refresh
// sessions.
type Provider struct {
	store    unitofwork.RepositoryFactory
	sessions contract.RefreshSessionRepository
	mailer   mailer.IEmailService
	feed     feed.Feed
	cfg      config.AuthConfig
	baseURL  string
	logger   logger.ILogger
	now      func() time.Time
}

var _ backend.Auth = (*Provider)(nil)

func NewProvider(
	store unitofwork.RepositoryFactory,
	sessions contract.RefreshSessionRepository,
	emailService mailer.IEmailService,
	f feed.Feed,
	cfg config.AuthConfig,
	baseURL string,
	log logger.ILogger,
) *Provider {
	return &Provider{
		store:    store,
		sessions: sessions,
		mailer:   emailService,
		feed:     f,
		cfg:      cfg,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   log,
		now:      time.Now,
	}
}

// WithClock replaces the provider's clock. Used by tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func identityOf(a *entity.AuthAccount) *backend.Identity {
	return &backend.Identity{
		UID:           a.Id,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.EmailVerified,
		Provider:      a.Provider,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredential() *apperror.Error {
	return apperror.New(apperror.KindAuthInvalidCredential, "Invalid email/username or password.")
}

func (p *Provider) publish(ctx context.Context, uid uuid.UUID) {
	if p.feed == nil {
		return
	}
	if err := p.feed.Publish(ctx, feed.IdentityTopic(uid)); err != nil {
		p.logger.Warn("AuthProvider", "Failed to publish identity change", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err.Error(),
		})
	}
}

func (p *Provider) account(ctx context.Context, uid uuid.UUID) (*entity.AuthAccount, error) {
	uow := p.store.NewUnitOfWork(ctx)
	account, err := uow.AuthAccountRepository().FindOne(ctx, specification.ByID{ID: uid})
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load account")
	}
	if account == nil {
		return nil, apperror.New(apperror.KindNotFound, "Account not found.")
	}
	return account, nil
}

func (p *Provider) stampAuthenticated(ctx context.Context, uid uuid.UUID) error {
	uow := p.store.NewUnitOfWork(ctx)
	err := uow.AuthAccountRepository().UpdateFields(ctx, uid, map[string]interface{}{
		"last_authenticated_at": p.now(),
	})
	return apperror.Translate(err, "Failed to update account")
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	uow := p.store.NewUnitOfWork(ctx)
	account, err := uow.AuthAccountRepository().FindOne(ctx, specification.ByEmail{Email: normalizeEmail(email)})
	if err != nil {
		return nil, apperror.Translate(err, "Failed to sign in")
	}
	if account == nil || account.PasswordHash == nil {
		return nil, invalidCredential()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredential()
	}

	if err := p.stampAuthenticated(ctx, account.Id); err != nil {
		return nil, err
	}
	p.publish(ctx, account.Id)
	return identityOf(account), nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*backend.Identity, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return nil, apperror.FieldError(apperror.KindValidation, "password", "Password must be at least 6 characters.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to secure password", err)
	}
	hashStr := string(hash)

	now := p.now()
	account := &entity.AuthAccount{
		Id:                  uuid.New(),
		Email:               email,
		PasswordHash:        &hashStr,
		Provider:            entity.AuthProviderPassword,
		LastAuthenticatedAt: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.AuthAccountRepository().Create(ctx, account); err != nil {
		if isDuplicate(err) {
			return nil, apperror.FieldError(apperror.KindAuthEmailInUse, "email", "This email is already registered.")
		}
		return nil, apperror.Translate(err, "Failed to create account")
	}

	p.publish(ctx, account.Id)
	return identityOf(account), nil
}

// SignInFederated signs in with an identity vouched for by an external
// provider. An existing account with the same email is linked.
func (p *Provider) SignInFederated(ctx context.Context, profile backend.FederatedProfile) (*backend.Identity, bool, error) {
	email := normalizeEmail(profile.Email)
	uow := p.store.NewUnitOfWork(ctx)
	repo := uow.AuthAccountRepository()

	account, err := repo.FindOne(ctx, specification.ByProviderUser{Provider: profile.Provider, ProviderUserID: profile.ProviderUserID})
	if err == nil && account == nil {
		account, err = repo.FindOne(ctx, specification.ByEmail{Email: email})
	}
	if err != nil {
		return nil, false, apperror.Translate(err, "Failed to sign in")
	}

	now := p.now()
	if account != nil {
		fields := map[string]interface{}{"last_authenticated_at": now}
		if account.ProviderUserId == nil {
			fields["provider_user_id"] = profile.ProviderUserID
		}
		if profile.EmailVerified && !account.EmailVerified {
			fields["email_verified"] = true
			account.EmailVerified = true
		}
		if err := repo.UpdateFields(ctx, account.Id, fields); err != nil {
			return nil, false, apperror.Translate(err, "Failed to sign in")
		}
		p.publish(ctx, account.Id)
		return identityOf(account), false, nil
	}

	providerUserID := profile.ProviderUserID
	account = &entity.AuthAccount{
		Id:                  uuid.New(),
		Email:               email,
		DisplayName:         profile.DisplayName,
		EmailVerified:       profile.EmailVerified,
		Provider:            profile.Provider,
		ProviderUserId:      &providerUserID,
		LastAuthenticatedAt: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if profile.PhotoURL != "" {
		photo := profile.PhotoURL
		account.PhotoURL = &photo
	}
	if err := repo.Create(ctx, account); err != nil {
		return nil, false, apperror.Translate(err, "Failed to create account")
	}

	p.publish(ctx, account.Id)
	return identityOf(account), true, nil
}

func (p *Provider) SignOut(ctx context.Context, uid uuid.UUID) error {
	if err := p.sessions.RevokeAll(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to sign out")
	}
	p.publish(ctx, uid)
	return nil
}

func (p *Provider) Reauthenticate(ctx context.Context, uid uuid.UUID, password string) error {
	account, err := p.account(ctx, uid)
	if err != nil {
		return err
	}
	if account.PasswordHash == nil {
		return apperror.New(apperror.KindAuthInvalidCredential, "This account has no password.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(password)); err != nil {
		return apperror.New(apperror.KindAuthInvalidCredential, "Incorrect password.")
	}
	return p.stampAuthenticated(ctx, uid)
}

func (p *Provider) UpdateProfileFields(ctx context.Context, uid uuid.UUID, fields backend.ProfileFields) error {
	update := map[string]interface{}{}
	if fields.DisplayName != nil {
		update["display_name"] = *fields.DisplayName
	}
	if fields.PhotoURL != nil {
		update["photo_url"] = *fields.PhotoURL
	}
	if len(update) == 0 {
		return nil
	}

	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.AuthAccountRepository().UpdateFields(ctx, uid, update); err != nil {
		return apperror.Translate(err, "Failed to update account")
	}
	p.publish(ctx, uid)
	return nil
}

// UpdatePassword needs a credential proof younger than the recent-auth
// window.
func (p *Provider) UpdatePassword(ctx context.Context, uid uuid.UUID, newPassword string) error {
	account, err := p.account(ctx, uid)
	if err != nil {
		return err
	}
	if p.now().Sub(account.LastAuthenticatedAt) > p.cfg.RecentAuthWindow {
		return apperror.New(apperror.KindReauthRequired, "Please re-enter your current password to change it.")
	}
	if len(newPassword) < minPasswordLength {
		return apperror.FieldError(apperror.KindValidation, "newPassword", "Password is too weak (min 6 chars).")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "Failed to secure password", err)
	}

	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.AuthAccountRepository().UpdateFields(ctx, uid, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return apperror.Translate(err, "Failed to update password")
	}

	if err := p.mailer.SendPasswordChanged(account.Email, account.DisplayName); err != nil {
		p.logger.Warn("AuthProvider", "Password change notice not sent", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err.Error(),
		})
	}
	return nil
}

// Reload returns the current identity. A user without any live session is
// signed out, even if their access token has not expired yet.
func (p *Provider) Reload(ctx context.Context, uid uuid.UUID) (*backend.Identity, error) {
	active, err := p.sessions.HasActive(ctx, uid)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load session")
	}
	if !active {
		return nil, apperror.New(apperror.KindAuthInvalidCredential, "You are signed out.")
	}
	account, err := p.account(ctx, uid)
	if err != nil {
		return nil, err
	}
	return identityOf(account), nil
}

func (p *Provider) Delete(ctx context.Context, uid uuid.UUID) error {
	uow := p.store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Translate(err, "Failed to delete account")
	}
	defer uow.Rollback()

	if err := uow.AuthAccountRepository().DeleteVerificationTokens(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to delete account")
	}
	if err := uow.AuthAccountRepository().Delete(ctx, uid); err != nil {
		return apperror.Translate(err, "Failed to delete account")
	}
	if err := uow.Commit(); err != nil {
		return apperror.Translate(err, "Failed to delete account")
	}

	if err := p.sessions.RevokeAll(ctx, uid); err != nil {
		p.logger.Warn("AuthProvider", "Failed to revoke sessions of deleted account", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err.Error(),
		})
	}
	return nil
}
