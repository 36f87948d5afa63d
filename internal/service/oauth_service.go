package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"medimate-be/internal/apperror"
	"medimate-be/internal/config"
	"medimate-be/internal/dto"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/events"
	"medimate-be/pkg/feed"
	"medimate-be/pkg/reservation"
	"medimate-be/pkg/session"
	"medimate-be/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleExchanger turns an authorization code into the Google profile.
type GoogleExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleUser, error)
}

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider string, code string) (*dto.AuthResponse, error)
}

type oauthService struct {
	client    *backend.Client
	google    GoogleExchanger
	tokens    TokenIssuer
	sessions  *session.Manager
	publisher events.Publisher
	logger    logger.ILogger
}

func NewOAuthService(
	client *backend.Client,
	google GoogleExchanger,
	tokens TokenIssuer,
	sessions *session.Manager,
	publisher events.Publisher,
	log logger.ILogger,
) IOAuthService {
	return &oauthService{
		client:    client,
		google:    google,
		tokens:    tokens,
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	if provider != entity.AuthProviderGoogle {
		return "", apperror.New(apperror.KindValidation, "Unsupported provider.")
	}
	if s.google == nil {
		return "", apperror.New(apperror.KindConfiguration, "Google sign-in is not configured.")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", apperror.Wrap(apperror.KindInternal, "Failed to start sign-in", err)
	}
	return s.google.AuthCodeURL(base64.URLEncoding.EncodeToString(b)), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider string, code string) (*dto.AuthResponse, error) {
	if provider != entity.AuthProviderGoogle {
		return nil, apperror.New(apperror.KindValidation, "Unsupported provider.")
	}
	if s.google == nil {
		return nil, apperror.New(apperror.KindConfiguration, "Google sign-in is not configured.")
	}

	googleUser, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Translate(err, "Google sign-in failed")
	}

	identity, _, err := s.client.Auth.SignInFederated(ctx, backend.FederatedProfile{
		Provider:       entity.AuthProviderGoogle,
		ProviderUserID: googleUser.ID,
		Email:          googleUser.Email,
		DisplayName:    googleUser.Name,
		PhotoURL:       googleUser.Picture,
		EmailVerified:  true,
	})
	if err != nil {
		return nil, apperror.Translate(err, "Google sign-in failed")
	}

	uow := s.client.Store.NewUnitOfWork(ctx)
	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: identity.UID})
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load profile")
	}

	eventType := events.UserLoggedIn
	if profile == nil {
		profile, err = s.createProfile(ctx, identity, googleUser)
		eventType = events.UserSignedUp
	} else {
		profile, err = s.refreshProfile(ctx, profile, googleUser)
	}
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssueTokens(ctx, identity.UID)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.ForUser(eventType, identity.UID, s.client.Clock(), map[string]interface{}{
		"provider": entity.AuthProviderGoogle,
	}))

	return &dto.AuthResponse{
		TokenResponse: tokenResponse(tokens),
		User:          dto.ProfileFrom(profile),
		Session:       sessionResponse(s.sessions.Resolve(ctx, identity.UID), ""),
	}, nil
}

// DefaultUsername derives a username from the email prefix, or from the
// uid when the prefix is not a valid username.
func DefaultUsername(email string, uid uuid.UUID) string {
	prefix, _, _ := strings.Cut(email, "@")
	if validation.IsUsername(prefix) {
		return prefix
	}
	return "user_" + uid.String()[:5]
}

func (s *oauthService) createProfile(ctx context.Context, identity *backend.Identity, googleUser *GoogleUser) (*entity.UserProfile, error) {
	username := DefaultUsername(identity.Email, identity.UID)
	available, err := reservation.NewRegistry(s.client.Store).Available(ctx, username, identity.UID)
	if err != nil {
		return nil, err
	}
	if !available {
		username = username + "_" + identity.UID.String()[:4]
	}

	name := googleUser.Name
	if name == "" {
		name = username
	}

	now := s.client.Clock()
	profile := &entity.UserProfile{
		Id:            identity.UID,
		Name:          name,
		Username:      username,
		Email:         identity.Email,
		EmailVerified: true,
		CreatedAt:     now,
		LastLogin:     now,
	}
	if googleUser.Picture != "" {
		photo := googleUser.Picture
		profile.PhotoURL = &photo
	}

	uow := s.client.Store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Translate(err, "Failed to create profile")
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, profile); err != nil {
		return nil, apperror.Translate(err, "Failed to create profile")
	}
	if err := reservation.Claim(ctx, uow, username, identity.UID); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Translate(err, "Failed to create profile")
	}

	s.logger.Info("OAuthService", "Profile created for Google account", map[string]interface{}{
		"user_id":  identity.UID.String(),
		"username": username,
	})
	s.notify(ctx, identity.UID)
	return profile, nil
}

func (s *oauthService) refreshProfile(ctx context.Context, profile *entity.UserProfile, googleUser *GoogleUser) (*entity.UserProfile, error) {
	now := s.client.Clock()
	fields := map[string]interface{}{
		"last_login":     now,
		"email_verified": true,
	}
	if googleUser.Name != "" {
		fields["name"] = googleUser.Name
		profile.Name = googleUser.Name
	}
	if googleUser.Picture != "" {
		fields["photo_url"] = googleUser.Picture
		photo := googleUser.Picture
		profile.PhotoURL = &photo
	}

	uow := s.client.Store.NewUnitOfWork(ctx)
	if err := uow.UserRepository().UpdateFields(ctx, profile.Id, fields); err != nil {
		return nil, apperror.Translate(err, "Failed to update profile")
	}
	profile.LastLogin = now
	profile.EmailVerified = true

	s.notify(ctx, profile.Id)
	return profile, nil
}

func (s *oauthService) notify(ctx context.Context, uid uuid.UUID) {
	if err := s.client.Notify(ctx, feed.UserTopic(uid)); err != nil {
		s.logger.Warn("OAuthService", "Failed to publish profile", map[string]interface{}{"error": err.Error()})
	}
}

// GoogleOAuth is the x/oauth2 backed GoogleExchanger.
type GoogleOAuth struct {
	conf *oauth2.Config
}

func NewGoogleOAuth(cfg config.AuthConfig) *GoogleOAuth {
	return &GoogleOAuth{conf: &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindAuthInvalidCredential, "Code exchange failed", err)
	}

	resp, err := g.conf.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("user info returned %d: %s", resp.StatusCode, body)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return &user, nil
}
