package service

import (
	"context"
	"strings"

	"medimate-be/internal/apperror"
	"medimate-be/internal/authprovider"
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
)

// TokenIssuer mints and rotates the tokens handed to clients.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, uid uuid.UUID) (*authprovider.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*authprovider.Tokens, error)
	VerifyEmail(ctx context.Context, token string) (uuid.UUID, error)
}

type IAuthService interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	SignOut(ctx context.Context, uid uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, uid uuid.UUID) error
	CheckVerification(ctx context.Context, uid uuid.UUID) (*dto.SessionResponse, error)
	Session(ctx context.Context, uid uuid.UUID, view string) (*dto.SessionResponse, error)
}

type authService struct {
	client    *backend.Client
	tokens    TokenIssuer
	sessions  *session.Manager
	registry  *reservation.Registry
	publisher events.Publisher
	logger    logger.ILogger
}

func NewAuthService(
	client *backend.Client,
	tokens TokenIssuer,
	sessions *session.Manager,
	registry *reservation.Registry,
	publisher events.Publisher,
	log logger.ILogger,
) IAuthService {
	return &authService{
		client:    client,
		tokens:    tokens,
		sessions:  sessions,
		registry:  registry,
		publisher: publisher,
		logger:    log,
	}
}

func (s *authService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if err := validation.Check(req); err != nil {
		return nil, err
	}

	// Preliminary check so a taken name costs no auth account.
	available, err := s.registry.Available(ctx, req.Username, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, reservation.Taken()
	}

	identity, err := s.client.Auth.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to create account")
	}

	if err := s.client.Auth.UpdateProfileFields(ctx, identity.UID, backend.ProfileFields{DisplayName: &req.Name}); err != nil {
		s.discardAccount(ctx, identity.UID)
		return nil, apperror.Translate(err, "Failed to create account")
	}

	now := s.client.Clock()
	profile := &entity.UserProfile{
		Id:            identity.UID,
		Name:          req.Name,
		Username:      req.Username,
		Email:         identity.Email,
		PhotoURL:      identity.PhotoURL,
		EmailVerified: false,
		CreatedAt:     now,
		LastLogin:     now,
	}
	if req.Mobile != "" {
		profile.Mobile = &req.Mobile
	}

	if err := s.createProfile(ctx, profile); err != nil {
		s.discardAccount(ctx, identity.UID)
		return nil, err
	}

	if err := s.client.Auth.SendVerificationEmail(ctx, identity.UID); err != nil {
		s.logger.Warn("AuthService", "Verification email not sent", map[string]interface{}{
			"user_id": identity.UID.String(),
			"error":   err.Error(),
		})
	}

	s.publish(ctx, events.UserSignedUp, identity.UID, map[string]interface{}{"username": profile.Username})
	s.logger.Info("AuthService", "User signed up", map[string]interface{}{"user_id": identity.UID.String()})

	return s.authResponse(ctx, identity.UID, profile)
}

func (s *authService) createProfile(ctx context.Context, profile *entity.UserProfile) error {
	uow := s.client.Store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Translate(err, "Failed to create profile")
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, profile); err != nil {
		return apperror.Translate(err, "Failed to create profile")
	}
	if err := reservation.Claim(ctx, uow, profile.Username, profile.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return apperror.Translate(err, "Failed to create profile")
	}

	if err := s.client.Notify(ctx, feed.UserTopic(profile.Id)); err != nil {
		s.logger.Warn("AuthService", "Failed to publish profile", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// discardAccount removes an auth account whose profile could not be written.
func (s *authService) discardAccount(ctx context.Context, uid uuid.UUID) {
	if err := s.client.Auth.Delete(ctx, uid); err != nil {
		s.logger.Error("AuthService", "Failed to clean up partially created account", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err,
		})
	}
}

func (s *authService) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Check(req); err != nil {
		return nil, err
	}

	email := req.Email
	if !strings.Contains(email, "@") {
		resolved, err := s.emailForUsername(ctx, email)
		if err != nil {
			return nil, err
		}
		email = resolved
	}

	identity, err := s.client.Auth.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to sign in")
	}

	uow := s.client.Store.NewUnitOfWork(ctx)
	if err := uow.UserRepository().UpdateFields(ctx, identity.UID, map[string]interface{}{"last_login": s.client.Clock()}); err != nil {
		s.logger.Warn("AuthService", "Failed to record last login", map[string]interface{}{
			"user_id": identity.UID.String(),
			"error":   err.Error(),
		})
	}

	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: identity.UID})
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load profile")
	}

	s.publish(ctx, events.UserLoggedIn, identity.UID, nil)
	return s.authResponse(ctx, identity.UID, profile)
}

// emailForUsername follows username -> reservation -> profile email. Any
// missing link reads as bad credentials.
func (s *authService) emailForUsername(ctx context.Context, username string) (string, error) {
	uow := s.client.Store.NewUnitOfWork(ctx)
	reserved, err := uow.UsernameRepository().FindOne(ctx, username)
	if err != nil {
		return "", apperror.Translate(err, "Failed to sign in")
	}
	if reserved == nil {
		return "", apperror.New(apperror.KindAuthInvalidCredential, "Invalid email/username or password.")
	}

	profile, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: reserved.UserId})
	if err != nil {
		return "", apperror.Translate(err, "Failed to sign in")
	}
	if profile == nil || profile.Email == "" {
		return "", apperror.New(apperror.KindAuthInvalidCredential, "Invalid email/username or password.")
	}
	return profile.Email, nil
}

func (s *authService) authResponse(ctx context.Context, uid uuid.UUID, profile *entity.UserProfile) (*dto.AuthResponse, error) {
	tokens, err := s.tokens.IssueTokens(ctx, uid)
	if err != nil {
		return nil, err
	}
	state := s.sessions.Resolve(ctx, uid)
	return &dto.AuthResponse{
		TokenResponse: tokenResponse(tokens),
		User:          dto.ProfileFrom(profile),
		Session:       sessionResponse(state, ""),
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	tokens, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	res := tokenResponse(tokens)
	return &res, nil
}

func (s *authService) SignOut(ctx context.Context, uid uuid.UUID) error {
	if err := s.sessions.SignOut(ctx, uid); err != nil {
		return err
	}
	s.publish(ctx, events.UserLoggedOut, uid, nil)
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperror.FieldError(apperror.KindValidation, "token", "Verification token is required.")
	}
	uid, err := s.tokens.VerifyEmail(ctx, token)
	if err != nil {
		return err
	}
	s.publish(ctx, events.EmailVerified, uid, nil)
	return nil
}

func (s *authService) ResendVerification(ctx context.Context, uid uuid.UUID) error {
	return s.sessions.ResendVerification(ctx, uid)
}

func (s *authService) CheckVerification(ctx context.Context, uid uuid.UUID) (*dto.SessionResponse, error) {
	state := s.sessions.CheckVerification(ctx, uid)
	res := sessionResponse(state, "")
	return &res, nil
}

func (s *authService) Session(ctx context.Context, uid uuid.UUID, view string) (*dto.SessionResponse, error) {
	state := s.sessions.Resolve(ctx, uid)
	if view == "" {
		res := sessionResponse(state, "")
		return &res, nil
	}
	v, ok := session.ParseView(view)
	if !ok {
		return nil, apperror.FieldError(apperror.KindValidation, "view", "Unknown view.")
	}
	res := sessionResponse(state, v)
	return &res, nil
}

func (s *authService) publish(ctx context.Context, eventType string, uid uuid.UUID, data map[string]interface{}) {
	publishEvent(ctx, s.publisher, s.logger, events.ForUser(eventType, uid, s.client.Clock(), data))
}

func tokenResponse(t *authprovider.Tokens) dto.TokenResponse {
	return dto.TokenResponse{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, ExpiresIn: t.ExpiresIn}
}

func sessionResponse(state session.State, view session.View) dto.SessionResponse {
	res := dto.SessionResponse{Status: string(state.Status), Identity: state.Identity}
	if view != "" {
		res.View = string(view)
		res.Decision = string(session.Gate(state, view))
	}
	return res
}

func publishEvent(ctx context.Context, publisher events.Publisher, log logger.ILogger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Events", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
