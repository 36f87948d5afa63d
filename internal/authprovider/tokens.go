package authprovider

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"medimate-be/internal/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func hashToken(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IssueTokens mints an access token and a refresh session for uid.
func (p *Provider) IssueTokens(ctx context.Context, uid uuid.UUID) (*Tokens, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"user_id": uid.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(p.cfg.AccessTokenTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.JWTSecret))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to sign token", err)
	}

	rawRefresh, err := randomToken()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to create session", err)
	}
	if err := p.sessions.Save(ctx, hashToken(rawRefresh), uid, now.Add(p.cfg.RefreshTokenTTL)); err != nil {
		return nil, apperror.Translate(err, "Failed to create session")
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresIn:    int64(p.cfg.AccessTokenTTL / time.Second),
	}, nil
}

// VerifyAccessToken returns the user id carried by a valid access token.
func (p *Provider) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return uuid.Nil, apperror.Wrap(apperror.KindAuthInvalidCredential, "Invalid or expired token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperror.New(apperror.KindAuthInvalidCredential, "Invalid token claims")
	}
	raw, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.KindAuthInvalidCredential, "Invalid token claims", err)
	}
	return uid, nil
}

// Refresh rotates a refresh token. The presented token is revoked even when
// issuing the new pair fails.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	hash := hashToken(refreshToken)
	session, err := p.sessions.Lookup(ctx, hash)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to refresh session")
	}
	if session == nil {
		return nil, apperror.New(apperror.KindAuthInvalidCredential, "Session expired. Please sign in again.")
	}
	if err := p.sessions.Revoke(ctx, hash); err != nil {
		return nil, apperror.Translate(err, "Failed to refresh session")
	}
	tokens, err := p.IssueTokens(ctx, session.UserId)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, session.UserId)
	return tokens, nil
}
