package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	Id            uuid.UUID
	Name          string
	Username      string
	Email         string
	Mobile        *string
	PhotoURL      *string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLogin     time.Time
}

type UsernameReservation struct {
	Username  string
	UserId    uuid.UUID
	CreatedAt time.Time
}

const (
	AuthProviderPassword = "password"
	AuthProviderGoogle   = "google"
)

type AuthAccount struct {
	Id                  uuid.UUID
	Email               string
	PasswordHash        *string
	DisplayName         string
	PhotoURL            *string
	EmailVerified       bool
	Provider            string
	ProviderUserId      *string
	LastAuthenticatedAt time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type EmailVerificationToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
