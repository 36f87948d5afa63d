package model

import (
	"time"

	"github.com/google/uuid"
)

type AuthAccount struct {
	Id                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email               string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash        *string   `gorm:"type:varchar(255)"`
	DisplayName         string    `gorm:"type:varchar(255)"`
	PhotoURL            *string   `gorm:"type:text"`
	EmailVerified       bool      `gorm:"default:false"`
	Provider            string    `gorm:"type:varchar(50);not null;default:'password'"`
	ProviderUserId      *string   `gorm:"type:varchar(255);index"`
	LastAuthenticatedAt time.Time
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (AuthAccount) TableName() string {
	return "auth_accounts"
}

type EmailVerificationToken struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (EmailVerificationToken) TableName() string {
	return "email_verification_tokens"
}
