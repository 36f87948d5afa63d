package model

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the store-side user record, separate from the auth account.
type UserProfile struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"type:varchar(50);not null"`
	Username      string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email         string    `gorm:"type:varchar(255);not null"`
	Mobile        *string   `gorm:"type:varchar(20)"`
	PhotoURL      *string   `gorm:"type:text"`
	EmailVerified bool      `gorm:"default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
	LastLogin     time.Time
}

func (UserProfile) TableName() string {
	return "users"
}

// UsernameReservation is keyed by the username itself so a second insert for
// the same name fails on the primary key.
type UsernameReservation struct {
	Username  string    `gorm:"type:varchar(64);primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UsernameReservation) TableName() string {
	return "usernames"
}
