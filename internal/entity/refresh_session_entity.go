package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is what a stored refresh token resolves to.
type RefreshSession struct {
	UserId    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadProgress is the last reported progress of a picture upload.
type UploadProgress struct {
	UserId    uuid.UUID `json:"user_id"`
	Fraction  float64   `json:"fraction"`
	Done      bool      `json:"done"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
