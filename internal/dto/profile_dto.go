package dto

import (
	"time"

	"medimate-be/internal/entity"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	Id            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Mobile        *string   `json:"mobile"`
	PhotoURL      *string   `json:"photo_url"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	LastLogin     time.Time `json:"last_login"`
}

func ProfileFrom(p *entity.UserProfile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		Id:            p.Id,
		Name:          p.Name,
		Username:      p.Username,
		Email:         p.Email,
		Mobile:        p.Mobile,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
		CreatedAt:     p.CreatedAt,
		LastLogin:     p.LastLogin,
	}
}

type UploadPictureResponse struct {
	PhotoURL string `json:"photo_url"`
}

type UploadProgressResponse struct {
	Fraction  float64   `json:"fraction"`
	Done      bool      `json:"done"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func UploadProgressFrom(p *entity.UploadProgress) *UploadProgressResponse {
	if p == nil {
		return nil
	}
	return &UploadProgressResponse{
		Fraction:  p.Fraction,
		Done:      p.Done,
		Error:     p.Error,
		UpdatedAt: p.UpdatedAt,
	}
}

type ActivityResponse struct {
	Id        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func ActivityFrom(n *entity.Notification) ActivityResponse {
	return ActivityResponse{
		Id:        n.Id,
		Type:      n.TypeCode,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}

type ActivityPage struct {
	Items  []ActivityResponse `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
