package dto

import "medimate-be/pkg/backend"

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"mobile"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignInRequest accepts either an email address or a username in Email.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	TokenResponse
	User    *ProfileResponse `json:"user"`
	Session SessionResponse  `json:"session"`
}

type SessionResponse struct {
	Status   string            `json:"status"`
	Identity *backend.Identity `json:"identity,omitempty"`
	View     string            `json:"view,omitempty"`
	Decision string            `json:"decision,omitempty"`
}
