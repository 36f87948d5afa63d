package mapper

import (
	"medimate-be/internal/entity"
	"medimate-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ProfileToEntity(u *model.UserProfile) *entity.UserProfile {
	if u == nil {
		return nil
	}
	return &entity.UserProfile{
		Id:            u.Id,
		Name:          u.Name,
		Username:      u.Username,
		Email:         u.Email,
		Mobile:        u.Mobile,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastLogin:     u.LastLogin,
	}
}

func (m *UserMapper) ProfileToModel(u *entity.UserProfile) *model.UserProfile {
	if u == nil {
		return nil
	}
	return &model.UserProfile{
		Id:            u.Id,
		Name:          u.Name,
		Username:      u.Username,
		Email:         u.Email,
		Mobile:        u.Mobile,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastLogin:     u.LastLogin,
	}
}

func (m *UserMapper) ReservationToEntity(r *model.UsernameReservation) *entity.UsernameReservation {
	if r == nil {
		return nil
	}
	return &entity.UsernameReservation{
		Username:  r.Username,
		UserId:    r.UserId,
		CreatedAt: r.CreatedAt,
	}
}

func (m *UserMapper) ReservationToModel(r *entity.UsernameReservation) *model.UsernameReservation {
	if r == nil {
		return nil
	}
	return &model.UsernameReservation{
		Username:  r.Username,
		UserId:    r.UserId,
		CreatedAt: r.CreatedAt,
	}
}

func (m *UserMapper) AccountToEntity(a *model.AuthAccount) *entity.AuthAccount {
	if a == nil {
		return nil
	}
	return &entity.AuthAccount{
		Id:                  a.Id,
		Email:               a.Email,
		PasswordHash:        a.PasswordHash,
		DisplayName:         a.DisplayName,
		PhotoURL:            a.PhotoURL,
		EmailVerified:       a.EmailVerified,
		Provider:            a.Provider,
		ProviderUserId:      a.ProviderUserId,
		LastAuthenticatedAt: a.LastAuthenticatedAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (m *UserMapper) AccountToModel(a *entity.AuthAccount) *model.AuthAccount {
	if a == nil {
		return nil
	}
	return &model.AuthAccount{
		Id:                  a.Id,
		Email:               a.Email,
		PasswordHash:        a.PasswordHash,
		DisplayName:         a.DisplayName,
		PhotoURL:            a.PhotoURL,
		EmailVerified:       a.EmailVerified,
		Provider:            a.Provider,
		ProviderUserId:      a.ProviderUserId,
		LastAuthenticatedAt: a.LastAuthenticatedAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (m *UserMapper) VerificationTokenToEntity(t *model.EmailVerificationToken) *entity.EmailVerificationToken {
	if t == nil {
		return nil
	}
	return &entity.EmailVerificationToken{
		Id:        t.Id,
		UserId:    t.UserId,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

func (m *UserMapper) VerificationTokenToModel(t *entity.EmailVerificationToken) *model.EmailVerificationToken {
	if t == nil {
		return nil
	}
	return &model.EmailVerificationToken{
		Id:        t.Id,
		UserId:    t.UserId,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}
