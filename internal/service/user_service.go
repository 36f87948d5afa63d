package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	"medimate-be/internal/apperror"
	"medimate-be/internal/dto"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/contract"
	"medimate-be/internal/repository/specification"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/events"
	"medimate-be/pkg/imageproc"
	"medimate-be/pkg/profile"

	"github.com/google/uuid"
)

// Pusher delivers a realtime frame to every open connection of a user.
type Pusher interface {
	Push(userID uuid.UUID, frameType string, data interface{})
}

type SaveProfileResponse struct {
	User     *dto.ProfileResponse     `json:"user"`
	Changed  []string                 `json:"changed"`
	Password *profile.PasswordOutcome `json:"password,omitempty"`
}

type IUserService interface {
	GetProfile(ctx context.Context, uid uuid.UUID) (*dto.ProfileResponse, error)
	SaveProfile(ctx context.Context, uid uuid.UUID, edits profile.Edits) (*SaveProfileResponse, error)
	UploadPicture(ctx context.Context, uid uuid.UUID, pic profile.Picture) (*dto.UploadPictureResponse, error)
	UploadProgress(ctx context.Context, uid uuid.UUID) (*dto.UploadProgressResponse, error)
	ListActivity(ctx context.Context, uid uuid.UUID, limit, offset int) ([]dto.ActivityResponse, int64, error)
}

type userService struct {
	client    *backend.Client
	mutator   *profile.Mutator
	progress  contract.UploadProgressRepository
	pusher    Pusher
	publisher events.Publisher
	logger    logger.ILogger
}

func NewUserService(
	client *backend.Client,
	mutator *profile.Mutator,
	progress contract.UploadProgressRepository,
	pusher Pusher,
	publisher events.Publisher,
	log logger.ILogger,
) IUserService {
	return &userService{
		client:    client,
		mutator:   mutator,
		progress:  progress,
		pusher:    pusher,
		publisher: publisher,
		logger:    log,
	}
}

func (s *userService) load(ctx context.Context, uid uuid.UUID) (*entity.UserProfile, error) {
	uow := s.client.Store.NewUnitOfWork(ctx)
	p, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: uid})
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load profile")
	}
	if p == nil {
		return nil, apperror.New(apperror.KindNotFound, "Profile not found.")
	}
	return p, nil
}

func (s *userService) GetProfile(ctx context.Context, uid uuid.UUID) (*dto.ProfileResponse, error) {
	p, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return dto.ProfileFrom(p), nil
}

// SaveProfile returns the result even when the password step failed, since
// the profile fields are already committed at that point.
func (s *userService) SaveProfile(ctx context.Context, uid uuid.UUID, edits profile.Edits) (*SaveProfileResponse, error) {
	current, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	result, saveErr := s.mutator.Save(ctx, current, edits)
	if result == nil {
		return nil, saveErr
	}

	now := s.client.Clock()
	if len(result.Changed) > 0 {
		publishEvent(ctx, s.publisher, s.logger, events.ForUser(events.ProfileUpdated, uid, now, map[string]interface{}{
			"fields": result.Changed,
		}))
	}
	if result.Password != nil && result.Password.State == profile.PasswordSuccess {
		publishEvent(ctx, s.publisher, s.logger, events.ForUser(events.PasswordChanged, uid, now, nil))
	}

	res := &SaveProfileResponse{Changed: result.Changed, Password: result.Password}
	if updated, err := s.load(ctx, uid); err == nil {
		res.User = dto.ProfileFrom(updated)
	}
	return res, saveErr
}

func (s *userService) UploadPicture(ctx context.Context, uid uuid.UUID, pic profile.Picture) (*dto.UploadPictureResponse, error) {
	if err := profile.ValidatePicture(pic.ContentType, pic.Size); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(pic.Body, profile.MaxPictureSize+1))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "Failed to read picture", err).WithField("picture")
	}
	if err := profile.ValidatePicture(pic.ContentType, int64(len(data))); err != nil {
		return nil, err
	}

	normalized, err := imageproc.Normalize(data, pic.ContentType)
	switch {
	case errors.Is(err, imageproc.ErrUnsupported):
		normalized = data
	case err != nil:
		return nil, apperror.Wrap(apperror.KindValidation, "The selected file is not a readable image.", err).WithField("picture")
	}
	pic.Body = bytes.NewReader(normalized)
	pic.Size = int64(len(normalized))

	s.reportProgress(uid, &entity.UploadProgress{Fraction: 0})
	url, err := s.mutator.UploadPicture(ctx, uid, pic, func(fraction float64) {
		s.reportProgress(uid, &entity.UploadProgress{Fraction: fraction})
	})
	if err != nil {
		s.reportProgress(uid, &entity.UploadProgress{Done: true, Error: err.Error()})
		if url != "" {
			return &dto.UploadPictureResponse{PhotoURL: url}, err
		}
		return nil, err
	}
	s.reportProgress(uid, &entity.UploadProgress{Fraction: 1, Done: true})

	publishEvent(ctx, s.publisher, s.logger, events.ForUser(events.ProfilePictureUpdated, uid, s.client.Clock(), map[string]interface{}{
		"photo_url": url,
	}))
	return &dto.UploadPictureResponse{PhotoURL: url}, nil
}

func (s *userService) reportProgress(uid uuid.UUID, p *entity.UploadProgress) {
	p.UserId = uid
	p.UpdatedAt = s.client.Clock()
	s.progress.Save(p)
	if s.pusher != nil {
		s.pusher.Push(uid, "upload_progress", dto.UploadProgressFrom(p))
	}
}

func (s *userService) UploadProgress(ctx context.Context, uid uuid.UUID) (*dto.UploadProgressResponse, error) {
	p, ok := s.progress.Get(uid)
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "No upload in progress.")
	}
	return dto.UploadProgressFrom(p), nil
}

func (s *userService) ListActivity(ctx context.Context, uid uuid.UUID, limit, offset int) ([]dto.ActivityResponse, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.client.Store.NewUnitOfWork(ctx)
	repo := uow.NotificationRepository()

	total, err := repo.Count(ctx, specification.UserOwnedBy{UserID: uid})
	if err != nil {
		return nil, 0, apperror.Translate(err, "Failed to load activity")
	}
	items, err := repo.FindAll(ctx,
		specification.UserOwnedBy{UserID: uid},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, 0, apperror.Translate(err, "Failed to load activity")
	}

	out := make([]dto.ActivityResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.ActivityFrom(n))
	}
	return out, total, nil
}
