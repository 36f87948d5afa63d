package service

import (
	"context"
	"fmt"
	"strings"

	"medimate-be/internal/dto"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/unitofwork"
	"medimate-be/pkg/events"

	"github.com/google/uuid"
)

const activityConsumer = "activity-log"

type activityTemplate struct {
	title   string
	message string
}

var activityTemplates = map[string]activityTemplate{
	events.UserSignedUp:          {"Welcome to MediMate", "Your account was created."},
	events.UserLoggedIn:          {"New sign-in", "You signed in to MediMate."},
	events.UserLoggedOut:         {"Signed out", "You signed out of MediMate."},
	events.EmailVerified:         {"Email verified", "Your email address is verified."},
	events.ProfileUpdated:        {"Profile updated", "Your profile details were changed."},
	events.PasswordChanged:       {"Password changed", "Your password was changed."},
	events.ProfilePictureUpdated: {"Profile picture updated", "Your profile picture was replaced."},
	events.ChatCreated:           {"Chat created", "A new chat was started."},
	events.ChatRenamed:           {"Chat renamed", "A chat was renamed."},
	events.ChatDeleted:           {"Chat deleted", "A chat was deleted."},
}

// ActivityService records domain events as the user's activity log and
// pushes each new entry to their open connections.
type ActivityService struct {
	store      unitofwork.RepositoryFactory
	subscriber events.Subscriber
	pusher     Pusher
	logger     logger.ILogger
}

func NewActivityService(store unitofwork.RepositoryFactory, sub events.Subscriber, pusher Pusher, log logger.ILogger) *ActivityService {
	return &ActivityService{
		store:      store,
		subscriber: sub,
		pusher:     pusher,
		logger:     log,
	}
}

// Start subscribes to every domain event until ctx ends.
func (s *ActivityService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, "events.>", activityConsumer, s.HandleEvent); err != nil {
		return fmt.Errorf("start activity consumer: %w", err)
	}
	s.logger.Info("ActivityService", "Listening to events.>", nil)
	return nil
}

func (s *ActivityService) HandleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	tmpl, ok := activityTemplates[typeCode]
	if !ok {
		s.logger.Debug("ActivityService", "Ignoring event without activity template", map[string]interface{}{"type": typeCode})
		return nil
	}

	uid, ok := events.UserID(event)
	if !ok {
		s.logger.Warn("ActivityService", "Event without user id", map[string]interface{}{"type": typeCode})
		return nil
	}

	metadata := map[string]interface{}{}
	for k, v := range event.Payload() {
		if k != "user_id" {
			metadata[k] = v
		}
	}

	n := &entity.Notification{
		Id:        uuid.New(),
		UserId:    uid,
		TypeCode:  typeCode,
		Title:     tmpl.title,
		Message:   tmpl.message,
		Metadata:  metadata,
		CreatedAt: event.Timestamp(),
	}

	uow := s.store.NewUnitOfWork(ctx)
	if err := uow.NotificationRepository().Create(ctx, n); err != nil {
		// Returned so the bus redelivers.
		return fmt.Errorf("record activity: %w", err)
	}

	if s.pusher != nil {
		s.pusher.Push(uid, "activity", dto.ActivityFrom(n))
	}
	return nil
}
