package service

import (
	"context"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/realtime"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 50

// Notifier is the part of NotificationService other services use.
type Notifier interface {
	Notify(ctx context.Context, userID, gymID primitive.ObjectID, kind domain.NotificationKind, title, body string) error
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, s domain.Session, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, s domain.Session, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, s domain.Session) (int64, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	broker realtime.Broker
	log    *zap.SugaredLogger
}

func NewNotificationService(repo repository.NotificationRepository, broker realtime.Broker, log *zap.SugaredLogger) NotificationService {
	return &notificationService{repo: repo, broker: broker, log: log}
}

// Notify stores the notification and pushes it to connected clients.
// Push failures are logged only; the stored row is the source of truth.
func (s *notificationService) Notify(ctx context.Context, userID, gymID primitive.ObjectID, kind domain.NotificationKind, title, body string) error {
	n := &domain.Notification{
		UserID: userID,
		GymID:  gymID,
		Kind:   kind,
		Title:  title,
		Body:   body,
	}
	id, err := s.repo.Create(ctx, n)
	if err != nil {
		return err
	}
	n.ID = id

	if s.broker != nil {
		if err := s.broker.Publish(ctx, userID, n); err != nil {
			s.log.Warnw("failed to publish notification", "user", userID.Hex(), "kind", kind, "error", err)
		}
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, sess domain.Session, unreadOnly bool) ([]domain.Notification, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, sess.UserID, unreadOnly, defaultNotificationLimit)
}

func (s *notificationService) MarkRead(ctx context.Context, sess domain.Session, id primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id, sess.UserID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, sess domain.Session) (int64, error) {
	if err := requireSession(sess); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, sess.UserID)
}

// notifyQuietly is used where a failed notification must not fail the
// caller's operation.
func notifyQuietly(ctx context.Context, n Notifier, log *zap.SugaredLogger, userID, gymID primitive.ObjectID, kind domain.NotificationKind, title, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, gymID, kind, title, body); err != nil {
		log.Warnw("failed to notify", "user", userID.Hex(), "kind", kind, "error", err)
	}
}
