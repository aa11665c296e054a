package notify

import (
	"context"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
)

// Inbox is the recipient-facing view of notifications.
type Inbox interface {
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	inbox Inbox
	now   func() time.Time
}

func NewService(inbox Inbox) *Service {
	return &Service{inbox: inbox, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.inbox.ListNotifications(ctx, actor.UserID, unreadOnly, limit)
}

// MarkRead is idempotent; only the recipient may mark a notification.
func (s *Service) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	n, err := s.inbox.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != actor.UserID {
		return nil, apperrors.NewAuthorizationError("notification belongs to another user")
	}
	return s.inbox.MarkNotificationRead(ctx, id, s.now())
}

func (s *Service) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return s.inbox.MarkAllNotificationsRead(ctx, actor.UserID, s.now())
}
