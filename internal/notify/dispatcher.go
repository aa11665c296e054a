package notify

import (
	"context"
	"time"

	"greencrew/internal/models"
)

// MessagePublisher publishes a correlated workflow message.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, ttl time.Duration, variables interface{}) error
}

// WorkflowDispatcher starts delivery by publishing a message per notification.
type WorkflowDispatcher struct {
	publisher   MessagePublisher
	messageName string
	ttl         time.Duration
}

func NewWorkflowDispatcher(publisher MessagePublisher, messageName string, ttl time.Duration) *WorkflowDispatcher {
	return &WorkflowDispatcher{publisher: publisher, messageName: messageName, ttl: ttl}
}

type dispatchVariables struct {
	NotificationID string `json:"notificationId"`
	RecipientID    string `json:"recipientId"`
	Type           string `json:"type"`
}

func (d *WorkflowDispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	return d.publisher.PublishMessage(ctx, d.messageName, n.ID, d.ttl, dispatchVariables{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Type:           string(n.Type),
	})
}
