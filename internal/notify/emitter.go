// Package notify turns committed lifecycle transitions into notification
// records. Emission is best-effort and never fails the caller.
package notify

import (
	"context"
	"time"

	"greencrew/internal/common/logger"
	"greencrew/internal/common/metrics"
	"greencrew/internal/models"

	"github.com/google/uuid"
)

// Sink persists notification records.
type Sink interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Dispatcher hands a stored notification to an external delivery process.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

type Emitter struct {
	sink       Sink
	dispatcher Dispatcher
	log        logger.Logger
	now        func() time.Time
	newID      func() string
}

// NewEmitter builds an emitter; dispatcher may be nil.
func NewEmitter(sink Sink, dispatcher Dispatcher, log logger.Logger) *Emitter {
	return &Emitter{
		sink:       sink,
		dispatcher: dispatcher,
		log:        log.WithFields(map[string]interface{}{"component": "notify"}),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Emit records the notifications for each event and returns how many were stored.
func (e *Emitter) Emit(ctx context.Context, events ...Event) int {
	stored := 0
	for _, ev := range events {
		for _, d := range translate(ev) {
			n := &models.Notification{
				ID:          e.newID(),
				RecipientID: d.recipientID,
				Type:        d.kind,
				Title:       d.title,
				Message:     d.message,
				Metadata:    d.metadata,
				CreatedAt:   e.now(),
			}
			if e.deliver(ctx, n) {
				stored++
			}
		}
	}
	return stored
}

func (e *Emitter) deliver(ctx context.Context, n *models.Notification) bool {
	fields := map[string]interface{}{
		"notificationId": n.ID,
		"recipientId":    n.RecipientID,
		"type":           string(n.Type),
	}

	if err := e.sink.InsertNotification(ctx, n); err != nil {
		metrics.NotificationsEmitted.WithLabelValues(string(n.Type), "dropped").Inc()
		e.log.WithError(err).Error("Failed to store notification", fields)
		return false
	}
	metrics.NotificationsEmitted.WithLabelValues(string(n.Type), "stored").Inc()

	if e.dispatcher != nil {
		if err := e.dispatcher.Dispatch(ctx, n); err != nil {
			metrics.NotificationsEmitted.WithLabelValues(string(n.Type), "dispatch_failed").Inc()
			e.log.WithError(err).Warn("Failed to dispatch notification", fields)
		}
	}
	e.log.Debug("Notification emitted", fields)
	return true
}
