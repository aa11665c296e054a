// Package messaging carries the text conversation between a job's poster and
// its confirmed professional.
package messaging

import (
	"context"
	"strings"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/logger"
	"greencrew/internal/common/validation"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store"

	"github.com/google/uuid"
)

const maxContentLength = 2000

type Emitter interface {
	Emit(ctx context.Context, events ...notify.Event) int
}

type Service struct {
	store   store.Store
	emitter Emitter
	log     logger.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(st store.Store, emitter Emitter, log logger.Logger) *Service {
	return &Service{
		store:   st,
		emitter: emitter,
		log:     log.WithFields(map[string]interface{}{"component": "messaging"}),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

var contentSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"content": {Type: "string", MinLength: validation.Int(1), MaxLength: validation.Int(maxContentLength)},
	},
	Required: []string{"content"},
}

// Send appends a text message from actor and notifies the other participant.
func (s *Service) Send(ctx context.Context, actor models.Actor, conversationID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if err := validation.Check(contentSchema, map[string]interface{}{"content": content}); err != nil {
		return nil, err
	}

	var (
		msg  *models.Message
		conv *models.Conversation
		job  *models.Job
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		conv, err = s.participantConversation(ctx, tx, actor, conversationID)
		if err != nil {
			return err
		}
		job, err = tx.GetJob(ctx, conv.JobID)
		if err != nil {
			return err
		}
		msg = &models.Message{
			ID:             s.newID(),
			ConversationID: conv.ID,
			SenderID:       actor.UserID,
			Content:        content,
			Type:           models.MessageTypeText,
			CreatedAt:      s.now(),
		}
		return tx.InsertMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, notify.Event{Kind: notify.EventMessageSent, Job: job, Conversation: conv, Message: msg})
	}
	s.log.Debug("Message sent", map[string]interface{}{"conversationId": conv.ID, "senderId": actor.UserID})
	return msg, nil
}

// List returns the conversation's messages, oldest first.
func (s *Service) List(ctx context.Context, actor models.Actor, conversationID string) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, s.store, actor, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// participantConversation hides conversations the actor is not part of
// behind an authorization error.
func (s *Service) participantConversation(ctx context.Context, r store.Reader, actor models.Actor, id string) (*models.Conversation, error) {
	conv, err := r.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actor.UserID) {
		return nil, apperrors.NewAuthorizationError("not a participant in this conversation")
	}
	return conv, nil
}
