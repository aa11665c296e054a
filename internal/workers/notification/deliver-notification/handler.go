// internal/workers/notification/deliver-notification/handler.go
package delivernotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"greencrew/internal/common/auth"
	"greencrew/internal/common/aws"
	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/logger"
	"greencrew/internal/common/metrics"
	"greencrew/internal/models"
	"greencrew/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "deliver-notification"
)

type NotificationSource interface {
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
}

// UserDirectory supplies an email address when the profile has none.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*auth.User, error)
}

type EmailSender interface {
	Send(ctx context.Context, e aws.Email) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, m aws.SMS) (string, error)
}

type Deps struct {
	Notifications NotificationSource
	Profiles      store.ProfileStore
	Directory     UserDirectory
	Email         EmailSender
	SMS           SMSSender
}

type Handler struct {
	config       *Config
	deps         Deps
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	templates    map[models.NotificationType]template
	now          func() time.Time
}

type template struct {
	Subject string
	Body    string
}

func NewHandler(config *Config, deps Deps, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		deps:         deps,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		templates:    loadTemplates(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil || input.NotificationID == "" {
		h.fail(ctx, client, job, apperrors.NewValidationError("Invalid job variables",
			apperrors.FieldError{Field: "notificationId", Message: "is required"}))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// execute delivers one notification. Missing notifications and unreachable
// recipients complete as disabled; send failures are returned as retryable
// errors carrying status=failed.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{NotificationID: input.NotificationID, Status: StatusDisabled, SentAt: h.now().Format(time.RFC3339)}

	n, err := h.deps.Notifications.GetNotification(ctx, input.NotificationID)
	if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		h.logger.Warn("notification not found", map[string]interface{}{"notificationId": input.NotificationID})
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	to, err := h.recipientContact(ctx, n.RecipientID)
	if err != nil {
		return nil, err
	}
	if to == nil {
		h.logger.Warn("recipient not found", map[string]interface{}{"recipientId": n.RecipientID})
		return out, nil
	}

	tmpl, ok := h.templates[n.Type]
	if !ok {
		tmpl = template{Subject: "{{title}}", Body: "{{message}}"}
	}
	data := map[string]interface{}{
		"name":    to.Name,
		"title":   n.Title,
		"message": n.Message,
	}
	for k, v := range n.Metadata {
		data[k] = v
	}
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	if h.config.EmailEnabled && h.deps.Email != nil && to.Email != "" {
		if _, err := h.deps.Email.Send(ctx, aws.Email{From: h.config.FromEmail, To: to.Email, Subject: subject, Text: body}); err != nil {
			h.logger.WithError(err).Error("email send failed", map[string]interface{}{"notificationId": n.ID})
			return nil, failed(n.ID, ChannelEmail, err)
		}
		out.Channels = append(out.Channels, ChannelEmail)
	}

	if h.config.SMSEnabled && h.deps.SMS != nil && to.Phone != "" && wantsSMS(n) {
		if _, err := h.deps.SMS.Send(ctx, aws.SMS{PhoneNumber: to.Phone, Message: subject + ": " + n.Message, SenderID: h.config.SMSSenderID}); err != nil {
			h.logger.WithError(err).Error("SMS send failed", map[string]interface{}{"notificationId": n.ID})
			return nil, failed(n.ID, ChannelSMS, err)
		}
		out.Channels = append(out.Channels, ChannelSMS)
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}
	return out, nil
}

func failed(notificationID, channel string, err error) error {
	return apperrors.NewNotificationSendFailedError(channel, err).
		WithMetadata("notificationId", notificationID).
		WithMetadata("status", StatusFailed)
}

// wantsSMS is true for hiring outcomes on emergency jobs.
func wantsSMS(n *models.Notification) bool {
	switch n.Type {
	case models.NotificationJobConfirmed, models.NotificationJobDenied, models.NotificationJobCompleted:
	default:
		return false
	}
	urgency, _ := n.Metadata["urgency"].(string)
	return models.Urgency(urgency) == models.UrgencyEmergency
}

// recipientContact returns nil when neither the profile nor the directory
// knows the recipient.
func (h *Handler) recipientContact(ctx context.Context, recipientID string) (*contact, error) {
	var c *contact
	p, err := h.deps.Profiles.GetProfile(ctx, recipientID)
	switch {
	case err == nil:
		c = &contact{Name: p.DisplayName, Email: p.Email, Phone: p.Phone}
	case !apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		return nil, err
	}

	if (c == nil || c.Email == "") && h.deps.Directory != nil {
		user, err := h.deps.Directory.GetUser(ctx, recipientID)
		switch {
		case err == nil:
			if c == nil {
				c = &contact{Name: strings.TrimSpace(user.FirstName + " " + user.LastName)}
			}
			c.Email = user.Email
		case !apperrors.IsCode(err, apperrors.ErrCodeNotFound):
			return nil, err
		}
	}
	return c, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
		"status":         output.Status,
	})
}

// renderTemplate replaces {{key}} placeholders in one pass over the template
// and drops unknown ones. Substituted values are never rescanned.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		key := rest[start+2 : start+end]
		switch val := data[key].(type) {
		case string:
			b.WriteString(val)
		case nil:
		default:
			b.WriteString(fmt.Sprintf("%v", val))
		}
		rest = rest[start+end+2:]
	}
	return b.String()
}

func loadTemplates() map[models.NotificationType]template {
	return map[models.NotificationType]template{
		models.NotificationApplicationReceived: {
			Subject: "New application: {{title}}",
			Body:    "Hello {{name}},\n\n{{message}}\n\nReview it in GreenCrew.",
		},
		models.NotificationJobAccepted: {
			Subject: "You have a job offer",
			Body:    "Hello {{name}},\n\n{{message}}\n\nConfirm or decline the offer in GreenCrew.",
		},
		models.NotificationJobConfirmed: {
			Subject: "Your job is staffed",
			Body:    "Hello {{name}},\n\n{{message}}",
		},
		models.NotificationJobDenied: {
			Subject: "Offer declined",
			Body:    "Hello {{name}},\n\n{{message}}\n\nYour other applicants are still available.",
		},
		models.NotificationJobCompleted: {
			Subject: "Job completed",
			Body:    "Hello {{name}},\n\n{{message}}",
		},
		models.NotificationJobCancelled: {
			Subject: "Job cancelled",
			Body:    "Hello {{name}},\n\n{{message}}",
		},
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
