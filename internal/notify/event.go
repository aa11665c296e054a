package notify

import (
	"fmt"

	"greencrew/internal/models"
)

type EventKind string

const (
	EventApplicationSubmitted  EventKind = "application_submitted"
	EventApplicationAccepted   EventKind = "application_accepted"
	EventApplicationRejected   EventKind = "application_rejected"
	EventApplicationWithdrawn  EventKind = "application_withdrawn"
	EventProfessionalConfirmed EventKind = "professional_confirmed"
	EventProfessionalDenied    EventKind = "professional_denied"
	EventProgressReported      EventKind = "progress_reported"
	EventJobCompleted          EventKind = "job_completed"
	EventJobCancelled          EventKind = "job_cancelled"
	EventMessageSent           EventKind = "message_sent"
)

// Event describes a committed lifecycle transition.
type Event struct {
	Kind         EventKind
	Job          *models.Job
	Application  *models.Application
	Conversation *models.Conversation
	Message      *models.Message
	Progress     *models.ProgressUpdate
	// Recipients is used by fan-out events such as cancellation.
	Recipients []string
}

// draft is a notification before it receives an id and timestamp.
type draft struct {
	recipientID string
	kind        models.NotificationType
	title       string
	message     string
	metadata    map[string]interface{}
}

// translate maps an event to one draft per affected recipient.
func translate(e Event) []draft {
	meta := metadataFor(e)
	jobTitle := ""
	if e.Job != nil {
		jobTitle = e.Job.Title
	}

	switch e.Kind {
	case EventApplicationSubmitted:
		return one(e.Job.PosterID, models.NotificationApplicationReceived,
			"New application",
			fmt.Sprintf("A professional applied to %q at $%.2f/hr.", jobTitle, e.Application.ProposedRate), meta)

	case EventApplicationAccepted:
		return one(e.Application.ApplicantID, models.NotificationJobAccepted,
			"Application accepted",
			fmt.Sprintf("The course accepted your application for %q. Confirm to start the job.", jobTitle), meta)

	case EventApplicationRejected:
		return one(e.Application.ApplicantID, models.NotificationApplicationRejected,
			"Application not selected",
			fmt.Sprintf("Your application for %q was not selected.", jobTitle), meta)

	case EventApplicationWithdrawn:
		msg := fmt.Sprintf("The professional you accepted for %q withdrew.", jobTitle)
		if e.Job.Status == models.JobStatusInProgress {
			msg = fmt.Sprintf("The confirmed professional withdrew from %q. Cancel the job to repost it.", jobTitle)
		}
		return one(e.Job.PosterID, models.NotificationApplicationWithdrawn, "Professional withdrew", msg, meta)

	case EventProfessionalConfirmed:
		return one(e.Job.PosterID, models.NotificationJobConfirmed,
			"Job confirmed",
			fmt.Sprintf("The professional confirmed %q. A conversation has been opened.", jobTitle), meta)

	case EventProfessionalDenied:
		return one(e.Job.PosterID, models.NotificationJobDenied,
			"Offer declined",
			fmt.Sprintf("The professional declined %q. The job is open again.", jobTitle), meta)

	case EventProgressReported:
		return one(e.Job.PosterID, models.NotificationJobUpdate,
			"Progress update",
			fmt.Sprintf("New progress on %q: %s", jobTitle, truncate(e.Progress.Content, 140)), meta)

	case EventJobCompleted:
		return one(e.Job.PosterID, models.NotificationJobCompleted,
			"Job completed",
			fmt.Sprintf("%q has been marked complete.", jobTitle), meta)

	case EventJobCancelled:
		out := make([]draft, 0, len(e.Recipients))
		for _, r := range e.Recipients {
			out = append(out, one(r, models.NotificationJobCancelled,
				"Job cancelled",
				fmt.Sprintf("%q was cancelled by the course.", jobTitle), meta)...)
		}
		return out

	case EventMessageSent:
		return one(e.Conversation.Counterpart(e.Message.SenderID), models.NotificationMessage,
			"New message",
			truncate(e.Message.Content, 140), meta)
	}
	return nil
}

func one(recipientID string, kind models.NotificationType, title, message string, meta map[string]interface{}) []draft {
	if recipientID == "" {
		return nil
	}
	return []draft{{recipientID: recipientID, kind: kind, title: title, message: message, metadata: meta}}
}

// metadataFor carries the ids needed to deep-link from a notification.
func metadataFor(e Event) map[string]interface{} {
	meta := map[string]interface{}{}
	if e.Job != nil {
		meta["jobId"] = e.Job.ID
		meta["urgency"] = string(e.Job.Urgency)
	}
	if e.Application != nil {
		meta["applicationId"] = e.Application.ID
	}
	if e.Conversation != nil {
		meta["conversationId"] = e.Conversation.ID
	}
	if e.Message != nil {
		meta["messageId"] = e.Message.ID
	}
	if e.Progress != nil {
		meta["progressId"] = e.Progress.ID
		meta["milestone"] = string(e.Progress.Milestone)
	}
	return meta
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
