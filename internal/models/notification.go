package models

import "time"

type NotificationType string

const (
	NotificationApplicationReceived  NotificationType = "application_received"
	NotificationApplicationRejected  NotificationType = "application_rejected"
	NotificationApplicationWithdrawn NotificationType = "application_withdrawn"
	NotificationJobAccepted          NotificationType = "job_accepted"
	NotificationJobConfirmed         NotificationType = "job_confirmed"
	NotificationJobDenied            NotificationType = "job_denied"
	NotificationJobUpdate            NotificationType = "job_update"
	NotificationJobCompleted         NotificationType = "job_completed"
	NotificationJobCancelled         NotificationType = "job_cancelled"
	NotificationMessage              NotificationType = "message"
)

type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipientId"`
	Type        NotificationType       `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"createdAt"`
	ReadAt      *time.Time             `json:"readAt,omitempty"`
}

func (n *Notification) IsRead() bool { return n.ReadAt != nil }
