// Package store persists GreenCrew entities. Every status change is a
// compare-and-set on the prior status.
package store

import (
	"context"
	"time"

	"greencrew/internal/models"
)

// Reader holds the read operations available both inside and outside a transaction.
type Reader interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	GetConversationByJob(ctx context.Context, jobID string) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	ListProgress(ctx context.Context, jobID string) ([]models.ProgressUpdate, error)
}

// Tx is a unit of work. Lock* methods take row locks held until commit.
type Tx interface {
	Reader

	LockJob(ctx context.Context, id string) (*models.Job, error)
	LockApplication(ctx context.Context, id string) (*models.Application, error)

	InsertJob(ctx context.Context, job *models.Job) error
	UpdateJobContent(ctx context.Context, job *models.Job) error
	SetJobStatus(ctx context.Context, id string, from, to models.JobStatus, at time.Time) error
	DeleteJob(ctx context.Context, id string) error

	InsertApplication(ctx context.Context, app *models.Application) error
	SetApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) error
	// RejectApplications moves every application of jobID (other than exceptID)
	// whose status is in from to rejected, and returns the rows it changed.
	RejectApplications(ctx context.Context, jobID, exceptID string, from []models.ApplicationStatus, at time.Time) ([]models.Application, error)

	// InsertConversation is a no-op returning false when the job already has one.
	InsertConversation(ctx context.Context, conv *models.Conversation) (bool, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	InsertProgress(ctx context.Context, update *models.ProgressUpdate) error
}

// Store is the lifecycle persistence surface.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	// MarkNotificationRead keeps the first read timestamp when already read.
	MarkNotificationRead(ctx context.Context, id string, at time.Time) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// BoundingBox is a lat/lng prefilter around a search point.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// CrossesAntimeridian is true when the longitude span cannot be expressed as one range.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLng < -180 || b.MaxLng > 180
}

// JobCursor marks the last job of a batch in (created_at DESC, id DESC) order.
type JobCursor struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether j sorts after the cursor position.
func (c *JobCursor) Before(j *models.Job) bool {
	if c == nil {
		return true
	}
	if j.CreatedAt.Equal(c.CreatedAt) {
		return j.ID < c.ID
	}
	return j.CreatedAt.Before(c.CreatedAt)
}

// JobQuery is the server-side part of a job search. Zero values mean "no filter".
// Results are ordered newest first; After resumes a batched read.
type JobQuery struct {
	Text               string
	Category           models.JobCategory
	MinRate            *float64
	MaxRate            *float64
	Urgency            models.Urgency
	RequiredExperience models.ExperienceLevel
	Status             models.JobStatus
	Certifications     []string
	Box                *BoundingBox
	After              *JobCursor
	Limit              int
}

type JobSearcher interface {
	SearchJobs(ctx context.Context, q JobQuery) ([]models.Job, error)
	// ScanJobs pages through every job regardless of status.
	ScanJobs(ctx context.Context, after *JobCursor, limit int) ([]models.Job, error)
	CountLiveApplications(ctx context.Context, jobIDs []string) (map[string]int, error)
}
