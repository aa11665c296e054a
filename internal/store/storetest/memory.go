// Package storetest provides an in-memory store for tests that exercise the
// engines without a database.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
	"greencrew/internal/store"
)

// Memory implements store.Store, store.NotificationStore, store.ProfileStore
// and store.JobSearcher. Transactions are serialized and roll back on error.
type Memory struct {
	mu   sync.Mutex
	data *dataset

	// NotificationErr, when set, fails every InsertNotification.
	NotificationErr error
}

type dataset struct {
	jobs          map[string]models.Job
	applications  map[string]models.Application
	conversations map[string]models.Conversation
	messages      []models.Message
	progress      []models.ProgressUpdate
	notifications map[string]models.Notification
	profiles      map[string]models.Profile
}

var (
	_ store.Store             = (*Memory)(nil)
	_ store.NotificationStore = (*Memory)(nil)
	_ store.ProfileStore      = (*Memory)(nil)
	_ store.JobSearcher       = (*Memory)(nil)
	_ store.Tx                = (*memTx)(nil)
)

func New() *Memory {
	return &Memory{data: &dataset{
		jobs:          map[string]models.Job{},
		applications:  map[string]models.Application{},
		conversations: map[string]models.Conversation{},
		notifications: map[string]models.Notification{},
		profiles:      map[string]models.Profile{},
	}}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		jobs:          make(map[string]models.Job, len(d.jobs)),
		applications:  make(map[string]models.Application, len(d.applications)),
		conversations: make(map[string]models.Conversation, len(d.conversations)),
		messages:      append([]models.Message(nil), d.messages...),
		progress:      append([]models.ProgressUpdate(nil), d.progress...),
		notifications: make(map[string]models.Notification, len(d.notifications)),
		profiles:      d.profiles,
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	for k, v := range d.applications {
		c.applications[k] = v
	}
	for k, v := range d.conversations {
		c.conversations[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	return c
}

func (m *Memory) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memTx{d: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *Memory) view() *memTx {
	return &memTx{d: m.data}
}

// ==========================
// Seeding and inspection
// ==========================

func (m *Memory) PutProfile(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.profiles[p.ID] = p
}

func (m *Memory) PutJob(j models.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.jobs[j.ID] = j
}

func (m *Memory) PutApplication(a models.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.applications[a.ID] = a
}

func (m *Memory) Conversations() []models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Conversation, 0, len(m.data.conversations))
	for _, c := range m.data.conversations {
		out = append(out, c)
	}
	return out
}

func (m *Memory) AllMessages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.data.messages...)
}

// NotificationsFor returns every notification of a recipient, oldest first.
func (m *Memory) NotificationsFor(recipientID string) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.data.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ==========================
// store.Reader (outside transactions)
// ==========================

func (m *Memory) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetJob(ctx, id)
}

func (m *Memory) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetApplication(ctx, id)
}

func (m *Memory) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListApplicationsByJob(ctx, jobID)
}

func (m *Memory) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListApplicationsByApplicant(ctx, applicantID)
}

func (m *Memory) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetConversation(ctx, id)
}

func (m *Memory) GetConversationByJob(ctx context.Context, jobID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().GetConversationByJob(ctx, jobID)
}

func (m *Memory) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListMessages(ctx, conversationID)
}

func (m *Memory) ListProgress(ctx context.Context, jobID string) ([]models.ProgressUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().ListProgress(ctx, jobID)
}

// ==========================
// store.NotificationStore
// ==========================

func (m *Memory) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotificationErr != nil {
		return m.NotificationErr
	}
	m.data.notifications[n.ID] = *n
	return nil
}

func (m *Memory) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.data.notifications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("notification", id)
	}
	return &n, nil
}

func (m *Memory) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	all := m.NotificationsFor(recipientID)
	out := make([]models.Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if unreadOnly && all[i].IsRead() {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id string, at time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.data.notifications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("notification", id)
	}
	if n.ReadAt == nil {
		t := at
		n.ReadAt = &t
		m.data.notifications[id] = n
	}
	return &n, nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, n := range m.data.notifications {
		if n.RecipientID == recipientID && n.ReadAt == nil {
			t := at
			n.ReadAt = &t
			m.data.notifications[id] = n
			count++
		}
	}
	return count, nil
}

// ==========================
// store.ProfileStore, store.JobSearcher
// ==========================

func (m *Memory) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.profiles[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("profile", id)
	}
	return &p, nil
}

func (m *Memory) SearchJobs(ctx context.Context, q store.JobQuery) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := q.Status
	if status == "" {
		status = models.JobStatusOpen
	}
	text := strings.ToLower(q.Text)

	var out []models.Job
	for _, j := range m.data.jobs {
		switch {
		case j.Status != status,
			q.Category != "" && j.Category != q.Category,
			q.MinRate != nil && j.HourlyRate < *q.MinRate,
			q.MaxRate != nil && j.HourlyRate > *q.MaxRate,
			q.Urgency != "" && j.Urgency != q.Urgency,
			q.RequiredExperience != "" && j.RequiredExperience != q.RequiredExperience,
			len(q.Certifications) > 0 && !overlaps(j.RequiredCertifications, q.Certifications),
			text != "" && !strings.Contains(strings.ToLower(j.Title), text) && !strings.Contains(strings.ToLower(j.Description), text),
			!q.After.Before(&j):
			continue
		}
		if b := q.Box; b != nil {
			if j.Location.Lat < b.MinLat || j.Location.Lat > b.MaxLat {
				continue
			}
			if !b.CrossesAntimeridian() && (j.Location.Lng < b.MinLng || j.Location.Lng > b.MaxLng) {
				continue
			}
		}
		out = append(out, j)
	}
	return newestFirst(out, q.Limit), nil
}

func (m *Memory) ScanJobs(ctx context.Context, after *store.JobCursor, limit int) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Job
	for _, j := range m.data.jobs {
		if after.Before(&j) {
			out = append(out, j)
		}
	}
	return newestFirst(out, limit), nil
}

func newestFirst(jobs []models.Job, limit int) []models.Job {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

func (m *Memory) CountLiveApplications(ctx context.Context, jobIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		want[id] = true
	}
	counts := map[string]int{}
	for _, a := range m.data.applications {
		if want[a.JobID] && a.Status != models.ApplicationWithdrawn {
			counts[a.JobID]++
		}
	}
	return counts, nil
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
