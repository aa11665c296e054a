package storetest

import (
	"context"
	"sort"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
)

// memTx operates on the dataset while Memory.mu is held.
type memTx struct {
	d *dataset
}

func stale(entity, id, from, to string) error {
	return apperrors.NewStateError(entity, from, "move to "+to).WithMetadata("id", id)
}

func (t *memTx) GetJob(_ context.Context, id string) (*models.Job, error) {
	j, ok := t.d.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	return &j, nil
}

func (t *memTx) LockJob(ctx context.Context, id string) (*models.Job, error) {
	return t.GetJob(ctx, id)
}

func (t *memTx) InsertJob(_ context.Context, j *models.Job) error {
	if _, exists := t.d.jobs[j.ID]; exists {
		return apperrors.NewConflictError("job already exists", j.ID)
	}
	t.d.jobs[j.ID] = *j
	return nil
}

func (t *memTx) UpdateJobContent(_ context.Context, j *models.Job) error {
	cur, ok := t.d.jobs[j.ID]
	if !ok || cur.Status != models.JobStatusOpen {
		return stale("job", j.ID, string(models.JobStatusOpen), "edited")
	}
	next := *j
	next.Status = cur.Status
	next.CreatedAt = cur.CreatedAt
	t.d.jobs[j.ID] = next
	return nil
}

func (t *memTx) SetJobStatus(_ context.Context, id string, from, to models.JobStatus, at time.Time) error {
	j, ok := t.d.jobs[id]
	if !ok || j.Status != from {
		return stale("job", id, string(from), string(to))
	}
	j.Status = to
	j.UpdatedAt = at
	t.d.jobs[id] = j
	return nil
}

func (t *memTx) DeleteJob(_ context.Context, id string) error {
	if _, ok := t.d.jobs[id]; !ok {
		return apperrors.NewNotFoundError("job", id)
	}
	delete(t.d.jobs, id)
	for aid, a := range t.d.applications {
		if a.JobID == id {
			delete(t.d.applications, aid)
		}
	}
	for cid, c := range t.d.conversations {
		if c.JobID != id {
			continue
		}
		delete(t.d.conversations, cid)
		kept := t.d.messages[:0]
		for _, m := range t.d.messages {
			if m.ConversationID != cid {
				kept = append(kept, m)
			}
		}
		t.d.messages = kept
	}
	kept := t.d.progress[:0]
	for _, p := range t.d.progress {
		if p.JobID != id {
			kept = append(kept, p)
		}
	}
	t.d.progress = kept
	return nil
}

func (t *memTx) GetApplication(_ context.Context, id string) (*models.Application, error) {
	a, ok := t.d.applications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	return &a, nil
}

func (t *memTx) LockApplication(ctx context.Context, id string) (*models.Application, error) {
	return t.GetApplication(ctx, id)
}

func (t *memTx) listApplications(match func(models.Application) bool) []models.Application {
	var out []models.Application
	for _, a := range t.d.applications {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppliedAt.Before(out[j].AppliedAt)
	})
	return out
}

func (t *memTx) ListApplicationsByJob(_ context.Context, jobID string) ([]models.Application, error) {
	return t.listApplications(func(a models.Application) bool { return a.JobID == jobID }), nil
}

func (t *memTx) ListApplicationsByApplicant(_ context.Context, applicantID string) ([]models.Application, error) {
	return t.listApplications(func(a models.Application) bool { return a.ApplicantID == applicantID }), nil
}

// InsertApplication mirrors the partial unique index on live (job, applicant) pairs.
func (t *memTx) InsertApplication(_ context.Context, a *models.Application) error {
	if _, ok := t.d.jobs[a.JobID]; !ok {
		return apperrors.NewNotFoundError("referenced entity", a.JobID)
	}
	for _, existing := range t.d.applications {
		if existing.JobID == a.JobID && existing.ApplicantID == a.ApplicantID && existing.Status != models.ApplicationWithdrawn {
			return apperrors.NewConflictError("application already exists", "uq_applications_live")
		}
	}
	t.d.applications[a.ID] = *a
	return nil
}

func (t *memTx) SetApplicationStatus(_ context.Context, id string, from, to models.ApplicationStatus, at time.Time) error {
	a, ok := t.d.applications[id]
	if !ok || a.Status != from {
		return stale("application", id, string(from), string(to))
	}
	a.Status = to
	a.UpdatedAt = at
	t.d.applications[id] = a
	return nil
}

func (t *memTx) RejectApplications(_ context.Context, jobID, exceptID string, from []models.ApplicationStatus, at time.Time) ([]models.Application, error) {
	eligible := func(a models.Application) bool {
		if a.JobID != jobID || a.ID == exceptID {
			return false
		}
		for _, s := range from {
			if a.Status == s {
				return true
			}
		}
		return false
	}
	changed := t.listApplications(eligible)
	for i := range changed {
		changed[i].Status = models.ApplicationRejected
		changed[i].UpdatedAt = at
		t.d.applications[changed[i].ID] = changed[i]
	}
	return changed, nil
}

func (t *memTx) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	c, ok := t.d.conversations[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("conversation", id)
	}
	return &c, nil
}

func (t *memTx) GetConversationByJob(_ context.Context, jobID string) (*models.Conversation, error) {
	for _, c := range t.d.conversations {
		if c.JobID == jobID {
			c := c
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("conversation", jobID)
}

func (t *memTx) InsertConversation(_ context.Context, c *models.Conversation) (bool, error) {
	for _, existing := range t.d.conversations {
		if existing.JobID == c.JobID {
			return false, nil
		}
	}
	t.d.conversations[c.ID] = *c
	return true, nil
}

func (t *memTx) InsertMessage(_ context.Context, m *models.Message) error {
	if _, ok := t.d.conversations[m.ConversationID]; !ok {
		return apperrors.NewNotFoundError("referenced entity", m.ConversationID)
	}
	t.d.messages = append(t.d.messages, *m)
	return nil
}

func (t *memTx) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range t.d.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) InsertProgress(_ context.Context, p *models.ProgressUpdate) error {
	t.d.progress = append(t.d.progress, *p)
	return nil
}

func (t *memTx) ListProgress(_ context.Context, jobID string) ([]models.ProgressUpdate, error) {
	var out []models.ProgressUpdate
	for _, p := range t.d.progress {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	return out, nil
}
