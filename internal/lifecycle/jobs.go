package lifecycle

import (
	"context"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store"
)

func (e *Engine) CreateJob(ctx context.Context, actor models.Actor, draft models.JobDraft) (_ *models.Job, err error) {
	ctx, done := e.track(ctx, "create_job", actor)
	defer done(&err)

	if !actor.IsGolfCourse() {
		return nil, apperrors.NewAuthorizationError("only golf courses can post jobs")
	}
	if err := e.validateDraft(draft); err != nil {
		return nil, err
	}

	now := e.now()
	job := &models.Job{
		ID:        e.newID(),
		PosterID:  actor.UserID,
		Status:    models.JobStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.ApplyDraft(draft)
	if job.RequiredCertifications == nil {
		job.RequiredCertifications = []string{}
	}

	if err := e.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertJob(ctx, job)
	}); err != nil {
		return nil, err
	}

	e.index(ctx, job)
	return job, nil
}

// UpdateJob edits a job's content. Only open jobs can be edited.
func (e *Engine) UpdateJob(ctx context.Context, actor models.Actor, jobID string, patch models.JobPatch) (_ *models.Job, err error) {
	ctx, done := e.track(ctx, "update_job", actor)
	defer done(&err)

	var job *models.Job
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, err = tx.LockJob(ctx, jobID); err != nil {
			return err
		}
		if job.PosterID != actor.UserID {
			return apperrors.NewAuthorizationError("only the poster can edit this job")
		}
		if job.Status != models.JobStatusOpen {
			return apperrors.NewStateError("job", string(job.Status), "be edited")
		}

		draft := patch.Apply(job)
		if err := e.validateDraft(draft); err != nil {
			return err
		}
		job.ApplyDraft(draft)
		job.UpdatedAt = e.now()
		return tx.UpdateJobContent(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	e.index(ctx, job)
	return job, nil
}

// CancelJob closes every live application and notifies each affected applicant.
func (e *Engine) CancelJob(ctx context.Context, actor models.Actor, jobID string) (_ *models.Job, err error) {
	ctx, done := e.track(ctx, "cancel_job", actor)
	defer done(&err)

	var (
		job        *models.Job
		recipients []string
	)
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, err = tx.LockJob(ctx, jobID); err != nil {
			return err
		}
		if job.PosterID != actor.UserID {
			return apperrors.NewAuthorizationError("only the poster can cancel this job")
		}
		if !models.CanTransitionJob(job.Status, models.JobStatusCancelled) {
			return apperrors.NewStateError("job", string(job.Status), "be cancelled")
		}

		now := e.now()
		if err := tx.SetJobStatus(ctx, job.ID, job.Status, models.JobStatusCancelled, now); err != nil {
			return err
		}
		job.Status = models.JobStatusCancelled
		job.UpdatedAt = now

		closed, err := tx.RejectApplications(ctx, job.ID, "",
			[]models.ApplicationStatus{models.ApplicationPending, models.ApplicationAcceptedByCourse}, now)
		if err != nil {
			return err
		}
		for _, a := range closed {
			recipients = append(recipients, a.ApplicantID)
		}

		// The confirmed professional keeps their application but is told.
		apps, err := tx.ListApplicationsByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		for _, a := range apps {
			if a.Status == models.ApplicationAcceptedByProfessional {
				recipients = append(recipients, a.ApplicantID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.index(ctx, job)
	e.publish(ctx, []notify.Event{{Kind: notify.EventJobCancelled, Job: job, Recipients: recipients}})
	return job, nil
}

func (e *Engine) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return e.store.GetJob(ctx, jobID)
}

// DeleteJob removes a job with its applications, conversation and progress.
// A job with an accepted application cannot be deleted.
func (e *Engine) DeleteJob(ctx context.Context, actor models.Actor, jobID string) (err error) {
	ctx, done := e.track(ctx, "delete_job", actor)
	defer done(&err)

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		job, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.PosterID != actor.UserID {
			return apperrors.NewAuthorizationError("only the poster can delete this job")
		}

		apps, err := tx.ListApplicationsByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		for _, a := range apps {
			if a.Status.IsAccepted() {
				return apperrors.NewConflictError("Job has an accepted application",
					"application "+a.ID+" is "+string(a.Status))
			}
		}
		return tx.DeleteJob(ctx, job.ID)
	})
	if err != nil {
		return err
	}

	e.unindex(ctx, jobID)
	return nil
}

func (e *Engine) ListApplicationsForJob(ctx context.Context, actor models.Actor, jobID string) ([]models.Application, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != actor.UserID {
		return nil, apperrors.NewAuthorizationError("only the poster can list applications")
	}
	return e.store.ListApplicationsByJob(ctx, jobID)
}

func (e *Engine) ListMyApplications(ctx context.Context, actor models.Actor) ([]models.Application, error) {
	return e.store.ListApplicationsByApplicant(ctx, actor.UserID)
}

func (e *Engine) ListProgress(ctx context.Context, actor models.Actor, jobID string) ([]models.ProgressUpdate, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PosterID != actor.UserID {
		pro, err := e.confirmedProfessional(ctx, e.store, job.ID)
		if err != nil {
			return nil, err
		}
		if pro != actor.UserID {
			return nil, apperrors.NewAuthorizationError("only the job's participants can view progress")
		}
	}
	return e.store.ListProgress(ctx, jobID)
}

// confirmedProfessional returns the applicant whose application reached
// accepted_by_professional, or "".
func (e *Engine) confirmedProfessional(ctx context.Context, r store.Reader, jobID string) (string, error) {
	apps, err := r.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	for _, a := range apps {
		if a.Status == models.ApplicationAcceptedByProfessional {
			return a.ApplicantID, nil
		}
	}
	return "", nil
}
