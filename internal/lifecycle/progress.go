package lifecycle

import (
	"context"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store"
)

// ReportProgress appends a progress record. A completion milestone also
// moves the job to completed.
func (e *Engine) ReportProgress(ctx context.Context, actor models.Actor, jobID, content string, milestone models.Milestone) (_ *models.ProgressUpdate, err error) {
	ctx, done := e.track(ctx, "report_progress", actor)
	defer done(&err)

	if milestone == "" {
		milestone = models.MilestoneUpdate
	}
	if err := validateProgress(progressInput{Content: content, Milestone: string(milestone)}); err != nil {
		return nil, err
	}

	var (
		job    *models.Job
		update *models.ProgressUpdate
	)
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, err = tx.LockJob(ctx, jobID); err != nil {
			return err
		}
		pro, err := e.confirmedProfessional(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		if pro == "" || pro != actor.UserID {
			return apperrors.NewAuthorizationError("only the confirmed professional can report progress")
		}
		if job.Status != models.JobStatusInProgress {
			return apperrors.NewStateError("job", string(job.Status), "report progress")
		}

		now := e.now()
		update = &models.ProgressUpdate{
			ID:             e.newID(),
			JobID:          job.ID,
			ProfessionalID: actor.UserID,
			Content:        content,
			Milestone:      milestone,
			CreatedAt:      now,
		}
		if err := tx.InsertProgress(ctx, update); err != nil {
			return err
		}

		if milestone == models.MilestoneCompletion {
			if err := tx.SetJobStatus(ctx, job.ID, models.JobStatusInProgress, models.JobStatusCompleted, now); err != nil {
				return err
			}
			job.Status = models.JobStatusCompleted
			job.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := notify.EventProgressReported
	if milestone == models.MilestoneCompletion {
		kind = notify.EventJobCompleted
		e.index(ctx, job)
	}
	e.publish(ctx, []notify.Event{{Kind: kind, Job: job, Progress: update}})
	return update, nil
}

// Withdraw is allowed from any non-terminal status and leaves the job as is.
// Withdrawing an accepted application tells the poster; a job left in
// progress without its professional can only be cancelled.
func (e *Engine) Withdraw(ctx context.Context, actor models.Actor, applicationID string) (_ *models.Application, err error) {
	ctx, done := e.track(ctx, "withdraw", actor)
	defer done(&err)

	var job *models.Job
	var app *models.Application
	var accepted bool
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, app, err = lockPair(ctx, tx, applicationID); err != nil {
			return err
		}
		if app.ApplicantID != actor.UserID {
			return apperrors.NewAuthorizationError("only the applicant can withdraw")
		}
		if app.Status.IsTerminal() {
			return apperrors.NewStateError("application", string(app.Status), "withdraw")
		}

		accepted = app.Status.IsAccepted()
		now := e.now()
		if err := tx.SetApplicationStatus(ctx, app.ID, app.Status, models.ApplicationWithdrawn, now); err != nil {
			return err
		}
		app.Status = models.ApplicationWithdrawn
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if accepted {
		e.publish(ctx, []notify.Event{{Kind: notify.EventApplicationWithdrawn, Job: job, Application: app}})
	}
	return app, nil
}
