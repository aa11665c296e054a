package lifecycle

import (
	"context"
	"fmt"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store"
)

const welcomeMessage = "Job confirmed. Use this conversation to coordinate schedule and access details for %q."

// Confirmation is the result of a professional's decision.
type Confirmation struct {
	Application  *models.Application  `json:"application"`
	Job          *models.Job          `json:"job"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// SubmitApplication creates a pending application. The storage layer's
// live-application unique index backs the duplicate check.
func (e *Engine) SubmitApplication(ctx context.Context, actor models.Actor, jobID, message string, proposedRate float64) (_ *models.Application, err error) {
	ctx, done := e.track(ctx, "submit_application", actor)
	defer done(&err)

	if !actor.IsProfessional() {
		return nil, apperrors.NewAuthorizationError("only professionals can apply to jobs")
	}
	if err := e.validateApplication(applicationInput{Message: message, ProposedRate: proposedRate}); err != nil {
		return nil, err
	}

	var (
		job *models.Job
		app *models.Application
	)
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, err = tx.LockJob(ctx, jobID); err != nil {
			return err
		}
		if job.PosterID == actor.UserID {
			return apperrors.NewAuthorizationError("cannot apply to your own job")
		}
		if job.Status != models.JobStatusOpen {
			return apperrors.NewConflictError("Job is not accepting applications",
				fmt.Sprintf("job %s is %s", job.ID, job.Status))
		}

		existing, err := tx.ListApplicationsByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.ApplicantID == actor.UserID && a.Status != models.ApplicationWithdrawn {
				return apperrors.NewConflictError("You have already applied to this job",
					fmt.Sprintf("application %s is %s", a.ID, a.Status))
			}
		}

		now := e.now()
		app = &models.Application{
			ID:           e.newID(),
			JobID:        job.ID,
			ApplicantID:  actor.UserID,
			Message:      message,
			ProposedRate: proposedRate,
			Status:       models.ApplicationPending,
			AppliedAt:    now,
			UpdatedAt:    now,
		}
		return tx.InsertApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, []notify.Event{{Kind: notify.EventApplicationSubmitted, Job: job, Application: app}})
	return app, nil
}

// lockPair locks the job before the application so every operation takes
// row locks in the same order.
func lockPair(ctx context.Context, tx store.Tx, applicationID string) (*models.Job, *models.Application, error) {
	peek, err := tx.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	job, err := tx.LockJob(ctx, peek.JobID)
	if err != nil {
		return nil, nil, err
	}
	app, err := tx.LockApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	return job, app, nil
}

// CourseDecide records the poster's decision on a pending application.
// At most one application per job can hold a provisional offer.
func (e *Engine) CourseDecide(ctx context.Context, actor models.Actor, applicationID string, decision models.CourseDecision) (_ *models.Application, err error) {
	ctx, done := e.track(ctx, "course_decide", actor)
	defer done(&err)

	var next models.ApplicationStatus
	switch decision {
	case models.DecisionAccept:
		next = models.ApplicationAcceptedByCourse
	case models.DecisionReject:
		next = models.ApplicationRejected
	default:
		return nil, apperrors.NewFieldError("decision", "must be one of: accept, reject")
	}

	var (
		job *models.Job
		app *models.Application
	)
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if job, app, err = lockPair(ctx, tx, applicationID); err != nil {
			return err
		}
		if job.PosterID != actor.UserID {
			return apperrors.NewAuthorizationError("only the poster can decide on applications")
		}
		if app.Status != models.ApplicationPending {
			return apperrors.NewStateError("application", string(app.Status), string(decision))
		}

		if next == models.ApplicationAcceptedByCourse {
			if job.Status != models.JobStatusOpen {
				return apperrors.NewStateError("job", string(job.Status), "accept applications")
			}
			siblings, err := tx.ListApplicationsByJob(ctx, job.ID)
			if err != nil {
				return err
			}
			for _, s := range siblings {
				if s.ID != app.ID && s.Status.IsAccepted() {
					return apperrors.NewConflictError("Job already has an accepted application",
						fmt.Sprintf("application %s is %s", s.ID, s.Status))
				}
			}
		}

		now := e.now()
		if err := tx.SetApplicationStatus(ctx, app.ID, app.Status, next, now); err != nil {
			return err
		}
		app.Status = next
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := notify.EventApplicationAccepted
	if next == models.ApplicationRejected {
		kind = notify.EventApplicationRejected
	}
	e.publish(ctx, []notify.Event{{Kind: kind, Job: job, Application: app}})
	return app, nil
}

// ProfessionalConfirm records the applicant's answer to a provisional offer.
//
// Confirm starts the job, closes pending siblings and opens the job's
// conversation. Deny keeps the job open; pending siblings stay pending for a
// fresh decision.
func (e *Engine) ProfessionalConfirm(ctx context.Context, actor models.Actor, applicationID string, decision models.ProfessionalDecision) (_ *Confirmation, err error) {
	ctx, done := e.track(ctx, "professional_confirm", actor)
	defer done(&err)

	if decision != models.DecisionConfirm && decision != models.DecisionDeny {
		return nil, apperrors.NewFieldError("decision", "must be one of: confirm, deny")
	}

	var (
		result   = &Confirmation{}
		rejected []models.Application
	)
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		job, app, err := lockPair(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		result.Job, result.Application = job, app

		if app.ApplicantID != actor.UserID {
			return apperrors.NewAuthorizationError("only the applicant can answer this offer")
		}
		if app.Status != models.ApplicationAcceptedByCourse {
			return apperrors.NewStateError("application", string(app.Status), string(decision))
		}
		if job.Status != models.JobStatusOpen {
			return apperrors.NewStateError("job", string(job.Status), string(decision))
		}

		now := e.now()
		if decision == models.DecisionDeny {
			rejected, err = e.deny(ctx, tx, job, app, now)
			return err
		}
		result.Conversation, rejected, err = e.confirm(ctx, tx, job, app, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	kind := notify.EventProfessionalConfirmed
	if decision == models.DecisionDeny {
		kind = notify.EventProfessionalDenied
	}
	events := []notify.Event{{
		Kind:         kind,
		Job:          result.Job,
		Application:  result.Application,
		Conversation: result.Conversation,
	}}
	for i := range rejected {
		events = append(events, notify.Event{Kind: notify.EventApplicationRejected, Job: result.Job, Application: &rejected[i]})
	}

	e.index(ctx, result.Job)
	e.publish(ctx, events)
	return result, nil
}
