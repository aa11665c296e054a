package lifecycle

import (
	"context"
	"fmt"
	"time"

	"greencrew/internal/models"
	"greencrew/internal/store"
)

func (e *Engine) confirm(ctx context.Context, tx store.Tx, job *models.Job, app *models.Application, now time.Time) (*models.Conversation, []models.Application, error) {
	if err := tx.SetApplicationStatus(ctx, app.ID, app.Status, models.ApplicationAcceptedByProfessional, now); err != nil {
		return nil, nil, err
	}
	app.Status = models.ApplicationAcceptedByProfessional
	app.UpdatedAt = now

	if err := tx.SetJobStatus(ctx, job.ID, models.JobStatusOpen, models.JobStatusInProgress, now); err != nil {
		return nil, nil, err
	}
	job.Status = models.JobStatusInProgress
	job.UpdatedAt = now

	rejected, err := tx.RejectApplications(ctx, job.ID, app.ID,
		[]models.ApplicationStatus{models.ApplicationPending}, now)
	if err != nil {
		return nil, nil, err
	}

	conv := &models.Conversation{
		ID:             e.newID(),
		JobID:          job.ID,
		ApplicationID:  app.ID,
		PosterID:       job.PosterID,
		ProfessionalID: app.ApplicantID,
		CreatedAt:      now,
	}
	created, err := tx.InsertConversation(ctx, conv)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		existing, err := tx.GetConversationByJob(ctx, job.ID)
		if err != nil {
			return nil, nil, err
		}
		return existing, rejected, nil
	}

	welcome := &models.Message{
		ID:             e.newID(),
		ConversationID: conv.ID,
		SenderID:       models.SystemSenderID,
		Content:        fmt.Sprintf(welcomeMessage, job.Title),
		Type:           models.MessageTypeSystem,
		CreatedAt:      now,
	}
	if err := tx.InsertMessage(ctx, welcome); err != nil {
		return nil, nil, err
	}
	return conv, rejected, nil
}

func (e *Engine) deny(ctx context.Context, tx store.Tx, job *models.Job, app *models.Application, now time.Time) ([]models.Application, error) {
	if err := tx.SetApplicationStatus(ctx, app.ID, app.Status, models.ApplicationDenied, now); err != nil {
		return nil, err
	}
	app.Status = models.ApplicationDenied
	app.UpdatedAt = now

	// Re-assert open so a concurrent status change fails this transaction.
	if err := tx.SetJobStatus(ctx, job.ID, models.JobStatusOpen, models.JobStatusOpen, now); err != nil {
		return nil, err
	}
	job.UpdatedAt = now

	return tx.RejectApplications(ctx, job.ID, app.ID,
		[]models.ApplicationStatus{models.ApplicationAcceptedByCourse}, now)
}
