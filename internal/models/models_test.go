package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionJob(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusOpen, JobStatusInProgress, true},
		{JobStatusOpen, JobStatusCancelled, true},
		{JobStatusInProgress, JobStatusCompleted, true},
		{JobStatusInProgress, JobStatusCancelled, true},
		{JobStatusOpen, JobStatusCompleted, false},
		{JobStatusInProgress, JobStatusOpen, false},
		{JobStatusCompleted, JobStatusOpen, false},
		{JobStatusCancelled, JobStatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionJob(tt.from, tt.to))
		})
	}
}

func TestCanTransitionApplication(t *testing.T) {
	assert.True(t, CanTransitionApplication(ApplicationPending, ApplicationAcceptedByCourse))
	assert.True(t, CanTransitionApplication(ApplicationPending, ApplicationRejected))
	assert.True(t, CanTransitionApplication(ApplicationAcceptedByCourse, ApplicationAcceptedByProfessional))
	assert.True(t, CanTransitionApplication(ApplicationAcceptedByCourse, ApplicationDenied))
	assert.True(t, CanTransitionApplication(ApplicationAcceptedByProfessional, ApplicationWithdrawn))

	assert.False(t, CanTransitionApplication(ApplicationRejected, ApplicationPending))
	assert.False(t, CanTransitionApplication(ApplicationPending, ApplicationAcceptedByProfessional))
	assert.False(t, CanTransitionApplication(ApplicationDenied, ApplicationAcceptedByCourse))
	assert.False(t, CanTransitionApplication(ApplicationWithdrawn, ApplicationPending))

	for _, terminal := range []ApplicationStatus{ApplicationRejected, ApplicationDenied, ApplicationWithdrawn} {
		assert.True(t, terminal.IsTerminal())
		assert.Empty(t, applicationTransitions[terminal])
	}
}

func TestOrderedEnums(t *testing.T) {
	assert.True(t, ExperienceExpert.Satisfies(ExperienceIntermediate))
	assert.True(t, ExperienceIntermediate.Satisfies(ExperienceIntermediate))
	assert.False(t, ExperienceEntry.Satisfies(ExperienceExpert))
	assert.False(t, ExperienceLevel("guru").Valid())

	assert.Less(t, UrgencyNormal.Rank(), UrgencyHigh.Rank())
	assert.Less(t, UrgencyHigh.Rank(), UrgencyEmergency.Rank())
	assert.Equal(t, []string{"normal", "high", "emergency"}, EnumValues(Urgencies))
}

func TestJobPatch_Apply(t *testing.T) {
	job := &Job{Title: "Aerate greens", HourlyRate: 30, Urgency: UrgencyNormal}
	rate := 45.0
	draft := JobPatch{HourlyRate: &rate}.Apply(job)

	assert.Equal(t, "Aerate greens", draft.Title)
	assert.Equal(t, 45.0, draft.HourlyRate)
	assert.Equal(t, 30.0, job.HourlyRate)
}

func TestConversation_Participants(t *testing.T) {
	c := &Conversation{PosterID: "course", ProfessionalID: "pro"}
	assert.True(t, c.HasParticipant("course"))
	assert.False(t, c.HasParticipant("stranger"))
	assert.Equal(t, "pro", c.Counterpart("course"))
	assert.Equal(t, "course", c.Counterpart("pro"))
}
