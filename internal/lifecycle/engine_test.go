package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"greencrew/internal/common/config"
	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/logger"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

var (
	course = models.Actor{UserID: "course-1", Role: models.RoleGolfCourse}
	other  = models.Actor{UserID: "course-2", Role: models.RoleGolfCourse}
	pro    = models.Actor{UserID: "pro-1", Role: models.RoleProfessional}
	pro2   = models.Actor{UserID: "pro-2", Role: models.RoleProfessional}
	pro3   = models.Actor{UserID: "pro-3", Role: models.RoleProfessional}
)

// 21 characters
const validMessage = "Available all week!!!"

var testRules = config.MarketplaceConfig{RateMin: 15, RateMax: 200, MessageMinLength: 20, MessageMaxLength: 2000}

type fakeIndexer struct {
	indexed map[string]models.JobStatus
	removed []string
	err     error
}

func (f *fakeIndexer) IndexJob(_ context.Context, job *models.Job) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[job.ID] = job.Status
	return nil
}

func (f *fakeIndexer) RemoveJob(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.err
}

type harness struct {
	engine  *Engine
	mem     *storetest.Memory
	indexer *fakeIndexer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := storetest.New()
	ix := &fakeIndexer{indexed: map[string]models.JobStatus{}}
	log := logger.NewTestLogger(t)

	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	engine := NewEngine(mem, notify.NewEmitter(mem, nil, log), testRules, log,
		WithIndexer(ix),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
	return &harness{engine: engine, mem: mem, indexer: ix}
}

func (h *harness) seedJob(id string, rate float64) models.Job {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	job := models.Job{
		ID:                     id,
		PosterID:               course.UserID,
		Title:                  "Aerate back nine greens",
		Description:            "Core aeration and topdressing on holes 10-18.",
		Category:               models.CategoryGreensMaintenance,
		Location:               models.Location{Lat: 37.7749, Lng: -122.4194, Address: "Harding Park"},
		StartAt:                created.AddDate(0, 1, 0),
		EndAt:                  created.AddDate(0, 1, 2),
		HourlyRate:             rate,
		RequiredCertifications: []string{},
		RequiredExperience:     models.ExperienceEntry,
		Urgency:                models.UrgencyNormal,
		Status:                 models.JobStatusOpen,
		CreatedAt:              created,
		UpdatedAt:              created,
	}
	h.mem.PutJob(job)
	return job
}

func (h *harness) job(t *testing.T, id string) *models.Job {
	t.Helper()
	j, err := h.mem.GetJob(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (h *harness) app(t *testing.T, id string) *models.Application {
	t.Helper()
	a, err := h.mem.GetApplication(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (h *harness) notificationsOfType(recipient string, kind models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range h.mem.NotificationsFor(recipient) {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func (h *harness) apply(t *testing.T, actor models.Actor, jobID string) *models.Application {
	t.Helper()
	app, err := h.engine.SubmitApplication(context.Background(), actor, jobID, validMessage, 20)
	require.NoError(t, err)
	return app
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), err.Error())
}

// ==========================
// submitApplication
// ==========================

func TestSubmitApplication_ScenarioA(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)

	app, err := h.engine.SubmitApplication(context.Background(), pro, "job-1", validMessage, 20)

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "job-1", app.JobID)
	assert.Equal(t, pro.UserID, app.ApplicantID)
	assert.Equal(t, 20.0, app.ProposedRate)

	received := h.notificationsOfType(course.UserID, models.NotificationApplicationReceived)
	require.Len(t, received, 1)
	assert.Equal(t, "job-1", received[0].Metadata["jobId"])
	assert.Equal(t, app.ID, received[0].Metadata["applicationId"])
}

func TestSubmitApplication_ScenarioB_DuplicateConflicts(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	h.apply(t, pro, "job-1")

	_, err := h.engine.SubmitApplication(context.Background(), pro, "job-1", validMessage, 20)

	requireCode(t, err, apperrors.ErrCodeConflict)
	apps, _ := h.mem.ListApplicationsByJob(context.Background(), "job-1")
	assert.Len(t, apps, 1)
}

func TestSubmitApplication_Validation(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)

	tests := []struct {
		name    string
		message string
		rate    float64
		fields  []string
	}{
		{"message too short", "Too short", 20, []string{"message"}},
		{"rate below minimum", validMessage, 10, []string{"proposedRate"}},
		{"rate above maximum", validMessage, 250, []string{"proposedRate"}},
		{"both invalid", "hi", 5, []string{"message", "proposedRate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.SubmitApplication(context.Background(), pro, "job-1", tt.message, tt.rate)
			requireCode(t, err, apperrors.ErrCodeValidation)

			stdErr, _ := apperrors.As(err)
			var got []string
			for _, f := range stdErr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestSubmitApplication_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	closed := h.seedJob("job-closed", 25)
	closed.Status = models.JobStatusInProgress
	h.mem.PutJob(closed)

	ctx := context.Background()

	_, err := h.engine.SubmitApplication(ctx, course, "job-1", validMessage, 20)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.SubmitApplication(ctx, pro, "missing", validMessage, 20)
	requireCode(t, err, apperrors.ErrCodeNotFound)

	_, err = h.engine.SubmitApplication(ctx, pro, "job-closed", validMessage, 20)
	requireCode(t, err, apperrors.ErrCodeConflict)
}

func TestSubmitApplication_AfterWithdrawal(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	first := h.apply(t, pro, "job-1")

	_, err := h.engine.Withdraw(context.Background(), pro, first.ID)
	require.NoError(t, err)

	second, err := h.engine.SubmitApplication(context.Background(), pro, "job-1", validMessage, 22)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.ApplicationWithdrawn, h.app(t, first.ID).Status)
}

// ==========================
// courseDecide / professionalConfirm
// ==========================

func TestAcceptAndConfirm_ScenarioC(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()

	decided, err := h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAcceptedByCourse, decided.Status)
	assert.Equal(t, models.JobStatusOpen, h.job(t, "job-1").Status)
	assert.Len(t, h.notificationsOfType(pro.UserID, models.NotificationJobAccepted), 1)

	result, err := h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAcceptedByProfessional, h.app(t, app.ID).Status)
	assert.Equal(t, models.JobStatusInProgress, h.job(t, "job-1").Status)

	convs := h.mem.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, result.Conversation.ID, convs[0].ID)
	assert.Equal(t, course.UserID, convs[0].PosterID)
	assert.Equal(t, pro.UserID, convs[0].ProfessionalID)

	msgs := h.mem.AllMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeSystem, msgs[0].Type)
	assert.Equal(t, models.SystemSenderID, msgs[0].SenderID)

	confirmed := h.notificationsOfType(course.UserID, models.NotificationJobConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, convs[0].ID, confirmed[0].Metadata["conversationId"])
	assert.Equal(t, models.JobStatusInProgress, h.indexer.indexed["job-1"])
}

func TestCourseDecide_Errors(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()

	_, err := h.engine.CourseDecide(ctx, course, "missing", models.DecisionAccept)
	requireCode(t, err, apperrors.ErrCodeNotFound)

	_, err = h.engine.CourseDecide(ctx, other, app.ID, models.DecisionAccept)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.CourseDecide(ctx, course, app.ID, models.CourseDecision("maybe"))
	requireCode(t, err, apperrors.ErrCodeValidation)

	assert.Equal(t, models.ApplicationPending, h.app(t, app.ID).Status)
}

func TestCourseDecide_RejectIsNotRepeatable(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()

	_, err := h.engine.CourseDecide(ctx, course, app.ID, models.DecisionReject)
	require.NoError(t, err)

	_, err = h.engine.CourseDecide(ctx, course, app.ID, models.DecisionReject)
	requireCode(t, err, apperrors.ErrCodeState)

	assert.Equal(t, models.ApplicationRejected, h.app(t, app.ID).Status)
	assert.Len(t, h.notificationsOfType(pro.UserID, models.NotificationApplicationRejected), 1)
}

func TestCourseDecide_SingleProvisionalOffer(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	first := h.apply(t, pro, "job-1")
	second := h.apply(t, pro2, "job-1")
	ctx := context.Background()

	_, err := h.engine.CourseDecide(ctx, course, first.ID, models.DecisionAccept)
	require.NoError(t, err)

	_, err = h.engine.CourseDecide(ctx, course, second.ID, models.DecisionAccept)
	requireCode(t, err, apperrors.ErrCodeConflict)
	assert.Equal(t, models.ApplicationPending, h.app(t, second.ID).Status)

	// Rejecting a sibling is still allowed.
	_, err = h.engine.CourseDecide(ctx, course, second.ID, models.DecisionReject)
	require.NoError(t, err)
}

func TestProfessionalConfirm_ClosesPendingSiblings(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	sibling := h.apply(t, pro2, "job-1")
	withdrawn := h.apply(t, pro3, "job-1")
	ctx := context.Background()

	_, err := h.engine.Withdraw(ctx, pro3, withdrawn.ID)
	require.NoError(t, err)
	_, err = h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)
	_, err = h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationRejected, h.app(t, sibling.ID).Status)
	assert.Equal(t, models.ApplicationWithdrawn, h.app(t, withdrawn.ID).Status)
	assert.Len(t, h.notificationsOfType(pro2.UserID, models.NotificationApplicationRejected), 1)
	assert.Empty(t, h.notificationsOfType(pro3.UserID, models.NotificationApplicationRejected))

	_, err = h.engine.SubmitApplication(ctx, pro3, "job-1", validMessage, 20)
	requireCode(t, err, apperrors.ErrCodeConflict)
}

func TestProfessionalDeny_ScenarioE(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	sibling := h.apply(t, pro2, "job-1")
	ctx := context.Background()

	_, err := h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)

	result, err := h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionDeny)
	require.NoError(t, err)
	assert.Nil(t, result.Conversation)

	assert.Equal(t, models.ApplicationDenied, h.app(t, app.ID).Status)
	assert.Equal(t, models.JobStatusOpen, h.job(t, "job-1").Status)
	assert.Len(t, h.notificationsOfType(course.UserID, models.NotificationJobDenied), 1)
	assert.Empty(t, h.mem.Conversations())

	// Pending siblings stay available for a fresh decision.
	assert.Equal(t, models.ApplicationPending, h.app(t, sibling.ID).Status)
	_, err = h.engine.CourseDecide(ctx, course, sibling.ID, models.DecisionAccept)
	require.NoError(t, err)
}

func TestProfessionalConfirm_Errors(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()

	_, err := h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	requireCode(t, err, apperrors.ErrCodeState)

	_, err = h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)

	_, err = h.engine.ProfessionalConfirm(ctx, pro2, app.ID, models.DecisionConfirm)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.ProfessionalDecision("later"))
	requireCode(t, err, apperrors.ErrCodeValidation)

	_, err = h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	require.NoError(t, err)

	_, err = h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	requireCode(t, err, apperrors.ErrCodeState)
	assert.Len(t, h.mem.Conversations(), 1)
}

func TestTransition_SurvivesNotificationFailure(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	h.mem.NotificationErr = errors.New("connection refused")

	app, err := h.engine.SubmitApplication(context.Background(), pro, "job-1", validMessage, 20)

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, h.app(t, app.ID).Status)
	assert.Empty(t, h.mem.NotificationsFor(course.UserID))
}

// ==========================
// reportProgress
// ==========================

func confirmedJob(t *testing.T, h *harness) *models.Application {
	t.Helper()
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()
	_, err := h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)
	_, err = h.engine.ProfessionalConfirm(ctx, pro, app.ID, models.DecisionConfirm)
	require.NoError(t, err)
	return app
}

func TestReportProgress(t *testing.T) {
	h := newHarness(t)
	confirmedJob(t, h)
	ctx := context.Background()

	update, err := h.engine.ReportProgress(ctx, pro, "job-1", "Holes 10-13 aerated.", "")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneUpdate, update.Milestone)
	assert.Equal(t, models.JobStatusInProgress, h.job(t, "job-1").Status)
	assert.Len(t, h.notificationsOfType(course.UserID, models.NotificationJobUpdate), 1)

	_, err = h.engine.ReportProgress(ctx, pro, "job-1", "All greens done.", models.MilestoneCompletion)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, h.job(t, "job-1").Status)
	assert.Len(t, h.notificationsOfType(course.UserID, models.NotificationJobCompleted), 1)

	_, err = h.engine.ReportProgress(ctx, pro, "job-1", "One more thing.", models.MilestoneUpdate)
	requireCode(t, err, apperrors.ErrCodeState)

	progress, err := h.engine.ListProgress(ctx, course, "job-1")
	require.NoError(t, err)
	assert.Len(t, progress, 2)
}

func TestReportProgress_Errors(t *testing.T) {
	h := newHarness(t)
	confirmedJob(t, h)
	h.seedJob("job-open", 25)
	ctx := context.Background()

	_, err := h.engine.ReportProgress(ctx, pro2, "job-1", "Not my job.", models.MilestoneUpdate)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.ReportProgress(ctx, course, "job-1", "Poster cannot report.", models.MilestoneUpdate)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.ReportProgress(ctx, pro, "job-open", "No engagement.", models.MilestoneUpdate)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.ReportProgress(ctx, pro, "job-1", "", models.MilestoneUpdate)
	requireCode(t, err, apperrors.ErrCodeValidation)

	_, err = h.engine.ReportProgress(ctx, pro, "job-1", "Done", models.Milestone("halfway"))
	requireCode(t, err, apperrors.ErrCodeValidation)

	_, err = h.engine.ListProgress(ctx, pro2, "job-1")
	requireCode(t, err, apperrors.ErrCodeAuthorization)
}

// ==========================
// withdraw / deleteJob / cancelJob
// ==========================

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	ctx := context.Background()

	_, err := h.engine.Withdraw(ctx, pro2, app.ID)
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	got, err := h.engine.Withdraw(ctx, pro, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, got.Status)
	assert.Equal(t, models.JobStatusOpen, h.job(t, "job-1").Status)

	_, err = h.engine.Withdraw(ctx, pro, app.ID)
	requireCode(t, err, apperrors.ErrCodeState)
}

func TestWithdraw_NotifiesPosterOnlyForAcceptedApplications(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	pending := h.apply(t, pro2, "job-1")
	offered := h.apply(t, pro3, "job-1")
	ctx := context.Background()

	_, err := h.engine.Withdraw(ctx, pro2, pending.ID)
	require.NoError(t, err)
	assert.Empty(t, h.notificationsOfType(course.UserID, models.NotificationApplicationWithdrawn))

	_, err = h.engine.CourseDecide(ctx, course, offered.ID, models.DecisionAccept)
	require.NoError(t, err)
	_, err = h.engine.Withdraw(ctx, pro3, offered.ID)
	require.NoError(t, err)

	got := h.notificationsOfType(course.UserID, models.NotificationApplicationWithdrawn)
	require.Len(t, got, 1)
	assert.Equal(t, offered.ID, got[0].Metadata["applicationId"])
	assert.Equal(t, models.JobStatusOpen, h.job(t, "job-1").Status)
}

func TestWithdraw_AfterConfirmationLeavesJobInProgress(t *testing.T) {
	h := newHarness(t)
	app := confirmedJob(t, h)
	ctx := context.Background()

	_, err := h.engine.Withdraw(ctx, pro, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, h.job(t, "job-1").Status)

	got := h.notificationsOfType(course.UserID, models.NotificationApplicationWithdrawn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "Cancel the job")

	_, err = h.engine.ReportProgress(ctx, pro, "job-1", "Holes 10-13 aerated.", "")
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	cancelled, err := h.engine.CancelJob(ctx, course, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
}

func TestDeleteJob(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	app := h.apply(t, pro, "job-1")
	h.apply(t, pro2, "job-1")
	ctx := context.Background()

	requireCode(t, h.engine.DeleteJob(ctx, other, "job-1"), apperrors.ErrCodeAuthorization)

	_, err := h.engine.CourseDecide(ctx, course, app.ID, models.DecisionAccept)
	require.NoError(t, err)
	requireCode(t, h.engine.DeleteJob(ctx, course, "job-1"), apperrors.ErrCodeConflict)

	_, err = h.engine.Withdraw(ctx, pro, app.ID)
	require.NoError(t, err)
	require.NoError(t, h.engine.DeleteJob(ctx, course, "job-1"))

	_, err = h.mem.GetJob(ctx, "job-1")
	requireCode(t, err, apperrors.ErrCodeNotFound)
	apps, _ := h.mem.ListApplicationsByJob(ctx, "job-1")
	assert.Empty(t, apps)
	assert.Equal(t, []string{"job-1"}, h.indexer.removed)
}

func TestCancelJob(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	accepted := h.apply(t, pro, "job-1")
	pending := h.apply(t, pro2, "job-1")
	ctx := context.Background()

	_, err := h.engine.CourseDecide(ctx, course, accepted.ID, models.DecisionAccept)
	require.NoError(t, err)

	_, err = h.engine.CancelJob(ctx, other, "job-1")
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	job, err := h.engine.CancelJob(ctx, course, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	assert.Equal(t, models.ApplicationRejected, h.app(t, accepted.ID).Status)
	assert.Equal(t, models.ApplicationRejected, h.app(t, pending.ID).Status)
	assert.Len(t, h.notificationsOfType(pro.UserID, models.NotificationJobCancelled), 1)
	assert.Len(t, h.notificationsOfType(pro2.UserID, models.NotificationJobCancelled), 1)
	assert.Equal(t, models.JobStatusCancelled, h.indexer.indexed["job-1"])

	_, err = h.engine.CancelJob(ctx, course, "job-1")
	requireCode(t, err, apperrors.ErrCodeState)
}

func TestCancelJob_InProgressNotifiesProfessional(t *testing.T) {
	h := newHarness(t)
	app := confirmedJob(t, h)

	_, err := h.engine.CancelJob(context.Background(), course, "job-1")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationAcceptedByProfessional, h.app(t, app.ID).Status)
	assert.Len(t, h.notificationsOfType(pro.UserID, models.NotificationJobCancelled), 1)
}

// ==========================
// createJob / updateJob
// ==========================

func validDraft() models.JobDraft {
	start := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	return models.JobDraft{
		Title:                  "Irrigation audit",
		Description:            "Full audit of the irrigation heads on the front nine.",
		Category:               models.CategoryIrrigation,
		Location:               models.Location{Lat: 37.7, Lng: -122.4},
		StartAt:                start,
		EndAt:                  start.Add(8 * time.Hour),
		HourlyRate:             40,
		RequiredCertifications: []string{"irrigation_technician"},
		RequiredExperience:     models.ExperienceIntermediate,
		Urgency:                models.UrgencyHigh,
	}
}

func TestCreateJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.engine.CreateJob(ctx, course, validDraft())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Equal(t, course.UserID, job.PosterID)
	assert.Equal(t, models.JobStatusOpen, h.indexer.indexed[job.ID])

	stored := h.job(t, job.ID)
	assert.Equal(t, "Irrigation audit", stored.Title)

	_, err = h.engine.CreateJob(ctx, pro, validDraft())
	requireCode(t, err, apperrors.ErrCodeAuthorization)
}

func TestCreateJob_Validation(t *testing.T) {
	h := newHarness(t)
	draft := validDraft()
	draft.Title = "No"
	draft.HourlyRate = 10
	draft.Category = "putting"
	draft.Location.Lat = 95
	draft.EndAt = draft.StartAt.Add(-time.Hour)
	draft.RequiredCertifications = []string{"wizard"}

	_, err := h.engine.CreateJob(context.Background(), course, draft)
	requireCode(t, err, apperrors.ErrCodeValidation)

	stdErr, _ := apperrors.As(err)
	fields := map[string]bool{}
	for _, f := range stdErr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"title", "hourlyRate", "category", "location.lat", "endAt", "requiredCertifications.0"} {
		assert.True(t, fields[want], "missing field %s in %v", want, stdErr.Fields)
	}
}

func TestUpdateJob(t *testing.T) {
	h := newHarness(t)
	confirmedJob(t, h)
	h.seedJob("job-2", 25)
	ctx := context.Background()
	rate := 35.0

	updated, err := h.engine.UpdateJob(ctx, course, "job-2", models.JobPatch{HourlyRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, 35.0, updated.HourlyRate)
	assert.Equal(t, 35.0, h.job(t, "job-2").HourlyRate)

	_, err = h.engine.UpdateJob(ctx, other, "job-2", models.JobPatch{HourlyRate: &rate})
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	_, err = h.engine.UpdateJob(ctx, course, "job-1", models.JobPatch{HourlyRate: &rate})
	requireCode(t, err, apperrors.ErrCodeState)

	tooLow := 5.0
	_, err = h.engine.UpdateJob(ctx, course, "job-2", models.JobPatch{HourlyRate: &tooLow})
	requireCode(t, err, apperrors.ErrCodeValidation)
	assert.Equal(t, 35.0, h.job(t, "job-2").HourlyRate)
}

func TestListApplications(t *testing.T) {
	h := newHarness(t)
	h.seedJob("job-1", 25)
	h.seedJob("job-2", 25)
	h.apply(t, pro, "job-1")
	h.apply(t, pro2, "job-1")
	h.apply(t, pro, "job-2")
	ctx := context.Background()

	apps, err := h.engine.ListApplicationsForJob(ctx, course, "job-1")
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	_, err = h.engine.ListApplicationsForJob(ctx, pro, "job-1")
	requireCode(t, err, apperrors.ErrCodeAuthorization)

	mine, err := h.engine.ListMyApplications(ctx, pro)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

// ==========================
// Properties
// ==========================

// TestRandomWalk_StatusesFollowGraph drives random operations from random
// actors and checks the graph and uniqueness invariants after each step.
func TestRandomWalk_StatusesFollowGraph(t *testing.T) {
	h := newHarness(t)
	jobs := []string{"job-a", "job-b", "job-c"}
	for _, id := range jobs {
		h.seedJob(id, 25)
	}
	actors := []models.Actor{course, pro, pro2, pro3}
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for step := 0; step < 400; step++ {
		before := map[string]models.JobStatus{}
		for _, id := range jobs {
			before[id] = h.job(t, id).Status
		}

		actor := actors[rng.Intn(len(actors))]
		jobID := jobs[rng.Intn(len(jobs))]
		apps, _ := h.mem.ListApplicationsByJob(ctx, jobID)
		appID := "none"
		if len(apps) > 0 {
			appID = apps[rng.Intn(len(apps))].ID
		}

		switch rng.Intn(7) {
		case 0:
			_, _ = h.engine.SubmitApplication(ctx, actor, jobID, validMessage, 30)
		case 1:
			_, _ = h.engine.CourseDecide(ctx, actor, appID, models.DecisionAccept)
		case 2:
			_, _ = h.engine.CourseDecide(ctx, actor, appID, models.DecisionReject)
		case 3:
			_, _ = h.engine.ProfessionalConfirm(ctx, actor, appID, models.DecisionConfirm)
		case 4:
			_, _ = h.engine.ProfessionalConfirm(ctx, actor, appID, models.DecisionDeny)
		case 5:
			_, _ = h.engine.Withdraw(ctx, actor, appID)
		case 6:
			_, _ = h.engine.ReportProgress(ctx, actor, jobID, "Work underway.", models.MilestoneCompletion)
		}

		for _, id := range jobs {
			after := h.job(t, id).Status
			if after != before[id] {
				require.True(t, models.CanTransitionJob(before[id], after),
					"step %d: job %s moved %s -> %s", step, id, before[id], after)
			}

			apps, _ := h.mem.ListApplicationsByJob(ctx, id)
			live := map[string]int{}
			accepted := 0
			for _, a := range apps {
				if a.Status != models.ApplicationWithdrawn {
					live[a.ApplicantID]++
				}
				if a.Status.IsAccepted() {
					accepted++
				}
			}
			for applicant, n := range live {
				require.LessOrEqual(t, n, 1, "step %d: %s has %d live applications on %s", step, applicant, n, id)
			}
			require.LessOrEqual(t, accepted, 1, "step %d: job %s has %d accepted applications", step, id, accepted)
		}
	}
}
