// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greencrew/internal/common/config"
	"greencrew/internal/common/database"
	"greencrew/internal/common/logger"
	"greencrew/internal/lifecycle"
	"greencrew/internal/messaging"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/search"
	"greencrew/internal/store"
)

// The suite runs against the Postgres named by configs/config.yaml and only
// when GREENCREW_E2E=1.
var pg *database.PostgresClient

func TestMain(m *testing.M) {
	if os.Getenv("GREENCREW_E2E") != "1" {
		fmt.Println("skipping e2e tests: set GREENCREW_E2E=1 to run against real services")
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	pg, err = database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		panic(fmt.Sprintf("postgres connection failed: %v", err))
	}
	if err := database.Migrate(context.Background(), pg.DB); err != nil {
		panic(fmt.Sprintf("migrations failed: %v", err))
	}

	code := m.Run()
	pg.Close()
	os.Exit(code)
}

// ==========================
// Helpers
// ==========================

type fixture struct {
	db      *store.Postgres
	engine  *lifecycle.Engine
	search  *search.Engine
	chat    *messaging.Service
	course  models.Actor
	pro     models.Actor
	rival   models.Actor
	cleanup []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	db := store.NewPostgres(pg.DB)
	emitter := notify.NewEmitter(db, nil, log)

	cfg, err := config.Load()
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		engine: lifecycle.NewEngine(db, emitter, cfg.Marketplace, log),
		search: search.NewEngine(search.NewStoreSource(db), db, db, cfg.Search, log),
		chat:   messaging.NewService(db, emitter, log),
		course: models.Actor{UserID: "e2e-course-" + uuid.NewString(), Role: models.RoleGolfCourse},
		pro:    models.Actor{UserID: "e2e-pro-" + uuid.NewString(), Role: models.RoleProfessional},
		rival:  models.Actor{UserID: "e2e-pro-" + uuid.NewString(), Role: models.RoleProfessional},
	}
	f.insertProfile(t, f.course, "")
	f.insertProfile(t, f.pro, models.ExperienceExpert)
	f.insertProfile(t, f.rival, models.ExperienceEntry)
	t.Cleanup(func() { f.purge(t) })
	return f
}

func (f *fixture) insertProfile(t *testing.T, a models.Actor, level models.ExperienceLevel) {
	t.Helper()
	var exp sql.NullString
	if level != "" {
		exp = sql.NullString{String: string(level), Valid: true}
	}
	_, err := pg.DB.Exec(
		`INSERT INTO profiles (id, email, display_name, role, experience_level) VALUES ($1, $2, $3, $4, $5)`,
		a.UserID, a.UserID+"@example.com", a.UserID, string(a.Role), exp,
	)
	require.NoError(t, err)
	f.cleanup = append(f.cleanup, a.UserID)
}

func (f *fixture) purge(t *testing.T) {
	ids := pq.Array(f.cleanup)
	stmts := []string{
		`DELETE FROM notifications WHERE recipient_id = ANY($1)`,
		`DELETE FROM applications WHERE applicant_id = ANY($1)`,
		`DELETE FROM jobs WHERE poster_id = ANY($1)`,
		`DELETE FROM profiles WHERE id = ANY($1)`,
	}
	for _, stmt := range stmts {
		if _, err := pg.DB.Exec(stmt, ids); err != nil {
			t.Logf("cleanup %q: %v", stmt, err)
		}
	}
}

func draft() models.JobDraft {
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	return models.JobDraft{
		Title:              "Emergency bunker rebuild",
		Description:        "Storm washed out the bunkers on holes 3 and 7.",
		Category:           models.CategoryBunkerMaintenance,
		Location:           models.Location{Lat: 37.7749, Lng: -122.4194, Address: "San Francisco, CA"},
		StartAt:            start,
		EndAt:              start.Add(6 * time.Hour),
		HourlyRate:         55,
		RequiredExperience: models.ExperienceIntermediate,
		Urgency:            models.UrgencyEmergency,
	}
}

// ==========================
// Tests
// ==========================

func TestHireFlowOnPostgres(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.engine.CreateJob(ctx, f.course, draft())
	require.NoError(t, err)

	app, err := f.engine.SubmitApplication(ctx, f.pro, job.ID, "Ten years of bunker work, available all week.", 60)
	require.NoError(t, err)
	rivalApp, err := f.engine.SubmitApplication(ctx, f.rival, job.ID, "Happy to help rake and shape the new sand.", 45)
	require.NoError(t, err)

	_, err = f.engine.CourseDecide(ctx, f.course, app.ID, models.DecisionAccept)
	require.NoError(t, err)

	confirmed, err := f.engine.ProfessionalConfirm(ctx, f.pro, app.ID, models.DecisionConfirm)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, confirmed.Job.Status)
	require.NotNil(t, confirmed.Conversation)

	rival, err := f.db.GetApplication(ctx, rivalApp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rival.Status)

	_, err = f.chat.Send(ctx, f.course, confirmed.Conversation.ID, "Gate code is 4411, see you at 7.")
	require.NoError(t, err)
	msgs, err := f.chat.List(ctx, f.pro, confirmed.Conversation.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)

	inbox, err := f.db.ListNotifications(ctx, f.pro.UserID, true, 50)
	require.NoError(t, err)
	assert.NotEmpty(t, inbox)
}

func TestSearchOnPostgres(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.engine.CreateJob(ctx, f.course, draft())
	require.NoError(t, err)

	radius := 10.0
	res, err := f.search.Search(ctx, &f.pro, search.Filter{
		Location: &search.Point{Lat: 37.78, Lng: -122.41},
		Radius:   &radius,
		Urgency:  models.UrgencyEmergency,
	})
	require.NoError(t, err)

	var found bool
	for _, r := range res.Jobs {
		if r.ID == job.ID {
			found = true
			require.NotNil(t, r.Distance)
			assert.Less(t, *r.Distance, radius)
		}
	}
	assert.True(t, found, "the new job is within the search radius")

	res, err = f.search.Search(ctx, &f.rival, search.Filter{Location: &search.Point{Lat: 37.78, Lng: -122.41}})
	require.NoError(t, err)
	for _, r := range res.Jobs {
		assert.NotEqual(t, job.ID, r.ID, "entry-level professionals do not see intermediate jobs")
	}
}
