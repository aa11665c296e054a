package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"greencrew/internal/common/database"
	"greencrew/internal/models"

	"github.com/lib/pq"
)

// Postgres implements Store, NotificationStore, ProfileStore and JobSearcher.
type Postgres struct {
	queries
	db *sql.DB
}

var (
	_ Store             = (*Postgres)(nil)
	_ NotificationStore = (*Postgres)(nil)
	_ ProfileStore      = (*Postgres)(nil)
	_ JobSearcher       = (*Postgres)(nil)
	_ Tx                = (*queries)(nil)
)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{queries: queries{q: db}, db: db}
}

func (p *Postgres) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		return fn(&queries{q: tx})
	})
}

// queries runs every statement against a *sql.DB or a *sql.Tx.
type queries struct {
	q database.Querier
}

const jobColumns = `id, poster_id, title, description, category, latitude, longitude, address,
	start_at, end_at, hourly_rate, required_certifications, required_experience, urgency,
	status, created_at, updated_at`

const applicationColumns = `id, job_id, applicant_id, message, proposed_rate, status, applied_at, updated_at`

// textArray never binds NULL for a NOT NULL array column.
func textArray(values []string) interface{} {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var certs pq.StringArray
	if err := row.Scan(
		&j.ID, &j.PosterID, &j.Title, &j.Description, &j.Category,
		&j.Location.Lat, &j.Location.Lng, &j.Location.Address,
		&j.StartAt, &j.EndAt, &j.HourlyRate, &certs, &j.RequiredExperience, &j.Urgency,
		&j.Status, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.RequiredCertifications = []string(certs)
	return &j, nil
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	if err := row.Scan(&a.ID, &a.JobID, &a.ApplicantID, &a.Message, &a.ProposedRate, &a.Status, &a.AppliedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectApplications(rows *sql.Rows) ([]models.Application, error) {
	defer rows.Close()
	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ==========================
// Jobs
// ==========================

func (s *queries) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(s.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get job", "job", id, err)
	}
	return job, nil
}

func (s *queries) LockJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(s.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError("lock job", "job", id, err)
	}
	return job, nil
}

func (s *queries) InsertJob(ctx context.Context, j *models.Job) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		j.ID, j.PosterID, j.Title, j.Description, j.Category, j.Location.Lat, j.Location.Lng, j.Location.Address,
		j.StartAt, j.EndAt, j.HourlyRate, textArray(j.RequiredCertifications), j.RequiredExperience, j.Urgency,
		j.Status, j.CreatedAt, j.UpdatedAt,
	)
	return mapError("insert job", "job", j.ID, err)
}

// UpdateJobContent rewrites the editable fields of a job that is still open.
func (s *queries) UpdateJobContent(ctx context.Context, j *models.Job) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE jobs SET title = $2, description = $3, category = $4, latitude = $5, longitude = $6,
			address = $7, start_at = $8, end_at = $9, hourly_rate = $10, required_certifications = $11,
			required_experience = $12, urgency = $13, updated_at = $14
		WHERE id = $1 AND status = 'open'`,
		j.ID, j.Title, j.Description, j.Category, j.Location.Lat, j.Location.Lng, j.Location.Address,
		j.StartAt, j.EndAt, j.HourlyRate, textArray(j.RequiredCertifications), j.RequiredExperience, j.Urgency,
		j.UpdatedAt,
	)
	if err != nil {
		return mapError("update job", "job", j.ID, err)
	}
	return expectOneRow(res, func() error {
		return staleStatus("job", j.ID, string(models.JobStatusOpen), "edited")
	})
}

func (s *queries) SetJobStatus(ctx context.Context, id string, from, to models.JobStatus, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE jobs SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		return mapError("set job status", "job", id, err)
	}
	return expectOneRow(res, func() error {
		return staleStatus("job", id, string(from), string(to))
	})
}

// DeleteJob removes the job; applications, conversation, messages and
// progress rows go with it through ON DELETE CASCADE.
func (s *queries) DeleteJob(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return mapError("delete job", "job", id, err)
	}
	return expectOneRow(res, func() error { return mapError("delete job", "job", id, sql.ErrNoRows) })
}

func expectOneRow(res sql.Result, onZero func() error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("rows affected", "", "", err)
	}
	if n == 0 {
		return onZero()
	}
	return nil
}

// ==========================
// Applications
// ==========================

func (s *queries) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := scanApplication(s.q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get application", "application", id, err)
	}
	return app, nil
}

func (s *queries) LockApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := scanApplication(s.q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError("lock application", "application", id, err)
	}
	return app, nil
}

func (s *queries) ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE job_id = $1 ORDER BY applied_at, id`, jobID)
	if err != nil {
		return nil, mapError("list applications by job", "application", jobID, err)
	}
	apps, err := collectApplications(rows)
	return apps, mapError("scan applications", "application", jobID, err)
}

func (s *queries) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE applicant_id = $1 ORDER BY applied_at DESC, id`, applicantID)
	if err != nil {
		return nil, mapError("list applications by applicant", "application", applicantID, err)
	}
	apps, err := collectApplications(rows)
	return apps, mapError("scan applications", "application", applicantID, err)
}

// InsertApplication relies on the partial unique index over live
// (job_id, applicant_id) pairs; a violation surfaces as CONFLICT.
func (s *queries) InsertApplication(ctx context.Context, a *models.Application) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.JobID, a.ApplicantID, a.Message, a.ProposedRate, a.Status, a.AppliedAt, a.UpdatedAt,
	)
	return mapError("insert application", "application", a.ID, err)
}

func (s *queries) SetApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		return mapError("set application status", "application", id, err)
	}
	return expectOneRow(res, func() error {
		return staleStatus("application", id, string(from), string(to))
	})
}

func (s *queries) RejectApplications(ctx context.Context, jobID, exceptID string, from []models.ApplicationStatus, at time.Time) ([]models.Application, error) {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}
	rows, err := s.q.QueryContext(ctx, `
		UPDATE applications SET status = 'rejected', updated_at = $4
		WHERE job_id = $1 AND id <> $2 AND status = ANY($3)
		RETURNING `+applicationColumns,
		jobID, exceptID, pq.Array(statuses), at,
	)
	if err != nil {
		return nil, mapError("reject applications", "application", jobID, err)
	}
	apps, err := collectApplications(rows)
	return apps, mapError("scan rejected applications", "application", jobID, err)
}

// CountLiveApplications counts non-withdrawn applications per job.
func (s *queries) CountLiveApplications(ctx context.Context, jobIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(jobIDs))
	if len(jobIDs) == 0 {
		return counts, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT job_id, COUNT(*) FROM applications
		WHERE job_id = ANY($1) AND status <> 'withdrawn'
		GROUP BY job_id`,
		pq.Array(jobIDs),
	)
	if err != nil {
		return nil, mapError("count applications", "application", "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, mapError("scan application counts", "application", "", err)
		}
		counts[id] = n
	}
	return counts, mapError("iterate application counts", "application", "", rows.Err())
}

// ==========================
// Conversations, messages, progress
// ==========================

func (s *queries) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.getConversation(ctx, `id`, id)
}

func (s *queries) GetConversationByJob(ctx context.Context, jobID string) (*models.Conversation, error) {
	return s.getConversation(ctx, `job_id`, jobID)
}

func (s *queries) getConversation(ctx context.Context, column, value string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.q.QueryRowContext(ctx, `
		SELECT id, job_id, application_id, poster_id, professional_id, created_at
		FROM conversations WHERE `+column+` = $1`, value,
	).Scan(&c.ID, &c.JobID, &c.ApplicationID, &c.PosterID, &c.ProfessionalID, &c.CreatedAt)
	if err != nil {
		return nil, mapError("get conversation", "conversation", value, err)
	}
	return &c, nil
}

func (s *queries) InsertConversation(ctx context.Context, c *models.Conversation) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO conversations (id, job_id, application_id, poster_id, professional_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING`,
		c.ID, c.JobID, c.ApplicationID, c.PosterID, c.ProfessionalID, c.CreatedAt,
	)
	if err != nil {
		return false, mapError("insert conversation", "conversation", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError("rows affected", "conversation", c.ID, err)
	}
	return n == 1, nil
}

func (s *queries) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.Type, m.CreatedAt,
	)
	return mapError("insert message", "message", m.ID, err)
}

func (s *queries) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, type, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, mapError("list messages", "message", conversationID, err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, mapError("scan message", "message", conversationID, err)
		}
		out = append(out, m)
	}
	return out, mapError("iterate messages", "message", conversationID, rows.Err())
}

func (s *queries) InsertProgress(ctx context.Context, p *models.ProgressUpdate) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO job_progress (id, job_id, professional_id, content, milestone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.JobID, p.ProfessionalID, p.Content, p.Milestone, p.CreatedAt,
	)
	return mapError("insert progress", "progress", p.ID, err)
}

func (s *queries) ListProgress(ctx context.Context, jobID string) ([]models.ProgressUpdate, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, job_id, professional_id, content, milestone, created_at
		FROM job_progress WHERE job_id = $1
		ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, mapError("list progress", "progress", jobID, err)
	}
	defer rows.Close()

	var out []models.ProgressUpdate
	for rows.Next() {
		var p models.ProgressUpdate
		if err := rows.Scan(&p.ID, &p.JobID, &p.ProfessionalID, &p.Content, &p.Milestone, &p.CreatedAt); err != nil {
			return nil, mapError("scan progress", "progress", jobID, err)
		}
		out = append(out, p)
	}
	return out, mapError("iterate progress", "progress", jobID, rows.Err())
}

// ==========================
// Notifications
// ==========================

const notificationColumns = `id, recipient_id, type, title, message, metadata, created_at, read_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var metadata []byte
	var readAt sql.NullTime
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &metadata, &n.CreatedAt, &readAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}

func (s *queries) InsertNotification(ctx context.Context, n *models.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return mapError("encode notification metadata", "notification", n.ID, err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, type, title, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message, metadata, n.CreatedAt,
	)
	return mapError("insert notification", "notification", n.ID, err)
}

func (s *queries) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(s.q.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get notification", "notification", id, err)
	}
	return n, nil
}

func (s *queries) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id LIMIT $2`

	rows, err := s.q.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, mapError("list notifications", "notification", recipientID, err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, mapError("scan notification", "notification", recipientID, err)
		}
		out = append(out, *n)
	}
	return out, mapError("iterate notifications", "notification", recipientID, rows.Err())
}

func (s *queries) MarkNotificationRead(ctx context.Context, id string, at time.Time) (*models.Notification, error) {
	n, err := scanNotification(s.q.QueryRowContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING `+notificationColumns, id, at))
	if err != nil {
		return nil, mapError("mark notification read", "notification", id, err)
	}
	return n, nil
}

func (s *queries) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE notifications SET read_at = $2 WHERE recipient_id = $1 AND read_at IS NULL`,
		recipientID, at,
	)
	if err != nil {
		return 0, mapError("mark all notifications read", "notification", recipientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("rows affected", "notification", recipientID, err)
	}
	return n, nil
}

// ==========================
// Profiles
// ==========================

func (s *queries) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	var experience sql.NullString
	var rate sql.NullFloat64
	var specializations, certifications pq.StringArray
	err := s.q.QueryRowContext(ctx, `
		SELECT id, email, display_name, phone, role, experience_level, hourly_rate, rating,
			completed_jobs, specializations, certifications, created_at
		FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Phone, &p.Role, &experience, &rate, &p.Rating,
		&p.CompletedJobs, &specializations, &certifications, &p.CreatedAt)
	if err != nil {
		return nil, mapError("get profile", "profile", id, err)
	}
	p.ExperienceLevel = models.ExperienceLevel(experience.String)
	if rate.Valid {
		r := rate.Float64
		p.HourlyRate = &r
	}
	p.Specializations = []string(specializations)
	p.Certifications = []string(certifications)
	return &p, nil
}

// ==========================
// Search
// ==========================

// SearchJobs applies the server-side filters and returns candidates newest first.
// Callers read large result sets in batches by passing the last row as q.After.
func (s *queries) SearchJobs(ctx context.Context, q JobQuery) ([]models.Job, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	status := q.Status
	if status == "" {
		status = models.JobStatusOpen
	}
	where = append(where, "status = "+arg(status))

	if q.Text != "" {
		pattern := "%" + escapeLike(q.Text) + "%"
		p := arg(pattern)
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if q.Category != "" {
		where = append(where, "category = "+arg(q.Category))
	}
	if q.MinRate != nil {
		where = append(where, "hourly_rate >= "+arg(*q.MinRate))
	}
	if q.MaxRate != nil {
		where = append(where, "hourly_rate <= "+arg(*q.MaxRate))
	}
	if q.Urgency != "" {
		where = append(where, "urgency = "+arg(q.Urgency))
	}
	if q.RequiredExperience != "" {
		where = append(where, "required_experience = "+arg(q.RequiredExperience))
	}
	if len(q.Certifications) > 0 {
		where = append(where, "required_certifications && "+arg(pq.Array(q.Certifications)))
	}
	if q.Box != nil {
		where = append(where, fmt.Sprintf("latitude BETWEEN %s AND %s", arg(q.Box.MinLat), arg(q.Box.MaxLat)))
		if !q.Box.CrossesAntimeridian() {
			where = append(where, fmt.Sprintf("longitude BETWEEN %s AND %s", arg(q.Box.MinLng), arg(q.Box.MaxLng)))
		}
	}

	if q.After != nil {
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(q.After.CreatedAt), arg(q.After.ID)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ` + arg(q.Limit)
	}
	return s.selectJobs(ctx, "search jobs", query, args...)
}

// ScanJobs returns up to limit jobs of any status after the cursor.
func (s *queries) ScanJobs(ctx context.Context, after *JobCursor, limit int) ([]models.Job, error) {
	if after == nil {
		return s.selectJobs(ctx, "scan jobs",
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	}
	return s.selectJobs(ctx, "scan jobs",
		`SELECT `+jobColumns+` FROM jobs WHERE (created_at, id) < ($1, $2) ORDER BY created_at DESC, id DESC LIMIT $3`,
		after.CreatedAt, after.ID, limit)
}

func (s *queries) selectJobs(ctx context.Context, op, query string, args ...interface{}) ([]models.Job, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, "job", "", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, mapError("scan job", "job", "", err)
		}
		out = append(out, *j)
	}
	return out, mapError("iterate jobs", "job", "", rows.Err())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
