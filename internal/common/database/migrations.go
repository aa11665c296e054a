package database

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

// migrations must stay ordered with sequential versions.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id               TEXT PRIMARY KEY,
	email            TEXT NOT NULL,
	display_name     TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	role             TEXT NOT NULL CHECK (role IN ('golf_course', 'professional')),
	experience_level TEXT,
	hourly_rate      NUMERIC(6,2),
	rating           NUMERIC(3,2) NOT NULL DEFAULT 0,
	completed_jobs   INTEGER NOT NULL DEFAULT 0,
	specializations  TEXT[] NOT NULL DEFAULT '{}',
	certifications   TEXT[] NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id                      TEXT PRIMARY KEY,
	poster_id               TEXT NOT NULL REFERENCES profiles(id),
	title                   TEXT NOT NULL,
	description             TEXT NOT NULL,
	category                TEXT NOT NULL,
	latitude                DOUBLE PRECISION NOT NULL,
	longitude               DOUBLE PRECISION NOT NULL,
	address                 TEXT NOT NULL DEFAULT '',
	start_at                TIMESTAMPTZ NOT NULL,
	end_at                  TIMESTAMPTZ NOT NULL,
	hourly_rate             NUMERIC(6,2) NOT NULL,
	required_certifications TEXT[] NOT NULL DEFAULT '{}',
	required_experience     TEXT NOT NULL,
	urgency                 TEXT NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'open',
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	applicant_id  TEXT NOT NULL REFERENCES profiles(id),
	message       TEXT NOT NULL,
	proposed_rate NUMERIC(6,2) NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	applied_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_applications_live
	ON applications(job_id, applicant_id) WHERE status <> 'withdrawn';

CREATE TABLE IF NOT EXISTS conversations (
	id              TEXT PRIMARY KEY,
	job_id          TEXT NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
	application_id  TEXT NOT NULL,
	poster_id       TEXT NOT NULL,
	professional_id TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id       TEXT NOT NULL,
	content         TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT 'text',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_progress (
	id              TEXT PRIMARY KEY,
	job_id          TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	professional_id TEXT NOT NULL,
	content         TEXT NOT NULL,
	milestone       TEXT NOT NULL DEFAULT 'update',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	type         TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	read_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_location ON jobs(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_applications_job ON applications(job_id);
CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(applicant_id);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_unread
	ON notifications(recipient_id) WHERE read_at IS NULL;

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db *sql.DB) error {
	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'schema_version')`,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	current := 0
	if exists {
		if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}
