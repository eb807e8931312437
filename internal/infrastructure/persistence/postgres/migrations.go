package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE LEARNERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Learner snapshot table. The stats columns are a derived cache of the
-- practice_events history; the history is the source of truth and a full
-- recompute can rebuild every stats column from scratch.
CREATE TABLE IF NOT EXISTS learners (
    id VARCHAR(64) PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL,
    callsign VARCHAR(20) NOT NULL DEFAULT '',

    -- Derived statistics snapshot
    streak INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    total_sessions INTEGER NOT NULL DEFAULT 0,
    quiz_sessions INTEGER NOT NULL DEFAULT 0,
    voice_sessions INTEGER NOT NULL DEFAULT 0,
    total_correct INTEGER NOT NULL DEFAULT 0,
    total_answered INTEGER NOT NULL DEFAULT 0,
    overall_accuracy INTEGER NOT NULL DEFAULT 0,
    points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    last_practiced_at TIMESTAMP WITH TIME ZONE,

    -- Optimistic locking for concurrent recomputations
    version INTEGER NOT NULL DEFAULT 1,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streak CHECK (streak >= 0),
    CONSTRAINT valid_points CHECK (points >= 0),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_accuracy CHECK (overall_accuracy >= 0 AND overall_accuracy <= 100)
);

CREATE INDEX IF NOT EXISTS idx_learners_points ON learners(points DESC);
CREATE INDEX IF NOT EXISTS idx_learners_last_practiced ON learners(last_practiced_at);
`

const migration001Down = `
DROP TABLE IF EXISTS learners;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PRACTICE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Append-only practice event log. Rows are never updated or deleted;
-- every learner statistic is derived by replaying this log.
CREATE TABLE IF NOT EXISTS practice_events (
    id UUID PRIMARY KEY,
    learner_id VARCHAR(64) NOT NULL REFERENCES learners(id),
    kind VARCHAR(10) NOT NULL,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,

    -- Quiz fields (zero for voice drills)
    correct_count INTEGER NOT NULL DEFAULT 0,
    total_count INTEGER NOT NULL DEFAULT 0,

    -- Voice fields (zero for quizzes)
    accuracy_score INTEGER NOT NULL DEFAULT 0,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('quiz', 'voice')),
    CONSTRAINT valid_counts CHECK (correct_count >= 0 AND total_count >= 0),
    CONSTRAINT valid_score CHECK (accuracy_score >= 0 AND accuracy_score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_practice_events_learner ON practice_events(learner_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_practice_events_kind ON practice_events(learner_id, kind);
`

const migration002Down = `
DROP TABLE IF EXISTS practice_events;
`

// Migration is one versioned schema change with its inverse.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// GetMigrations returns all embedded migrations in apply order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learners",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_practice_events",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migrator applies the embedded migrations, recording each applied
// version in schema_migrations. Each migration runs in its own
// transaction together with its bookkeeping row.
type Migrator struct {
	conn *Connection
}

// NewMigrator creates a Migrator over the embedded migration set.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn}
}

// Migrate applies every migration that has not been applied yet.
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range GetMigrations() {
		if applied[mig.Version] {
			continue
		}

		err := m.conn.withTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration, if any.
func (m *Migrator) Rollback(ctx context.Context) error {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range applied {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	for _, mig := range GetMigrations() {
		if mig.Version != last {
			continue
		}
		if mig.DownSQL == "" {
			return fmt.Errorf("migration %d has no down SQL", last)
		}
		return m.conn.withTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", last)
			return err
		})
	}
	return fmt.Errorf("applied migration %d not found in embedded set", last)
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
