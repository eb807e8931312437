package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements learner.Repository for PostgreSQL.
type LearnerRepository struct {
	conn *Connection
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

const learnerColumns = `
	id, display_name, callsign,
	streak, best_streak, total_sessions, quiz_sessions, voice_sessions,
	total_correct, total_answered, overall_accuracy, points, level,
	last_practiced_at, version, created_at, updated_at
`

// Create persists a new learner.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	query := `
		INSERT INTO learners (
			id, display_name, callsign,
			streak, best_streak, total_sessions, quiz_sessions, voice_sessions,
			total_correct, total_answered, overall_accuracy, points, level,
			last_practiced_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.conn.Exec(ctx, query,
		l.ID,
		l.DisplayName,
		l.Callsign,
		l.Stats.Streak,
		l.Stats.BestStreak,
		l.Stats.TotalSessions,
		l.Stats.QuizSessions,
		l.Stats.VoiceSessions,
		l.Stats.TotalCorrect,
		l.Stats.TotalAnswered,
		l.Stats.OverallAccuracy,
		l.Stats.Points,
		l.Stats.Level,
		nullableTime(l.Stats.LastPracticedAt),
		l.Version,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}

	return nil
}

// GetByID returns a learner by internal ID.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	query := "SELECT " + learnerColumns + " FROM learners WHERE id = $1"

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanLearner(row)
}

// Save persists an updated learner snapshot. The WHERE version clause
// makes it a compare-and-swap: if I hold version N and the row has
// moved on, zero rows match and the caller gets ErrStaleLearner.
func (r *LearnerRepository) Save(ctx context.Context, l *learner.Learner) error {
	query := `
		UPDATE learners SET
			display_name = $1,
			callsign = $2,
			streak = $3,
			best_streak = $4,
			total_sessions = $5,
			quiz_sessions = $6,
			voice_sessions = $7,
			total_correct = $8,
			total_answered = $9,
			overall_accuracy = $10,
			points = $11,
			level = $12,
			last_practiced_at = $13,
			version = version + 1,
			updated_at = $14
		WHERE id = $15 AND version = $16
	`

	result, err := r.conn.Exec(ctx, query,
		l.DisplayName,
		l.Callsign,
		l.Stats.Streak,
		l.Stats.BestStreak,
		l.Stats.TotalSessions,
		l.Stats.QuizSessions,
		l.Stats.VoiceSessions,
		l.Stats.TotalCorrect,
		l.Stats.TotalAnswered,
		l.Stats.OverallAccuracy,
		l.Stats.Points,
		l.Stats.Level,
		nullableTime(l.Stats.LastPracticedAt),
		l.UpdatedAt,
		l.ID,
		l.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save learner: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish stale version from missing row.
		exists, existsErr := r.exists(ctx, l.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return shared.ErrLearnerNotFound
		}
		return shared.ErrStaleLearner
	}

	l.Version++
	return nil
}

// ListIDs returns all learner IDs, for batch recomputation jobs.
func (r *LearnerRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, "SELECT id FROM learners ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list learner ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan learner id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Count returns the total number of learners.
func (r *LearnerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM learners").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count learners: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *LearnerRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM learners WHERE id = $1)",
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check learner existence: %w", err)
	}
	return exists, nil
}

func (r *LearnerRepository) scanLearner(row pgx.Row) (*learner.Learner, error) {
	var l learner.Learner
	var lastPracticed *time.Time

	err := row.Scan(
		&l.ID,
		&l.DisplayName,
		&l.Callsign,
		&l.Stats.Streak,
		&l.Stats.BestStreak,
		&l.Stats.TotalSessions,
		&l.Stats.QuizSessions,
		&l.Stats.VoiceSessions,
		&l.Stats.TotalCorrect,
		&l.Stats.TotalAnswered,
		&l.Stats.OverallAccuracy,
		&l.Stats.Points,
		&l.Stats.Level,
		&lastPracticed,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}

	if lastPracticed != nil {
		l.Stats.LastPracticedAt = *lastPracticed
	}

	return &l, nil
}

// nullableTime maps a zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
