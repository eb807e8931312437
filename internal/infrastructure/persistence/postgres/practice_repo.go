package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/signalschool/practice-hub/internal/domain/practice"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PracticeRepository implements practice.Repository for PostgreSQL.
// The backing table is append-only: events are facts and are never
// updated once written.
type PracticeRepository struct {
	conn *Connection
}

// NewPracticeRepository creates a new PracticeRepository.
func NewPracticeRepository(conn *Connection) *PracticeRepository {
	return &PracticeRepository{conn: conn}
}

// Append persists a completed practice event.
func (r *PracticeRepository) Append(ctx context.Context, e practice.Event) error {
	query := `
		INSERT INTO practice_events (
			id, learner_id, kind, occurred_at,
			correct_count, total_count, accuracy_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID,
		e.LearnerID,
		string(e.Kind),
		e.OccurredAt,
		e.CorrectCount,
		e.TotalCount,
		e.AccuracyScore,
	)
	if err != nil {
		return fmt.Errorf("failed to append practice event: %w", err)
	}

	return nil
}

// GetByLearner returns a learner's full practice history, oldest first.
func (r *PracticeRepository) GetByLearner(ctx context.Context, learnerID string) ([]practice.Event, error) {
	query := `
		SELECT id, learner_id, kind, occurred_at,
			   correct_count, total_count, accuracy_score
		FROM practice_events
		WHERE learner_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.conn.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice events: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// CountByLearner returns the number of events for a learner, optionally
// restricted to one kind. An empty kind counts everything.
func (r *PracticeRepository) CountByLearner(ctx context.Context, learnerID string, kind practice.Kind) (int, error) {
	var count int
	var err error

	if kind == "" {
		err = r.conn.QueryRow(ctx,
			"SELECT COUNT(*) FROM practice_events WHERE learner_id = $1",
			learnerID,
		).Scan(&count)
	} else {
		err = r.conn.QueryRow(ctx,
			"SELECT COUNT(*) FROM practice_events WHERE learner_id = $1 AND kind = $2",
			learnerID, string(kind),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count practice events: %w", err)
	}

	return count, nil
}

func (r *PracticeRepository) scanEvents(rows pgx.Rows) ([]practice.Event, error) {
	var events []practice.Event

	for rows.Next() {
		var e practice.Event
		var kind string

		err := rows.Scan(
			&e.ID,
			&e.LearnerID,
			&kind,
			&e.OccurredAt,
			&e.CorrectCount,
			&e.TotalCount,
			&e.AccuracyScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan practice event: %w", err)
		}

		e.Kind = practice.Kind(kind)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}
