package deletion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
	txcontext "tutela/pkg/platform/tx"
)

// PostgresStore persists schedules in the deletion_schedules table. A partial
// unique index on (subject_id) WHERE NOT cancelled AND purged_at IS NULL
// enforces one active schedule per subject.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const scheduleColumns = `id, subject_id, requested_at, purge_at, justification, cancelled, purged_at`

func (s *PostgresStore) Create(ctx context.Context, schedule Schedule) error {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM deletion_schedules
			WHERE subject_id = $1 AND NOT cancelled AND purged_at IS NULL
		)
	`, uuid.UUID(schedule.SubjectID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check active schedule: %w", err)
	}
	if exists {
		return sentinel.ErrConflict
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO deletion_schedules (
			id, subject_id, requested_at, purge_at, justification, cancelled, purged_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(schedule.ID),
		uuid.UUID(schedule.SubjectID),
		schedule.RequestedAt,
		schedule.PurgeAt,
		schedule.Justification,
		schedule.Cancelled,
		schedule.PurgedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deletion schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveBySubject(ctx context.Context, subjectID id.SubjectID) (Schedule, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM deletion_schedules
		WHERE subject_id = $1 AND NOT cancelled AND purged_at IS NULL
	`, uuid.UUID(subjectID))

	schedule, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Schedule{}, fmt.Errorf("get active schedule: %w", err)
	}
	return schedule, nil
}

func (s *PostgresStore) MarkCancelled(ctx context.Context, scheduleID id.ScheduleID) error {
	return s.mark(ctx, `
		UPDATE deletion_schedules SET cancelled = TRUE WHERE id = $1
	`, uuid.UUID(scheduleID))
}

func (s *PostgresStore) MarkPurged(ctx context.Context, scheduleID id.ScheduleID, purgedAt time.Time) error {
	return s.mark(ctx, `
		UPDATE deletion_schedules SET purged_at = $2 WHERE id = $1
	`, uuid.UUID(scheduleID), purgedAt)
}

func (s *PostgresStore) mark(ctx context.Context, query string, args ...any) error {
	result, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update deletion schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deletion schedule: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM deletion_schedules
		WHERE NOT cancelled AND purged_at IS NULL AND purge_at <= $1
		ORDER BY purge_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	var due []Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deletion schedule: %w", err)
		}
		due = append(due, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due schedules: %w", err)
	}
	return due, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (Schedule, error) {
	var (
		schedule   Schedule
		scheduleID uuid.UUID
		subject    uuid.UUID
	)
	err := row.Scan(
		&scheduleID,
		&subject,
		&schedule.RequestedAt,
		&schedule.PurgeAt,
		&schedule.Justification,
		&schedule.Cancelled,
		&schedule.PurgedAt,
	)
	if err != nil {
		return Schedule{}, err
	}
	schedule.ID = id.ScheduleID(scheduleID)
	schedule.SubjectID = id.SubjectID(subject)
	return schedule, nil
}

var _ Store = (*PostgresStore)(nil)
