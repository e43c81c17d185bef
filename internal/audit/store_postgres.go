package audit

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
	txcontext "tutela/pkg/platform/tx"
)

// PostgresStore persists the audit trail in the audit_events table.
//
// Appends join the ambient SQL transaction when one is present in the
// context, so a state write and its audit event commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			id, subject_id, action, resource_type, resource_id,
			old_value, new_value, performed_by, justification, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var subjectID *uuid.UUID
	if !event.SubjectID.IsNil() {
		sid := uuid.UUID(event.SubjectID)
		subjectID = &sid
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		subjectID,
		string(event.Action),
		event.ResourceType,
		event.ResourceID,
		event.OldValue,
		event.NewValue,
		event.PerformedBy,
		event.Justification,
		event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", markUnavailable(err))
	}
	return nil
}

// markUnavailable tags connection-class failures with sentinel.ErrUnavailable
// so the recorder retries them. Permanent errors pass through unchanged.
func markUnavailable(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. Class 53: insufficient resources.
		// Class 57: operator intervention (shutdown, crash recovery).
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return err
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, subject_id, action, resource_type, resource_id,
		       old_value, new_value, performed_by, justification, recorded_at
		FROM audit_events
	`

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.SubjectID.IsNil() {
		conds = append(conds, "subject_id = "+arg(uuid.UUID(filter.SubjectID)))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(string(filter.Action)))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "recorded_at >= "+arg(filter.Since))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e         Event
			eventID   uuid.UUID
			subjectID *uuid.UUID
			action    string
		)
		err := rows.Scan(
			&eventID,
			&subjectID,
			&action,
			&e.ResourceType,
			&e.ResourceID,
			&e.OldValue,
			&e.NewValue,
			&e.PerformedBy,
			&e.Justification,
			&e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.EventID(eventID)
		e.Action = Action(action)
		if subjectID != nil {
			e.SubjectID = id.SubjectID(*subjectID)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	retained := make([]string, 0, len(retainedOnPurge))
	for action := range retainedOnPurge {
		retained = append(retained, string(action))
	}

	query := `
		DELETE FROM audit_events
		WHERE subject_id = $1
		  AND NOT (action = ANY($2))
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(subjectID),
		pqStringArray(retained),
	)
	if err != nil {
		return fmt.Errorf("purge audit events: %w", err)
	}
	return nil
}

// pqStringArray renders a Postgres text array literal. Both lib/pq and the
// pgx stdlib driver accept the literal form for ANY() parameters.
func pqStringArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

var _ Store = (*PostgresStore)(nil)
