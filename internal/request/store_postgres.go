package request

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

// PostgresStore persists requests in the data_requests table.
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

const requestColumns = `id, subject_id, request_type, status, description,
       created_at, deadline, completed_at, processing_notes`

func (s *PostgresStore) Create(ctx context.Context, req Request) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO data_requests (
			id, subject_id, request_type, status, description,
			created_at, deadline, completed_at, processing_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(req.ID),
		uuid.UUID(req.SubjectID),
		string(req.Type),
		string(req.Status),
		req.Description,
		req.CreatedAt,
		req.Deadline,
		req.CompletedAt,
		req.ProcessingNotes,
	)
	if err != nil {
		return fmt.Errorf("insert data request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID id.RequestID) (Request, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM data_requests
		WHERE id = $1
	`, uuid.UUID(requestID))

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("get data request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Update(ctx context.Context, req Request) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE data_requests
		SET status = $2, completed_at = $3, processing_notes = $4
		WHERE id = $1
	`,
		uuid.UUID(req.ID),
		string(req.Status),
		req.CompletedAt,
		req.ProcessingNotes,
	)
	if err != nil {
		return fmt.Errorf("update data request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update data request: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM data_requests
		WHERE subject_id = $1
		ORDER BY created_at DESC, id DESC
	`, uuid.UUID(subjectID))
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM data_requests
		WHERE status = 'pending' AND deadline < $1
		ORDER BY created_at DESC, id DESC
	`, now)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query data requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data requests: %w", err)
	}
	return requests, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[id.RequestStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM data_requests
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.RequestStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[id.RequestStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) CountByType(ctx context.Context) (map[id.RequestType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_type, COUNT(*)
		FROM data_requests
		GROUP BY request_type
	`)
	if err != nil {
		return nil, fmt.Errorf("count requests by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.RequestType]int)
	for rows.Next() {
		var (
			reqType string
			n       int
		)
		if err := rows.Scan(&reqType, &n); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts[id.RequestType(reqType)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM data_requests WHERE subject_id = $1
	`, uuid.UUID(subjectID))
	if err != nil {
		return fmt.Errorf("purge data requests: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var (
		req       Request
		requestID uuid.UUID
		subject   uuid.UUID
		reqType   string
		status    string
	)
	err := row.Scan(
		&requestID,
		&subject,
		&reqType,
		&status,
		&req.Description,
		&req.CreatedAt,
		&req.Deadline,
		&req.CompletedAt,
		&req.ProcessingNotes,
	)
	if err != nil {
		return Request{}, err
	}
	req.ID = id.RequestID(requestID)
	req.SubjectID = id.SubjectID(subject)
	req.Type = id.RequestType(reqType)
	req.Status = id.RequestStatus(status)
	return req, nil
}

var _ Store = (*PostgresStore)(nil)
