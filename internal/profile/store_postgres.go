package profile

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

// PostgresStore persists profiles in the subject_profiles table.
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

func (s *PostgresStore) Upsert(ctx context.Context, p Profile) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO subject_profiles (subject_id, name, email, created_at, last_data_export)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email
	`,
		uuid.UUID(p.SubjectID),
		p.Name,
		p.Email,
		p.CreatedAt,
		p.LastDataExport,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subjectID id.SubjectID) (Profile, error) {
	var (
		p       Profile
		subject uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT subject_id, name, email, created_at, last_data_export
		FROM subject_profiles
		WHERE subject_id = $1
	`, uuid.UUID(subjectID)).Scan(
		&subject,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.LastDataExport,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.SubjectID = id.SubjectID(subject)
	return p, nil
}

func (s *PostgresStore) SetLastExport(ctx context.Context, subjectID id.SubjectID, at time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE subject_profiles SET last_data_export = $2 WHERE subject_id = $1
	`, uuid.UUID(subjectID), at)
	if err != nil {
		return fmt.Errorf("stamp last export: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("stamp last export: rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subject_profiles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM subject_profiles WHERE subject_id = $1
	`, uuid.UUID(subjectID))
	if err != nil {
		return fmt.Errorf("purge profile: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
