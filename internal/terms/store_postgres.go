package terms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "tutela/pkg/domain"
	"tutela/pkg/platform/sentinel"
	txcontext "tutela/pkg/platform/tx"
)

// PostgresStore persists terms versions in the terms_versions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Supersede(ctx context.Context, v Version) error {
	// Join the ambient transaction when the caller provides one; otherwise
	// open a local one so deactivate+insert stay atomic.
	if ambient, ok := txcontext.From(ctx); ok {
		return s.supersedeIn(ctx, ambient, v)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin supersede: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := s.supersedeIn(ctx, sqlTx, v); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *PostgresStore) supersedeIn(ctx context.Context, sqlTx *sql.Tx, v Version) error {
	_, err := sqlTx.ExecContext(ctx, `
		UPDATE terms_versions
		SET is_active = FALSE, expires_at = $2
		WHERE document_type = $1 AND is_active
	`, string(v.DocumentType), v.EffectiveAt)
	if err != nil {
		return fmt.Errorf("deactivate prior version: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO terms_versions (
			id, document_type, version, content, effective_at, expires_at, is_active
		)
		VALUES ($1, $2, $3, $4, $5, NULL, TRUE)
	`,
		uuid.UUID(v.ID),
		string(v.DocumentType),
		v.Version,
		v.Content,
		v.EffectiveAt,
	)
	if err != nil {
		return fmt.Errorf("insert terms version: %w", err)
	}
	return nil
}

func (s *PostgresStore) Active(ctx context.Context, docType id.DocumentType) (Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_type, version, content, effective_at, expires_at, is_active
		FROM terms_versions
		WHERE document_type = $1 AND is_active
	`, string(docType))

	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Version{}, fmt.Errorf("query active terms version: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) History(ctx context.Context, docType id.DocumentType) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_type, version, content, effective_at, expires_at, is_active
		FROM terms_versions
		WHERE document_type = $1
		ORDER BY effective_at DESC
	`, string(docType))
	if err != nil {
		return nil, fmt.Errorf("query terms history: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan terms version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate terms versions: %w", err)
	}
	return versions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var (
		v       Version
		termsID uuid.UUID
		docType string
	)
	err := row.Scan(
		&termsID,
		&docType,
		&v.Version,
		&v.Content,
		&v.EffectiveAt,
		&v.ExpiresAt,
		&v.Active,
	)
	if err != nil {
		return Version{}, err
	}
	v.ID = id.TermsID(termsID)
	v.DocumentType = id.DocumentType(docType)
	return v, nil
}

var _ Store = (*PostgresStore)(nil)
