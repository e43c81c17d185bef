package consent

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "tutela/pkg/domain"
	txcontext "tutela/pkg/platform/tx"
)

// PostgresStore persists the consent ledger in the consent_records table.
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

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO consent_records (
			id, subject_id, consent_type, terms_version, given,
			ip_address, user_agent, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(record.ID),
		uuid.UUID(record.SubjectID),
		string(record.Type),
		record.TermsVersion,
		record.Given,
		record.IPAddress,
		record.UserAgent,
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, consent_type, terms_version, given,
		       ip_address, user_agent, recorded_at
		FROM consent_records
		WHERE subject_id = $1
		ORDER BY recorded_at DESC, id DESC
	`, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query consent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r          Record
			consentID  uuid.UUID
			subject    uuid.UUID
			consentTyp string
		)
		err := rows.Scan(
			&consentID,
			&subject,
			&consentTyp,
			&r.TermsVersion,
			&r.Given,
			&r.IPAddress,
			&r.UserAgent,
			&r.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		r.ID = id.ConsentID(consentID)
		r.SubjectID = id.SubjectID(subject)
		r.Type = id.ConsentType(consentTyp)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) CountConsentedSubjects(ctx context.Context) (int, error) {
	// Latest record per subject decides their standing.
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM (
			SELECT DISTINCT ON (subject_id) given
			FROM consent_records
			ORDER BY subject_id, recorded_at DESC, id DESC
		) latest
		WHERE latest.given
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count consented subjects: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM consent_records WHERE subject_id = $1
	`, uuid.UUID(subjectID))
	if err != nil {
		return fmt.Errorf("purge consent records: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
