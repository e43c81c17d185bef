//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Schema creates every table the engine persists to. Integration tests apply
// it against a fresh container instead of running migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS terms_versions (
	id UUID PRIMARY KEY,
	document_type TEXT NOT NULL,
	version TEXT NOT NULL,
	content TEXT NOT NULL,
	effective_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS terms_versions_active_idx
	ON terms_versions (document_type) WHERE is_active;

CREATE TABLE IF NOT EXISTS consent_records (
	id UUID PRIMARY KEY,
	subject_id UUID NOT NULL,
	consent_type TEXT NOT NULL,
	terms_version TEXT NOT NULL DEFAULT '',
	given BOOLEAN NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS consent_records_subject_idx
	ON consent_records (subject_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	subject_id UUID,
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	performed_by TEXT NOT NULL DEFAULT '',
	justification TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx
	ON audit_events (subject_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS data_requests (
	id UUID PRIMARY KEY,
	subject_id UUID NOT NULL,
	request_type TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	deadline TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	processing_notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS data_requests_subject_idx
	ON data_requests (subject_id, created_at DESC);
CREATE INDEX IF NOT EXISTS data_requests_overdue_idx
	ON data_requests (deadline) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS deletion_schedules (
	id UUID PRIMARY KEY,
	subject_id UUID NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL,
	purge_at TIMESTAMPTZ NOT NULL,
	justification TEXT NOT NULL DEFAULT '',
	cancelled BOOLEAN NOT NULL DEFAULT FALSE,
	purged_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS deletion_schedules_active_idx
	ON deletion_schedules (subject_id) WHERE NOT cancelled AND purged_at IS NULL;

CREATE TABLE IF NOT EXISTS subject_profiles (
	subject_id UUID PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	last_data_export TIMESTAMPTZ
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the engine
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tutela_test"),
		tcpostgres.WithUsername("tutela"),
		tcpostgres.WithPassword("tutela"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}
