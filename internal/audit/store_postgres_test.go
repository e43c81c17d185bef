package audit

import (
	"database/sql/driver"
	"errors"
	"net"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"tutela/pkg/platform/sentinel"
)

func TestMarkUnavailableTagsConnectionFailures(t *testing.T) {
	transient := []error{
		driver.ErrBadConn,
		&pgconn.PgError{Code: "08006", Message: "connection failure"},
		&pgconn.PgError{Code: "53300", Message: "too many connections"},
		&pgconn.PgError{Code: "57P01", Message: "admin shutdown"},
		&net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded},
	}
	for _, err := range transient {
		assert.ErrorIs(t, markUnavailable(err), sentinel.ErrUnavailable, "expected %v to be retryable", err)
	}

	permanent := []error{
		&pgconn.PgError{Code: "23505", Message: "duplicate key value"},
		&pgconn.PgError{Code: "42P01", Message: "relation does not exist"},
		errors.New("scan audit event: unexpected column"),
	}
	for _, err := range permanent {
		assert.NotErrorIs(t, markUnavailable(err), sentinel.ErrUnavailable, "expected %v to be permanent", err)
	}
}
