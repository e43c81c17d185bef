package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tutela/internal/audit"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
)

type RecorderSuite struct {
	suite.Suite

	store    *audit.InMemoryStore
	recorder *audit.Recorder
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = audit.NewInMemoryStore()
	s.recorder = audit.NewRecorder(s.store, logger)
	s.ctx = context.Background()
}

func (s *RecorderSuite) TestAppendAssignsIdentityAndTimestamp() {
	event, err := s.recorder.Append(s.ctx, audit.Event{
		SubjectID:    id.NewSubjectID(),
		Action:       audit.ActionConsentRecorded,
		ResourceType: audit.ResourceConsent,
	})
	s.Require().NoError(err)
	s.False(event.ID.IsNil())
	s.False(event.RecordedAt.IsZero())
}

func (s *RecorderSuite) TestAppendRequiresAction() {
	_, err := s.recorder.Append(s.ctx, audit.Event{SubjectID: id.NewSubjectID()})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *RecorderSuite) TestAppendRetriesTransientFailures() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flaky := &flakyStore{inner: s.store, failures: 2}
	recorder := audit.NewRecorder(flaky, logger)

	_, err := recorder.Append(s.ctx, audit.Event{
		SubjectID: id.NewSubjectID(),
		Action:    audit.ActionDataExport,
	})
	s.Require().NoError(err)
	s.Equal(3, flaky.attempts)
}

func (s *RecorderSuite) TestAppendSurfacesPersistentFailure() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flaky := &flakyStore{inner: s.store, failures: 10}
	recorder := audit.NewRecorder(flaky, logger)

	_, err := recorder.Append(s.ctx, audit.Event{
		SubjectID: id.NewSubjectID(),
		Action:    audit.ActionDataExport,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
	s.Equal(3, flaky.attempts)
}

func (s *RecorderSuite) TestQueryFiltersAndOrders() {
	subjectID := id.NewSubjectID()
	other := id.NewSubjectID()

	for i, action := range []audit.Action{
		audit.ActionConsentRecorded,
		audit.ActionDataExport,
		audit.ActionConsentRecorded,
	} {
		_, err := s.recorder.Append(s.ctx, audit.Event{
			SubjectID:  subjectID,
			Action:     action,
			RecordedAt: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
		s.Require().NoError(err)
	}
	_, err := s.recorder.Append(s.ctx, audit.Event{SubjectID: other, Action: audit.ActionDataExport})
	s.Require().NoError(err)

	events, err := s.recorder.Query(s.ctx, audit.Filter{
		SubjectID: subjectID,
		Action:    audit.ActionConsentRecorded,
	})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.True(events[0].RecordedAt.After(events[1].RecordedAt))

	limited, err := s.recorder.Query(s.ctx, audit.Filter{SubjectID: subjectID, Limit: 1})
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *RecorderSuite) TestPurgeKeepsDefenseEvents() {
	subjectID := id.NewSubjectID()

	for _, action := range []audit.Action{
		audit.ActionConsentRecorded,
		audit.ActionDataExport,
		audit.ActionRequestCreated,
		audit.ActionDeletionScheduled,
		audit.ActionAccountPurged,
	} {
		_, err := s.recorder.Append(s.ctx, audit.Event{SubjectID: subjectID, Action: action})
		s.Require().NoError(err)
	}

	s.Require().NoError(s.recorder.PurgeSubject(s.ctx, subjectID))

	events, err := s.recorder.Query(s.ctx, audit.Filter{SubjectID: subjectID})
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	for _, e := range events {
		s.True(e.Action.RetainedOnPurge(), "unexpected surviving action %s", e.Action)
	}
}

func (s *RecorderSuite) TestMirrorReceivesAppendedEvents() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mirror := &captureMirror{}
	recorder := audit.NewRecorder(s.store, logger, audit.WithMirror(mirror))

	event, err := recorder.Append(s.ctx, audit.Event{
		SubjectID: id.NewSubjectID(),
		Action:    audit.ActionTermsPublished,
	})
	s.Require().NoError(err)
	s.Require().Len(mirror.events, 1)
	s.Equal(event.ID, mirror.events[0].ID)
}

type flakyStore struct {
	inner    *audit.InMemoryStore
	failures int
	attempts int
}

func (f *flakyStore) Append(ctx context.Context, event audit.Event) error {
	f.attempts++
	if f.attempts <= f.failures {
		return sentinel.ErrUnavailable
	}
	return f.inner.Append(ctx, event)
}

func (f *flakyStore) Query(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	return f.inner.Query(ctx, filter)
}

func (f *flakyStore) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	return f.inner.PurgeSubject(ctx, subjectID)
}

type captureMirror struct {
	events []audit.Event
}

func (m *captureMirror) Publish(event audit.Event) { m.events = append(m.events, event) }
