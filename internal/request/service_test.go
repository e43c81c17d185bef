package request_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tutela/internal/audit"
	"tutela/internal/platform/config"
	"tutela/internal/request"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/subjectlock"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

type ManagerSuite struct {
	suite.Suite

	store      *request.InMemoryStore
	auditStore *audit.InMemoryStore
	scheduler  *stubScheduler
	manager    *request.Manager
	ctx        context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = request.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.scheduler = &stubScheduler{}
	recorder := audit.NewRecorder(s.auditStore, logger)
	s.manager = request.NewManager(
		s.store,
		recorder,
		tx.NoopRunner{},
		&subjectlock.Table{},
		s.scheduler,
		config.DefaultPolicy(),
		logger,
		nil,
	)
	s.ctx = requestcontext.WithActor(context.Background(), "operator")
}

func (s *ManagerSuite) TestFileSetsDeadlineFromResponseWindow() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)

	filed, err := s.manager.File(ctx, id.NewSubjectID(), id.RequestTypeAccess, "full access copy")
	s.Require().NoError(err)

	s.Equal(id.StatusPending, filed.Status)
	s.Equal(now, filed.CreatedAt)
	s.Equal(now.Add(15*24*time.Hour), filed.Deadline)

	events, err := s.auditStore.Query(s.ctx, audit.Filter{Action: audit.ActionRequestCreated})
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ManagerSuite) TestFileDeletionSchedulesPurge() {
	subjectID := id.NewSubjectID()
	_, err := s.manager.File(s.ctx, subjectID, id.RequestTypeDeletion, "leave the platform")
	s.Require().NoError(err)
	s.Equal(1, s.scheduler.calls)
	s.Equal(subjectID, s.scheduler.lastSubject)
}

func (s *ManagerSuite) TestFileDeletionFailsWhenAlreadyScheduled() {
	s.scheduler.err = dErrors.New(dErrors.CodeInvalidState, "deletion already scheduled")

	subjectID := id.NewSubjectID()
	_, err := s.manager.File(s.ctx, subjectID, id.RequestTypeDeletion, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	// Both-or-neither: the failed filing leaves no request behind.
	requests, listErr := s.manager.ListBySubject(s.ctx, subjectID)
	s.Require().NoError(listErr)
	s.Empty(requests)
}

func (s *ManagerSuite) TestTransitionGraph() {
	cases := []struct {
		name string
		path []id.RequestStatus
		to   id.RequestStatus
		ok   bool
	}{
		{"pending to processing", nil, id.StatusProcessing, true},
		{"pending to rejected", nil, id.StatusRejected, true},
		{"pending to completed", nil, id.StatusCompleted, false},
		{"pending to pending", nil, id.StatusPending, false},
		{"processing to completed", []id.RequestStatus{id.StatusProcessing}, id.StatusCompleted, true},
		{"processing to rejected", []id.RequestStatus{id.StatusProcessing}, id.StatusRejected, true},
		{"processing to pending", []id.RequestStatus{id.StatusProcessing}, id.StatusPending, false},
		{"completed is terminal", []id.RequestStatus{id.StatusProcessing, id.StatusCompleted}, id.StatusProcessing, false},
		{"rejected is terminal", []id.RequestStatus{id.StatusRejected}, id.StatusProcessing, false},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			filed, err := s.manager.File(s.ctx, id.NewSubjectID(), id.RequestTypeAccess, "walk the graph")
			s.Require().NoError(err)
			for _, step := range tc.path {
				_, err = s.manager.Transition(s.ctx, filed.ID, step, "step notes")
				s.Require().NoError(err)
			}

			before, err := s.manager.Get(s.ctx, filed.ID)
			s.Require().NoError(err)
			auditBefore, err := s.auditStore.Query(s.ctx, audit.Filter{SubjectID: filed.SubjectID})
			s.Require().NoError(err)

			_, err = s.manager.Transition(s.ctx, filed.ID, tc.to, "attempt notes")
			if tc.ok {
				s.Require().NoError(err)
				return
			}
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

			// An illegal transition leaves no trace.
			after, getErr := s.manager.Get(s.ctx, filed.ID)
			s.Require().NoError(getErr)
			s.Equal(before.Status, after.Status)
			auditAfter, queryErr := s.auditStore.Query(s.ctx, audit.Filter{SubjectID: filed.SubjectID})
			s.Require().NoError(queryErr)
			s.Len(auditAfter, len(auditBefore))
		})
	}
}

func (s *ManagerSuite) TestCompletionStampsTimestamp() {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)

	filed, err := s.manager.File(ctx, id.NewSubjectID(), id.RequestTypeCorrection, "fix my email")
	s.Require().NoError(err)
	_, err = s.manager.Transition(ctx, filed.ID, id.StatusProcessing, "")
	s.Require().NoError(err)
	done, err := s.manager.Transition(ctx, filed.ID, id.StatusCompleted, "corrected")
	s.Require().NoError(err)

	s.Require().NotNil(done.CompletedAt)
	s.Equal(now, *done.CompletedAt)
}

func (s *ManagerSuite) TestRejectionRequiresNotes() {
	filed, err := s.manager.File(s.ctx, id.NewSubjectID(), id.RequestTypeAccess, "access")
	s.Require().NoError(err)

	_, err = s.manager.Transition(s.ctx, filed.ID, id.StatusRejected, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	rejected, err := s.manager.Transition(s.ctx, filed.ID, id.StatusRejected, "identity not verified")
	s.Require().NoError(err)
	s.Equal("identity not verified", rejected.ProcessingNotes)
}

func (s *ManagerSuite) TestTransitionUnknownRequest() {
	_, err := s.manager.Transition(s.ctx, id.NewRequestID(), id.StatusProcessing, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ManagerSuite) TestListOverdueIsDerived() {
	filedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, filedAt)

	stale, err := s.manager.File(ctx, id.NewSubjectID(), id.RequestTypeAccess, "stale")
	s.Require().NoError(err)
	_, err = s.manager.File(ctx, id.NewSubjectID(), id.RequestTypePortability, "fresh")
	s.Require().NoError(err)

	beforeDeadline := filedAt.Add(14 * 24 * time.Hour)
	overdue, err := s.manager.ListOverdue(s.ctx, beforeDeadline)
	s.Require().NoError(err)
	s.Empty(overdue)

	afterDeadline := filedAt.Add(16 * 24 * time.Hour)
	overdue, err = s.manager.ListOverdue(s.ctx, afterDeadline)
	s.Require().NoError(err)
	s.Len(overdue, 2)

	// Leaving pending removes a request from the overdue view.
	_, err = s.manager.Transition(s.ctx, stale.ID, id.StatusProcessing, "")
	s.Require().NoError(err)
	overdue, err = s.manager.ListOverdue(s.ctx, afterDeadline)
	s.Require().NoError(err)
	s.Len(overdue, 1)
}

type stubScheduler struct {
	calls       int
	lastSubject id.SubjectID
	err         error
}

func (s *stubScheduler) Create(_ context.Context, subjectID id.SubjectID, _ string) error {
	s.calls++
	s.lastSubject = subjectID
	return s.err
}
