package export_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tutela/internal/audit"
	"tutela/internal/consent"
	"tutela/internal/export"
	"tutela/internal/platform/config"
	"tutela/internal/profile"
	"tutela/internal/request"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

type AggregatorSuite struct {
	suite.Suite

	profiles   *profile.InMemoryStore
	consents   *consentHistoryStub
	requests   *requestHistoryStub
	auditStore *audit.InMemoryStore
	recorder   *audit.Recorder
	policy     config.Policy
	logger     *slog.Logger
	ctx        context.Context
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.profiles = profile.NewInMemoryStore()
	s.consents = &consentHistoryStub{}
	s.requests = &requestHistoryStub{}
	s.auditStore = audit.NewInMemoryStore()
	s.recorder = audit.NewRecorder(s.auditStore, s.logger)
	s.policy = config.DefaultPolicy()
	s.ctx = context.Background()
}

func (s *AggregatorSuite) aggregator(opts ...export.Option) *export.Aggregator {
	return export.NewAggregator(
		s.profiles, s.consents, s.requests, s.recorder,
		s.recorder, tx.NoopRunner{}, s.policy, s.logger, opts...,
	)
}

func (s *AggregatorSuite) TestExportAggregatesAllSections() {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	subjectID := id.NewSubjectID()

	s.Require().NoError(s.profiles.Upsert(s.ctx, profile.Profile{
		SubjectID: subjectID,
		Name:      "Bruno",
		Email:     "bruno@example.com",
		CreatedAt: now.AddDate(-1, 0, 0),
	}))
	s.consents.records = []consent.Record{
		{ID: id.NewConsentID(), SubjectID: subjectID, Type: id.ConsentTypeMarketing, TermsVersion: "v2", Given: true, RecordedAt: now},
	}
	s.requests.requests = []request.Request{
		{ID: id.NewRequestID(), SubjectID: subjectID, Type: id.RequestTypeAccess, Status: id.StatusPending, CreatedAt: now, Deadline: now.AddDate(0, 0, 15)},
	}
	_, err := s.recorder.Append(s.ctx, audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionConsentRecorded,
	})
	s.Require().NoError(err)

	bundle, err := s.aggregator().Export(requestcontext.WithTime(s.ctx, now), subjectID)
	s.Require().NoError(err)

	s.Equal(now, bundle.ExportInfo.GeneratedAt)
	s.Equal(subjectID.String(), bundle.ExportInfo.SubjectID)
	s.Equal("complete", bundle.ExportInfo.ExportType)

	s.Equal("Bruno", bundle.UserProfile.Name)
	s.Require().Len(bundle.ConsentHistory, 1)
	s.Equal("v2", bundle.ConsentHistory[0].TermsVersion)
	s.Require().Len(bundle.DataRequests, 1)
	s.Equal(id.RequestTypeAccess.String(), bundle.DataRequests[0].RequestType)
	s.NotEmpty(bundle.AuditTrail)

	// The export itself is audited and the profile stamped.
	events, err := s.recorder.Query(s.ctx, audit.Filter{
		SubjectID: subjectID,
		Action:    audit.ActionDataExport,
	})
	s.Require().NoError(err)
	s.Len(events, 1)

	stamped, err := s.profiles.Get(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Require().NotNil(stamped.LastDataExport)
	s.Equal(now, *stamped.LastDataExport)
}

func (s *AggregatorSuite) TestExportToleratesFailingSources() {
	s.consents.err = sentinel.ErrUnavailable
	s.requests.err = sentinel.ErrUnavailable

	bundle, err := s.aggregator().Export(s.ctx, id.NewSubjectID())
	s.Require().NoError(err)

	s.NotNil(bundle.ConsentHistory)
	s.Empty(bundle.ConsentHistory)
	s.NotNil(bundle.DataRequests)
	s.Empty(bundle.DataRequests)
}

func (s *AggregatorSuite) TestExportToleratesSlowSource() {
	s.policy.ExportSourceTimeout = 20 * time.Millisecond
	s.consents.delay = 500 * time.Millisecond

	start := time.Now()
	bundle, err := s.aggregator().Export(s.ctx, id.NewSubjectID())
	s.Require().NoError(err)
	s.Less(time.Since(start), 300*time.Millisecond)
	s.Empty(bundle.ConsentHistory)
}

func (s *AggregatorSuite) TestExportUnknownSubjectYieldsEmptySections() {
	bundle, err := s.aggregator().Export(s.ctx, id.NewSubjectID())
	s.Require().NoError(err)

	s.Empty(bundle.UserProfile.Name)
	s.Empty(bundle.ConsentHistory)
	s.Empty(bundle.DataRequests)
}

func (s *AggregatorSuite) TestExportRequiresSubject() {
	_, err := s.aggregator().Export(s.ctx, id.SubjectID{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *AggregatorSuite) TestExportFailsWhenAuditUnavailable() {
	recorder := audit.NewRecorder(&unavailableAuditStore{}, s.logger)
	aggregator := export.NewAggregator(
		s.profiles, s.consents, s.requests, recorder,
		recorder, tx.NoopRunner{}, s.policy, s.logger,
	)

	_, err := aggregator.Export(s.ctx, id.NewSubjectID())
	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
}

func (s *AggregatorSuite) TestBundleSectionKeysAreStable() {
	bundle, err := s.aggregator().Export(s.ctx, id.NewSubjectID())
	s.Require().NoError(err)

	raw, err := json.Marshal(bundle)
	s.Require().NoError(err)

	var sections map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(raw, &sections))

	for _, key := range []string{
		"export_info",
		"user_profile",
		"consent_history",
		"data_requests",
		"audit_trail",
		"analytics_data",
		"authentication_logs",
		"notifications",
	} {
		s.Contains(sections, key)
	}

	// Empty sections serialize as arrays, never null.
	s.Equal("[]", string(sections["consent_history"]))
	s.Equal("[]", string(sections["notifications"]))
}

type consentHistoryStub struct {
	records []consent.Record
	err     error
	delay   time.Duration
}

func (s *consentHistoryStub) History(ctx context.Context, _ id.SubjectID) ([]consent.Record, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.records, s.err
}

type requestHistoryStub struct {
	requests []request.Request
	err      error
}

func (s *requestHistoryStub) ListBySubject(context.Context, id.SubjectID) ([]request.Request, error) {
	return s.requests, s.err
}

type unavailableAuditStore struct{}

func (unavailableAuditStore) Append(context.Context, audit.Event) error { return sentinel.ErrUnavailable }

func (unavailableAuditStore) Query(context.Context, audit.Filter) ([]audit.Event, error) {
	return nil, sentinel.ErrUnavailable
}

func (unavailableAuditStore) PurgeSubject(context.Context, id.SubjectID) error {
	return sentinel.ErrUnavailable
}
