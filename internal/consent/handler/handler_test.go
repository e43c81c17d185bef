package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tutela/internal/consent"
	"tutela/internal/consent/handler/mocks"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/consent-mocks.go -package=mocks Service

type ConsentHandlerSuite struct {
	suite.Suite

	service   *mocks.MockService
	handler   *Handler
	subjectID id.SubjectID
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.handler = New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.subjectID = id.NewSubjectID()
}

func (s *ConsentHandlerSuite) TestHandleRecord() {
	recordedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s.service.EXPECT().
		Record(gomock.Any(), s.subjectID, id.ConsentTypeMarketing, true).
		Return(consent.Record{
			ID:           id.NewConsentID(),
			SubjectID:    s.subjectID,
			Type:         id.ConsentTypeMarketing,
			TermsVersion: "2026-01",
			Given:        true,
			RecordedAt:   recordedAt,
		}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", RecordRequest{
		ConsentType: "marketing",
		Given:       boolPtr(true),
	})
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleRecord(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	testutil.AssertJSONContains(s.T(), w, "consentType", "marketing")
	testutil.AssertJSONContains(s.T(), w, "termsVersion", "2026-01")
	testutil.AssertJSONContains(s.T(), w, "given", true)
}

func (s *ConsentHandlerSuite) TestHandleRecordRejectsUnknownType() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", RecordRequest{
		ConsentType: "surveillance",
		Given:       boolPtr(true),
	})
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleRecord(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ConsentHandlerSuite) TestHandleRecordRequiresGiven() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", RecordRequest{
		ConsentType: "marketing",
	})
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleRecord(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ConsentHandlerSuite) TestHandleRecordWithoutSubject() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", RecordRequest{
		ConsentType: "marketing",
		Given:       boolPtr(true),
	})

	w := httptest.NewRecorder()
	s.handler.HandleRecord(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *ConsentHandlerSuite) TestHandleRecordServiceFailure() {
	s.service.EXPECT().
		Record(gomock.Any(), s.subjectID, id.ConsentTypeAnalytics, false).
		Return(consent.Record{}, dErrors.New(dErrors.CodeInvalidState, "no active consent form version"))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", RecordRequest{
		ConsentType: "analytics",
		Given:       boolPtr(false),
	})
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleRecord(w, req)

	testutil.AssertStatusAndError(s.T(), w, http.StatusConflict, "invalid_state")
}

func (s *ConsentHandlerSuite) TestHandleHistory() {
	s.service.EXPECT().
		History(gomock.Any(), s.subjectID).
		Return([]consent.Record{
			{ID: id.NewConsentID(), SubjectID: s.subjectID, Type: id.ConsentTypeMarketing, Given: true},
		}, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/consent")
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleHistory(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	testutil.AssertJSONHasKey(s.T(), w, "records")
}

func (s *ConsentHandlerSuite) TestHandleReconsent() {
	s.service.EXPECT().
		NeedsReconsent(gomock.Any(), s.subjectID).
		Return(true, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/consent/reconsent")
	req = testutil.WithSubjectID(req, s.subjectID)

	w := httptest.NewRecorder()
	s.handler.HandleReconsent(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	testutil.AssertJSONContains(s.T(), w, "needsReconsent", true)
}

func boolPtr(b bool) *bool { return &b }
