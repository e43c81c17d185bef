package httptransport_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"tutela/internal/audit"
	"tutela/internal/consent"
	consenthandler "tutela/internal/consent/handler"
	"tutela/internal/deletion"
	deletionhandler "tutela/internal/deletion/handler"
	"tutela/internal/export"
	exporthandler "tutela/internal/export/handler"
	"tutela/internal/platform/config"
	"tutela/internal/profile"
	"tutela/internal/request"
	requesthandler "tutela/internal/request/handler"
	"tutela/internal/stats"
	statshandler "tutela/internal/stats/handler"
	"tutela/internal/terms"
	termshandler "tutela/internal/terms/handler"
	httptransport "tutela/internal/transport/http"
	id "tutela/pkg/domain"
	authmw "tutela/pkg/platform/middleware/auth"
	"tutela/pkg/platform/subjectlock"
	"tutela/pkg/platform/tx"
	"tutela/pkg/testutil"
)

const (
	signingKey = "e2e-signing-key"
	adminToken = "e2e-admin-token"
)

// LifecycleSuite drives the engine through the public HTTP surface with the
// full in-memory stack wired the way main wires it.
type LifecycleSuite struct {
	suite.Suite

	router     http.Handler
	auditStore *audit.InMemoryStore
	subjectID  id.SubjectID
	token      string
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := &subjectlock.Table{}
	policy := config.DefaultPolicy()

	s.auditStore = audit.NewInMemoryStore()
	recorder := audit.NewRecorder(s.auditStore, logger)
	runner := tx.NoopRunner{}

	profiles := profile.NewInMemoryStore()
	registry := terms.NewRegistry(terms.NewInMemoryStore(), recorder, runner, logger)
	ledger := consent.NewLedger(consent.NewInMemoryStore(), registry, recorder, runner, locks, logger, nil)
	scheduler := deletion.NewScheduler(deletion.NewInMemoryStore(), recorder, runner, locks, policy, logger, nil,
		profiles, ledger, nil)
	manager := request.NewManager(request.NewInMemoryStore(), recorder, runner, locks, scheduler, policy, logger, nil)
	scheduler.SetRequestPurger(manager)

	aggregator := export.NewAggregator(profiles, ledger, manager, recorder, recorder, runner, policy, logger)
	statsAgg := stats.NewAggregator(profiles, ledger, manager, nil, policy.ScoreWeights, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	s.Require().NoError(err)

	s.router = httptransport.NewRouter(httptransport.Handlers{
		Consent:  consenthandler.New(ledger, logger),
		Requests: requesthandler.New(manager, logger),
		Deletion: deletionhandler.New(manager, scheduler, logger),
		Export:   exporthandler.New(aggregator, logger),
		Terms:    termshandler.New(registry, logger),
		Stats:    statshandler.New(statsAgg, logger),
	}, httptransport.Config{
		JWTValidator:   authmw.NewValidator(signingKey),
		AdminTokenHash: string(hash),
		Logger:         logger,
	})

	s.subjectID = id.NewSubjectID()
	s.token = signToken(s.T(), s.subjectID)
}

func signToken(t *testing.T, subjectID id.SubjectID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subjectID.String(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func (s *LifecycleSuite) asSubject(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req
}

func (s *LifecycleSuite) asAdmin(req *http.Request) *http.Request {
	req.Header.Set("X-Admin-Token", adminToken)
	req.Header.Set("X-Admin-Name", "dpo")
	return req
}

func (s *LifecycleSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *LifecycleSuite) publishConsentForm() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/terms", termshandler.PublishRequest{
		DocumentType: "consent_form",
		Version:      "2026-01",
		Content:      "consent form text",
	})
	rr := s.do(s.asAdmin(req))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *LifecycleSuite) TestSubjectLifecycle() {
	s.publishConsentForm()

	// Record consent against the active form version.
	rr := s.do(s.asSubject(testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{
		"consentType": "marketing",
		"given":       true,
	})))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(s.T(), rr, "termsVersion", "2026-01")

	// File an access request; the statutory deadline is set on filing.
	rr = s.do(s.asSubject(testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", map[string]any{
		"requestType": "access",
		"description": "copy of my data",
	})))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	filed := testutil.UnmarshalResponse[requesthandler.RequestResponse](s.T(), rr)
	s.Equal("pending", filed.Status)
	s.Equal(15*24*time.Hour, filed.Deadline.Sub(filed.CreatedAt))

	// Operator walks the request to completion.
	rr = s.do(s.asAdmin(testutil.NewJSONRequest(s.T(),
		http.MethodPost, "/admin/requests/"+filed.ID+"/transition", map[string]any{
			"status": "processing",
		})))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(s.asAdmin(testutil.NewJSONRequest(s.T(),
		http.MethodPost, "/admin/requests/"+filed.ID+"/transition", map[string]any{
			"status": "completed",
			"notes":  "export delivered",
		})))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	done := testutil.UnmarshalResponse[requesthandler.RequestResponse](s.T(), rr)
	s.Equal("completed", done.Status)
	s.NotNil(done.CompletedAt)

	// Reopening a completed request is refused.
	rr = s.do(s.asAdmin(testutil.NewJSONRequest(s.T(),
		http.MethodPost, "/admin/requests/"+filed.ID+"/transition", map[string]any{
			"status": "processing",
		})))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_transition")

	// The export carries the consent and request history.
	rr = s.do(s.asSubject(testutil.NewRequest(s.T(), http.MethodGet, "/me/export")))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	bundle := testutil.UnmarshalResponse[export.Bundle](s.T(), rr)
	s.Len(bundle.ConsentHistory, 1)
	s.Len(bundle.DataRequests, 1)
	s.NotEmpty(bundle.AuditTrail)

	// Account deletion schedules a purge after the grace period.
	rr = s.do(s.asSubject(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/me", map[string]any{
		"reason": "leaving the platform",
	})))
	s.Require().Equal(http.StatusAccepted, rr.Code, rr.Body.String())
	var scheduled deletionhandler.DeleteResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &scheduled))
	s.False(scheduled.PurgeAt.IsZero())

	// A second deletion request while one is pending is refused.
	rr = s.do(s.asSubject(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/me", nil)))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")

	// The subject changes their mind within the grace period.
	rr = s.do(s.asSubject(testutil.NewRequest(s.T(), http.MethodPost, "/me/deletion/cancel")))
	s.Require().Equal(http.StatusNoContent, rr.Code)

	// Admin stats reflect the activity.
	rr = s.do(s.asAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/stats")))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var snapshot map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &snapshot))
	s.EqualValues(2, snapshot["totalRequests"])
	s.Contains(snapshot, "complianceScore")
}

func (s *LifecycleSuite) TestConsentRequiresActiveForm() {
	rr := s.do(s.asSubject(testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{
		"consentType": "analytics",
		"given":       true,
	})))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
}

func TestRouterAuthBoundaries(t *testing.T) {
	s := new(LifecycleSuite)
	s.SetT(t)
	s.SetupTest()

	testutil.Given(t, "a router with auth middleware", func(t *testing.T) {
		testutil.When(t, "calling a subject endpoint without a token", func(t *testing.T) {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/consent"))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})

		testutil.When(t, "calling a subject endpoint with a garbage token", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/consent")
			req.Header.Set("Authorization", "Bearer not-a-jwt")
			rr := testutil.DoRequest(s.router, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})

		testutil.When(t, "calling an admin endpoint with the wrong token", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/admin/stats")
			req.Header.Set("X-Admin-Token", "wrong")
			rr := testutil.DoRequest(s.router, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})

		testutil.Then(t, "operational endpoints stay open", func(t *testing.T) {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	})
}
