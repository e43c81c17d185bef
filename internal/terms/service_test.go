package terms_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tutela/internal/audit"
	"tutela/internal/terms"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

type RegistrySuite struct {
	suite.Suite

	auditStore *audit.InMemoryStore
	registry   *terms.Registry
	ctx        context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = audit.NewInMemoryStore()
	recorder := audit.NewRecorder(s.auditStore, logger)
	s.registry = terms.NewRegistry(terms.NewInMemoryStore(), recorder, tx.NoopRunner{}, logger)
	s.ctx = requestcontext.WithActor(context.Background(), "dpo")
}

func (s *RegistrySuite) TestPublishActivates() {
	v, err := s.registry.Publish(s.ctx, id.DocumentPrivacyPolicy, "2026-01", "policy text", time.Now())
	s.Require().NoError(err)
	s.True(v.Active)
	s.False(v.ID.IsNil())

	active, err := s.registry.Active(s.ctx, id.DocumentPrivacyPolicy)
	s.Require().NoError(err)
	s.Equal("2026-01", active.Version)
}

func (s *RegistrySuite) TestPublishSupersedesPriorActive() {
	_, err := s.registry.Publish(s.ctx, id.DocumentTermsOfUse, "v1", "old", time.Now())
	s.Require().NoError(err)
	_, err = s.registry.Publish(s.ctx, id.DocumentTermsOfUse, "v2", "new", time.Now())
	s.Require().NoError(err)

	active, err := s.registry.Active(s.ctx, id.DocumentTermsOfUse)
	s.Require().NoError(err)
	s.Equal("v2", active.Version)

	history, err := s.registry.History(s.ctx, id.DocumentTermsOfUse)
	s.Require().NoError(err)
	s.Require().Len(history, 2)

	actives := 0
	for _, v := range history {
		if v.Active {
			actives++
		} else {
			s.NotNil(v.ExpiresAt, "superseded version should carry its expiry")
		}
	}
	s.Equal(1, actives)
}

func (s *RegistrySuite) TestPublishIsolatedPerDocumentType() {
	_, err := s.registry.Publish(s.ctx, id.DocumentPrivacyPolicy, "p1", "policy", time.Now())
	s.Require().NoError(err)
	_, err = s.registry.Publish(s.ctx, id.DocumentConsentForm, "c1", "form", time.Now())
	s.Require().NoError(err)

	policy, err := s.registry.Active(s.ctx, id.DocumentPrivacyPolicy)
	s.Require().NoError(err)
	s.Equal("p1", policy.Version)

	form, err := s.registry.Active(s.ctx, id.DocumentConsentForm)
	s.Require().NoError(err)
	s.Equal("c1", form.Version)
}

func (s *RegistrySuite) TestPublishValidation() {
	_, err := s.registry.Publish(s.ctx, id.DocumentPrivacyPolicy, "", "content", time.Now())
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.registry.Publish(s.ctx, id.DocumentPrivacyPolicy, "v1", "", time.Now())
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *RegistrySuite) TestActiveWithoutPublication() {
	_, err := s.registry.Active(s.ctx, id.DocumentConsentForm)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrySuite) TestPublishWritesAuditEvent() {
	_, err := s.registry.Publish(s.ctx, id.DocumentConsentForm, "v1", "form", time.Now())
	s.Require().NoError(err)
	_, err = s.registry.Publish(s.ctx, id.DocumentConsentForm, "v2", "form", time.Now())
	s.Require().NoError(err)

	events, err := s.auditStore.Query(s.ctx, audit.Filter{Action: audit.ActionTermsPublished})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("v1", events[0].OldValue)
	s.Equal("v2", events[0].NewValue)
	s.Equal("dpo", events[0].PerformedBy)
}
