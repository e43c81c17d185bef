//go:build integration

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
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
	"tutela/pkg/testutil/containers"
)

type ActiveCacheSuite struct {
	suite.Suite

	redis    *containers.RedisContainer
	store    *countingStore
	registry *terms.Registry
	ctx      context.Context
}

func TestActiveCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ActiveCacheSuite))
}

func (s *ActiveCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *ActiveCacheSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Require().NoError(s.redis.FlushAll(context.Background()))

	s.store = &countingStore{inner: terms.NewInMemoryStore()}
	recorder := audit.NewRecorder(audit.NewInMemoryStore(), logger)
	s.registry = terms.NewRegistry(s.store, recorder, tx.NoopRunner{}, logger,
		terms.WithActiveCache(terms.NewActiveCache(s.redis.Client, logger)))
	s.ctx = requestcontext.WithActor(context.Background(), "dpo")
}

func (s *ActiveCacheSuite) TestActiveLookupsAreServedFromCache() {
	_, err := s.registry.Publish(s.ctx, id.DocumentPrivacyPolicy, "v1", "policy", time.Now())
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		active, err := s.registry.Active(s.ctx, id.DocumentPrivacyPolicy)
		s.Require().NoError(err)
		s.Equal("v1", active.Version)
	}

	// Only the first lookup misses; the rest are served from redis.
	s.Equal(1, s.store.activeCalls)
}

func (s *ActiveCacheSuite) TestPublishInvalidatesCachedVersion() {
	_, err := s.registry.Publish(s.ctx, id.DocumentConsentForm, "v1", "form", time.Now())
	s.Require().NoError(err)

	active, err := s.registry.Active(s.ctx, id.DocumentConsentForm)
	s.Require().NoError(err)
	s.Equal("v1", active.Version)

	_, err = s.registry.Publish(s.ctx, id.DocumentConsentForm, "v2", "form", time.Now())
	s.Require().NoError(err)

	active, err = s.registry.Active(s.ctx, id.DocumentConsentForm)
	s.Require().NoError(err)
	s.Equal("v2", active.Version)
}

type countingStore struct {
	inner       terms.Store
	activeCalls int
}

func (c *countingStore) Supersede(ctx context.Context, v terms.Version) error {
	return c.inner.Supersede(ctx, v)
}

func (c *countingStore) Active(ctx context.Context, docType id.DocumentType) (terms.Version, error) {
	c.activeCalls++
	return c.inner.Active(ctx, docType)
}

func (c *countingStore) History(ctx context.Context, docType id.DocumentType) ([]terms.Version, error) {
	return c.inner.History(ctx, docType)
}
