package export

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tutela/internal/audit"
	"tutela/internal/platform/config"
	"tutela/internal/platform/metrics"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

// Aggregator assembles the complete data export for a subject by fanning
// out to every data source in parallel. Sources are best-effort: a failed
// or slow source degrades its section to empty instead of failing the
// export, because a subject exercising their access right is owed whatever
// can be delivered now.
type Aggregator struct {
	profiles  ProfileStore
	consents  ConsentHistory
	requests  RequestHistory
	trail     AuditTrail
	authLogs  AuthLogStore
	notifs    NotificationStore
	analytics AnalyticsStore
	recorder  *audit.Recorder
	runner    tx.Runner
	policy    config.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures the Aggregator's optional collaborators. An unset
// collaborator yields a permanently empty section.
type Option func(*Aggregator)

func WithAuthLogs(s AuthLogStore) Option { return func(a *Aggregator) { a.authLogs = s } }

func WithNotifications(s NotificationStore) Option { return func(a *Aggregator) { a.notifs = s } }

func WithAnalytics(s AnalyticsStore) Option { return func(a *Aggregator) { a.analytics = s } }

func WithMetrics(m *metrics.Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

func NewAggregator(
	profiles ProfileStore,
	consents ConsentHistory,
	requests RequestHistory,
	trail AuditTrail,
	recorder *audit.Recorder,
	runner tx.Runner,
	policy config.Policy,
	logger *slog.Logger,
	opts ...Option,
) *Aggregator {
	a := &Aggregator{
		profiles: profiles,
		consents: consents,
		requests: requests,
		trail:    trail,
		recorder: recorder,
		runner:   runner,
		policy:   policy,
		logger:   logger,
		tracer:   otel.Tracer("tutela/export"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Export builds the subject's data bundle. The export act itself is audited
// and the profile is stamped with the export time; a failure of the audit
// write fails the call, per the engine's write-path policy.
func (a *Aggregator) Export(ctx context.Context, subjectID id.SubjectID) (Bundle, error) {
	if subjectID.IsNil() {
		return Bundle{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}

	ctx, span := a.tracer.Start(ctx, "export.bundle")
	defer span.End()

	start := time.Now()
	now := requestcontext.Now(ctx)
	bundle := Bundle{
		ExportInfo: ExportInfo{
			GeneratedAt: now,
			SubjectID:   subjectID.String(),
			ExportType:  "complete",
		},
		ConsentHistory:     []ConsentEntry{},
		DataRequests:       []RequestEntry{},
		AuditTrail:         []AuditEntry{},
		AnalyticsData:      []AnalyticsEvent{},
		AuthenticationLogs: []AuthLogEntry{},
		Notifications:      []Notification{},
	}

	g, gctx := errgroup.WithContext(ctx)

	a.collect(gctx, g, "user_profile", func(ctx context.Context) error {
		p, err := a.profiles.Get(ctx, subjectID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		bundle.UserProfile = profileSection(p)
		return nil
	})
	a.collect(gctx, g, "consent_history", func(ctx context.Context) error {
		records, err := a.consents.History(ctx, subjectID)
		if err != nil {
			return err
		}
		bundle.ConsentHistory = consentEntries(records)
		return nil
	})
	a.collect(gctx, g, "data_requests", func(ctx context.Context) error {
		requests, err := a.requests.ListBySubject(ctx, subjectID)
		if err != nil {
			return err
		}
		bundle.DataRequests = requestEntries(requests)
		return nil
	})
	a.collect(gctx, g, "audit_trail", func(ctx context.Context) error {
		events, err := a.trail.Query(ctx, audit.Filter{
			SubjectID: subjectID,
			Limit:     a.policy.ExportAuditLimit,
		})
		if err != nil {
			return err
		}
		bundle.AuditTrail = auditEntries(events)
		return nil
	})
	if a.authLogs != nil {
		a.collect(gctx, g, "authentication_logs", func(ctx context.Context) error {
			logs, err := a.authLogs.ListBySubject(ctx, subjectID)
			if err != nil {
				return err
			}
			if logs != nil {
				bundle.AuthenticationLogs = logs
			}
			return nil
		})
	}
	if a.notifs != nil {
		a.collect(gctx, g, "notifications", func(ctx context.Context) error {
			notifications, err := a.notifs.ListBySubject(ctx, subjectID)
			if err != nil {
				return err
			}
			if notifications != nil {
				bundle.Notifications = notifications
			}
			return nil
		})
	}
	if a.analytics != nil {
		a.collect(gctx, g, "analytics_data", func(ctx context.Context) error {
			events, err := a.analytics.ListRecent(ctx, subjectID)
			if err != nil {
				return err
			}
			if events != nil {
				bundle.AnalyticsData = events
			}
			return nil
		})
	}

	// Sources never propagate errors; they degrade to empty sections.
	_ = g.Wait()

	err := a.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := a.recorder.Append(ctx, audit.Event{
			SubjectID:    subjectID,
			Action:       audit.ActionDataExport,
			ResourceType: audit.ResourceExport,
			ResourceID:   subjectID.String(),
			RecordedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := a.profiles.SetLastExport(ctx, subjectID, now); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "stamp last export")
		}
		return nil
	})
	if err != nil {
		return Bundle{}, err
	}

	if a.metrics != nil {
		a.metrics.ExportsGenerated.Inc()
		a.metrics.ExportDuration.Observe(time.Since(start).Seconds())
	}
	a.logger.InfoContext(ctx, "data export generated",
		"subject_id", subjectID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return bundle, nil
}

// collect runs one source fetch in the group under its own timeout and
// span. The goroutine owns exactly one bundle section, so sections are
// written without shared-state races; failures are logged and counted, and
// the section stays empty.
func (a *Aggregator) collect(ctx context.Context, g *errgroup.Group, source string, fn func(ctx context.Context) error) {
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, a.policy.ExportSourceTimeout)
		defer cancel()

		ctx, span := a.tracer.Start(ctx, "export.source."+source)
		defer span.End()

		if err := fn(ctx); err != nil {
			if a.metrics != nil {
				a.metrics.ExportSourceErrors.WithLabelValues(source).Inc()
			}
			a.logger.WarnContext(ctx, "export source failed; section left empty",
				"source", source,
				"error", err,
			)
		}
		return nil
	})
}
