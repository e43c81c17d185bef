package stats

import (
	"context"
	"log/slog"
	"time"

	"tutela/internal/platform/config"
	"tutela/internal/request"
	id "tutela/pkg/domain"
)

// SubjectSource counts registered subjects.
type SubjectSource interface {
	Count(ctx context.Context) (int, error)
}

// ConsentSource counts subjects whose latest consent decision is a grant.
type ConsentSource interface {
	CountConsentedSubjects(ctx context.Context) (int, error)
}

// RequestSource reads request lifecycle figures.
type RequestSource interface {
	CountByStatus(ctx context.Context) (map[id.RequestStatus]int, error)
	CountByType(ctx context.Context) (map[id.RequestType]int, error)
	ListOverdue(ctx context.Context, now time.Time) ([]request.Request, error)
}

// SignalSource supplies the operational rates behind the compliance score.
// Typically backed by the security monitoring system; nil or failing
// sources zero the score rather than failing the snapshot.
type SignalSource interface {
	Rates(ctx context.Context) (Signals, error)
}

// Aggregator computes admin compliance statistics. Read-only: a snapshot
// never mutates engine state, and a failing collaborator degrades its
// figures to zero values instead of failing the whole snapshot.
type Aggregator struct {
	subjects SubjectSource
	consents ConsentSource
	requests RequestSource
	signals  SignalSource
	weights  config.ScoreWeights
	logger   *slog.Logger
}

func NewAggregator(
	subjects SubjectSource,
	consents ConsentSource,
	requests RequestSource,
	signals SignalSource,
	weights config.ScoreWeights,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		subjects: subjects,
		consents: consents,
		requests: requests,
		signals:  signals,
		weights:  weights,
		logger:   logger,
	}
}

// Snapshot assembles the current compliance figures at now.
func (a *Aggregator) Snapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	snapshot := Snapshot{RequestsByType: make(map[id.RequestType]int)}

	total, err := a.subjects.Count(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "subject count unavailable", "error", err)
	} else {
		snapshot.TotalSubjects = total
	}

	consented, err := a.consents.CountConsentedSubjects(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "consent count unavailable", "error", err)
	} else {
		snapshot.ConsentedSubjects = consented
	}

	// With nobody registered there is nobody whose consent is missing.
	if snapshot.TotalSubjects == 0 {
		snapshot.ConsentRate = 1.0
	} else {
		snapshot.ConsentRate = float64(snapshot.ConsentedSubjects) / float64(snapshot.TotalSubjects)
	}

	byStatus, err := a.requests.CountByStatus(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "request status counts unavailable", "error", err)
	} else {
		for _, n := range byStatus {
			snapshot.TotalRequests += n
		}
		snapshot.PendingRequests = byStatus[id.StatusPending]
	}

	byType, err := a.requests.CountByType(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "request type counts unavailable", "error", err)
	} else {
		for _, t := range id.RequestTypes() {
			snapshot.RequestsByType[t] = byType[t]
		}
	}

	overdue, err := a.requests.ListOverdue(ctx, now)
	if err != nil {
		a.logger.WarnContext(ctx, "overdue listing unavailable", "error", err)
	} else {
		snapshot.OverdueRequests = len(overdue)
	}

	snapshot.ComplianceScore = a.score(ctx)
	return snapshot, nil
}

// score mixes the operational signals with the configured weights. The
// threat ratio counts against the score, so it enters inverted.
func (a *Aggregator) score(ctx context.Context) float64 {
	if a.signals == nil {
		return 0
	}
	signals, err := a.signals.Rates(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "compliance signals unavailable", "error", err)
		return 0
	}

	score := a.weights.AuthSuccess*clamp01(signals.AuthSuccessRate) +
		a.weights.ThreatRatio*(1-clamp01(signals.ThreatRatio)) +
		a.weights.AlertResolution*clamp01(signals.AlertResolutionRate)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
