package stats

import id "tutela/pkg/domain"

// Snapshot is a point-in-time view of the engine's compliance posture.
type Snapshot struct {
	TotalSubjects     int
	ConsentedSubjects int
	ConsentRate       float64
	TotalRequests     int
	PendingRequests   int
	OverdueRequests   int
	RequestsByType    map[id.RequestType]int
	ComplianceScore   float64
}

// Signals are the operational rates mixed into the compliance score. All
// values are fractions in [0, 1]; ThreatRatio counts flagged subjects per
// total, so lower is better.
type Signals struct {
	AuthSuccessRate     float64
	ThreatRatio         float64
	AlertResolutionRate float64
}
