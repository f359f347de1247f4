// Package metrics tracks Hub operational metrics for monitoring:
// throughput counters, latency percentiles, entity participation, and
// advisory effectiveness, all over a rolling time window.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/synapsefi/bridge-hub/pkg/models"
)

const maxLatencySamples = 10000
const maxFraudScoreSamples = 1000

// Tracker accumulates Hub metrics over a rolling window. All counters are
// timestamped events pruned lazily on read and on every write, mirroring
// a bounded deque without pulling in container/ring.
type Tracker struct {
	mu sync.Mutex

	window time.Duration

	ingestionLatencies   []float64
	correlationLatencies []float64

	fingerprintsIngested []time.Time
	correlationsDetected []time.Time
	alertsEscalated      []time.Time
	advisoriesGenerated  []time.Time

	entityFingerprintCounts map[string]int
	advisorySeverityCounts  map[string]int
	fraudScores             []float64

	patternStatusCounts map[string]int
}

// NewTracker creates a tracker with the given rolling window size.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window:                  window,
		entityFingerprintCounts: make(map[string]int),
		advisorySeverityCounts:  make(map[string]int),
		patternStatusCounts: map[string]int{
			string(models.StatusActive):  0,
			string(models.StatusCooling): 0,
			string(models.StatusDormant): 0,
		},
	}
}

// RecordIngestion records one fingerprint ingestion event.
func (t *Tracker) RecordIngestion(entityID string, latencyMs float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fingerprintsIngested = append(t.fingerprintsIngested, now)
	t.ingestionLatencies = appendBounded(t.ingestionLatencies, latencyMs, maxLatencySamples)
	t.entityFingerprintCounts[entityID]++
	t.pruneLocked(now)
}

// RecordCorrelation records a correlation detection attempt.
func (t *Tracker) RecordCorrelation(latencyMs float64, detected bool, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.correlationLatencies = appendBounded(t.correlationLatencies, latencyMs, maxLatencySamples)
	if detected {
		t.correlationsDetected = append(t.correlationsDetected, now)
	}
	t.pruneLocked(now)
}

// RecordEscalation records a fraud alert escalation event.
func (t *Tracker) RecordEscalation(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alertsEscalated = append(t.alertsEscalated, now)
	t.pruneLocked(now)
}

// RecordAdvisory records an advisory generation event.
func (t *Tracker) RecordAdvisory(severity string, fraudScore float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.advisoriesGenerated = append(t.advisoriesGenerated, now)
	t.advisorySeverityCounts[severity]++
	t.fraudScores = appendBounded(t.fraudScores, fraudScore, maxFraudScoreSamples)
	t.pruneLocked(now)
}

// UpdatePatternStatusCounts replaces the pattern lifecycle counters shown
// in the next summary.
func (t *Tracker) UpdatePatternStatusCounts(active, cooling, dormant int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.patternStatusCounts[string(models.StatusActive)] = active
	t.patternStatusCounts[string(models.StatusCooling)] = cooling
	t.patternStatusCounts[string(models.StatusDormant)] = dormant
}

// Summary returns a snapshot of current metrics, optionally enriched with
// graph node/edge counts from the caller.
func (t *Tracker) Summary(graphNodes, graphEdges int, now time.Time) models.MetricsSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(now)

	entities := make(map[string]int, len(t.entityFingerprintCounts))
	for k, v := range t.entityFingerprintCounts {
		entities[k] = v
	}
	severities := make(map[string]int, len(t.advisorySeverityCounts))
	for k, v := range t.advisorySeverityCounts {
		severities[k] = v
	}

	return models.MetricsSummary{
		FingerprintsIngested: int64(len(t.fingerprintsIngested)),
		CorrelationsDetected: int64(len(t.correlationsDetected)),
		AlertsEscalated:      int64(len(t.alertsEscalated)),
		AdvisoriesGenerated:  int64(len(t.advisoriesGenerated)),

		AvgIngestionLatencyMs:   round2(average(t.ingestionLatencies)),
		AvgCorrelationLatencyMs: round2(average(t.correlationLatencies)),
		P95IngestionLatencyMs:   round2(percentile(t.ingestionLatencies, 95)),
		P95CorrelationLatencyMs: round2(percentile(t.correlationLatencies, 95)),

		GraphSizeNodes:  graphNodes,
		GraphSizeEdges:  graphEdges,
		ActivePatterns:  t.patternStatusCounts[string(models.StatusActive)],
		CoolingPatterns: t.patternStatusCounts[string(models.StatusCooling)],
		DormantPatterns: t.patternStatusCounts[string(models.StatusDormant)],

		ActiveEntities:         len(t.entityFingerprintCounts),
		EntitiesByFingerprints: entities,

		AdvisoriesBySeverity: severities,
		AvgFraudScore:        round2(average(t.fraudScores)),

		MeasurementWindowSeconds: int(t.window.Seconds()),
		Timestamp:                now,
	}
}

// Reset clears all tracked metrics. Useful for tests and operator-invoked
// counter resets.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ingestionLatencies = nil
	t.correlationLatencies = nil
	t.fingerprintsIngested = nil
	t.correlationsDetected = nil
	t.alertsEscalated = nil
	t.advisoriesGenerated = nil
	t.entityFingerprintCounts = make(map[string]int)
	t.advisorySeverityCounts = make(map[string]int)
	t.fraudScores = nil
	t.patternStatusCounts = map[string]int{
		string(models.StatusActive):  0,
		string(models.StatusCooling): 0,
		string(models.StatusDormant): 0,
	}
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	t.fingerprintsIngested = dropBefore(t.fingerprintsIngested, cutoff)
	t.correlationsDetected = dropBefore(t.correlationsDetected, cutoff)
	t.alertsEscalated = dropBefore(t.alertsEscalated, cutoff)
	t.advisoriesGenerated = dropBefore(t.advisoriesGenerated, cutoff)
}

func dropBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}

func appendBounded(vals []float64, v float64, max int) []float64 {
	vals = append(vals, v)
	if len(vals) > max {
		vals = vals[len(vals)-max:]
	}
	return vals
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// percentile returns the pth percentile (0-100) using the same
// floor-index selection as a rolling-window nearest-rank estimator:
// no interpolation, clamped to the last element.
func percentile(vals []float64, p int) float64 {
	if len(vals) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (float64(p) / 100.0))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
