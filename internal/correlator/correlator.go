// Package correlator implements the Temporal Correlator: it detects
// coordinated behavior by looking for the same pattern fingerprint
// reported by multiple entities within a short time window.
//
// A pattern appearing once is noise. The same pattern appearing across
// multiple entities in a short window is intelligence.
package correlator

import (
	"time"

	"github.com/synapsefi/bridge-hub/internal/brg"
	"github.com/synapsefi/bridge-hub/internal/decay"
	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

var confidenceBase = map[string]float64{
	"LOW":    0.5,
	"MEDIUM": 0.75,
	"HIGH":   0.9,
}

// Detect looks for cross-entity correlation of fingerprint in the graph.
// Returns nil if there are no recent observations or the entity threshold
// isn't met — a single observer is noise, not a signal.
func Detect(cfg *hubconfig.Config, g *brg.Graph, fingerprint string, now time.Time) *models.CorrelationResult {
	window := time.Duration(cfg.TimeWindowSeconds) * time.Second
	observations := g.RecentObservations(fingerprint, window, now)
	if len(observations) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(observations))
	for _, o := range observations {
		seen[o.EntityID] = struct{}{}
	}
	entityCount := len(seen)

	if entityCount < cfg.EntityThreshold {
		return nil
	}

	var timeSpan float64
	if len(observations) > 1 {
		timeSpan = observations[len(observations)-1].Timestamp.Sub(observations[0].Timestamp).Seconds()
	}

	confidenceLabel := confidenceLevel(entityCount, timeSpan)
	baseConfidence := confidenceBase[confidenceLabel]

	lastSeen := observations[len(observations)-1].Timestamp
	decayResult := decay.Apply(cfg, baseConfidence, lastSeen, now)

	return &models.CorrelationResult{
		Fingerprint:         fingerprint,
		EntityCount:         entityCount,
		TimeSpanSeconds:     timeSpan,
		ConfidenceLabel:     confidenceLabel,
		Observations:        observations,
		BaseConfidence:      decayResult.BaseConfidence,
		DecayScore:          decayResult.DecayScore,
		EffectiveConfidence: decayResult.EffectiveConfidence,
		LastSeen:            lastSeen,
		PatternStatus:       string(decayResult.Status),
	}
}

// confidenceLevel maps entity count and time span to a confidence label.
// More entities within a shorter span means higher confidence:
//   - HIGH:   3+ entities within 3 minutes
//   - MEDIUM: 2+ entities within 5 minutes
//   - LOW:    otherwise
func confidenceLevel(entityCount int, timeSpanSeconds float64) string {
	switch {
	case entityCount >= 3 && timeSpanSeconds < 180:
		return "HIGH"
	case entityCount >= 2 && timeSpanSeconds < 300:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
