// Package decay implements pattern decay logic for the BRIDGE Hub.
//
// Decay reduces a pattern's influence on decision-making, never its
// presence in the graph: patterns are downgraded, not deleted. Lookups
// use discrete time windows rather than continuous or exponential decay
// functions by design, so that every score is explainable by naming the
// window it fell into.
package decay

import (
	"fmt"
	"math"
	"time"

	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

// Result is the full decay analysis for one pattern at one instant.
type Result struct {
	BaseConfidence           float64
	DecayScore               float64
	EffectiveConfidence      float64
	Status                   models.PatternStatus
	LastSeen                 time.Time
	CurrentTime              time.Time
	TimeSinceLastSeenSeconds float64
	Reactivated              bool
}

// Score looks up the discrete decay score for the elapsed time since a
// pattern was last observed. Windows are evaluated in the order given by
// cfg and the first one whose MaxSeconds covers the elapsed time wins; an
// empty table falls back to the stale default of 0.2.
func Score(cfg []hubconfig.DecayWindow, elapsedSeconds float64) float64 {
	for _, w := range cfg {
		if elapsedSeconds <= w.MaxSeconds {
			return w.DecayScore
		}
	}
	return 0.2
}

// EffectiveConfidence combines a base correlation confidence with a decay
// score, clamped to [0, 1] and rounded to 4 decimal places.
func EffectiveConfidence(baseConfidence, decayScore float64) float64 {
	ec := baseConfidence * decayScore
	if ec > 1.0 {
		ec = 1.0
	}
	if ec < 0.0 {
		ec = 0.0
	}
	return round4(ec)
}

// Status maps an effective confidence to its lifecycle tag.
func Status(thresholds hubconfig.StatusThresholds, effectiveConfidence float64) models.PatternStatus {
	switch {
	case effectiveConfidence >= thresholds.ActiveMin:
		return models.StatusActive
	case effectiveConfidence >= thresholds.CoolingMin:
		return models.StatusCooling
	default:
		return models.StatusDormant
	}
}

// Apply runs the complete decay pipeline for a pattern: score lookup,
// effective confidence, and status classification.
func Apply(cfg *hubconfig.Config, baseConfidence float64, lastSeen, now time.Time) Result {
	elapsed := now.Sub(lastSeen).Seconds()
	decayScore := Score(cfg.DecayWindows, elapsed)
	effective := EffectiveConfidence(baseConfidence, decayScore)

	return Result{
		BaseConfidence:           round4(baseConfidence),
		DecayScore:               decayScore,
		EffectiveConfidence:      effective,
		Status:                   Status(cfg.StatusThresholds, effective),
		LastSeen:                 lastSeen,
		CurrentTime:              now,
		TimeSinceLastSeenSeconds: round2(elapsed),
	}
}

// Reactivate resets a pattern to full strength upon reappearance:
// last_seen jumps to now, decay_score resets to 1.0, and base_confidence
// is recomputed from the new correlation. This produces the
// spike-decay-spike behavior expected of a reappearing pattern. Not
// called by the hub orchestrator today — Apply on a fresh
// observation already yields the same result — but kept as an explicit
// entry point for callers that need to reactivate without a full
// re-correlation.
func Reactivate(cfg *hubconfig.Config, newBaseConfidence float64, now time.Time) Result {
	effective := EffectiveConfidence(newBaseConfidence, 1.0)
	return Result{
		BaseConfidence:           round4(newBaseConfidence),
		DecayScore:               1.0,
		EffectiveConfidence:      effective,
		Status:                   Status(cfg.StatusThresholds, effective),
		LastSeen:                 now,
		CurrentTime:              now,
		TimeSinceLastSeenSeconds: 0.0,
		Reactivated:              true,
	}
}

// Explain renders a human-readable description of a decay result for a
// given pattern, required for audit and explainability.
func Explain(fingerprint string, r Result) string {
	timeStr := formatDuration(r.TimeSinceLastSeenSeconds)

	switch r.Status {
	case models.StatusActive:
		return fmt.Sprintf(
			"Pattern %s is ACTIVE with full influence. Last observed %s ago. "+
				"Effective confidence: %.2f (from base %.2f).",
			fingerprint, timeStr, r.EffectiveConfidence, r.BaseConfidence)
	case models.StatusCooling:
		reduction := int((1.0 - r.DecayScore) * 100)
		return fmt.Sprintf(
			"Pattern %s previously showed coordinated behavior, but its influence was "+
				"reduced by %d%% due to inactivity over the last %s. "+
				"Effective confidence: %.2f (from base %.2f, decay %.2f).",
			fingerprint, reduction, timeStr, r.EffectiveConfidence, r.BaseConfidence, r.DecayScore)
	default: // DORMANT
		return fmt.Sprintf(
			"Pattern %s is DORMANT. Last observed %s ago. "+
				"Minimal influence remaining: %.2f (from base %.2f). "+
				"Will reactivate immediately if pattern reappears.",
			fingerprint, timeStr, r.EffectiveConfidence, r.BaseConfidence)
	}
}

func formatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d seconds", int(seconds))
	case seconds < 3600:
		return fmt.Sprintf("%d minutes", int(seconds/60))
	default:
		return fmt.Sprintf("%.1f hours", seconds/3600)
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
