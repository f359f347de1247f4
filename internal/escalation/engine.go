// Package escalation implements the Escalation Engine: it decides whether
// a detected correlation rises to the level of a fraud intent alert, and
// if so at what severity.
//
// Not every correlation is fraud. Escalation thresholds exist to keep
// isolated coincidences from triggering entity-facing alerts.
package escalation

import (
	"fmt"
	"time"

	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

// Evaluate decides whether a correlation warrants escalation to a fraud
// intent alert. Returns nil if the entity count is below every severity
// threshold.
func Evaluate(cfg *hubconfig.Config, correlation *models.CorrelationResult, now time.Time) *models.IntentAlert {
	severity := severityFor(cfg, correlation.EntityCount)
	if severity == "" {
		return nil
	}

	fraudScore := fraudScore(correlation)

	return &models.IntentAlert{
		AlertID:         alertID(correlation, now),
		IntentType:      "COORDINATED_FRAUD",
		Fingerprint:     correlation.Fingerprint,
		Severity:        severity,
		ConfidenceLabel: correlation.ConfidenceLabel,
		EntityCount:     correlation.EntityCount,
		TimeSpanSeconds: correlation.TimeSpanSeconds,
		Description:     buildDescription(correlation, severity),
		Rationale:       buildRationale(correlation, severity, fraudScore),
		Recommendation:  recommendationFor(severity),
		FraudScore:      fraudScore,
		Timestamp:       now,

		BaseConfidence:           correlation.BaseConfidence,
		DecayScore:               correlation.DecayScore,
		EffectiveConfidence:      correlation.EffectiveConfidence,
		LastSeen:                 correlation.LastSeen,
		PatternStatus:            correlation.PatternStatus,
		TimeSinceLastSeenSeconds: now.Sub(correlation.LastSeen).Seconds(),
		DecayExplanation:         fmt.Sprintf("Pattern lifecycle: %s, decay=%.2f", correlation.PatternStatus, correlation.DecayScore),
	}
}

func severityFor(cfg *hubconfig.Config, entityCount int) string {
	switch {
	case entityCount >= cfg.CriticalThreshold:
		return "CRITICAL"
	case entityCount >= cfg.HighThreshold:
		return "HIGH"
	case entityCount >= cfg.MediumThreshold:
		return "MEDIUM"
	default:
		return ""
	}
}

// fraudScore blends entity count, decayed confidence, and time span into a
// 0-100 score. It uses effective_confidence, not base_confidence, so a
// stale pattern's score falls even if its original signal was strong.
func fraudScore(c *models.CorrelationResult) int {
	score := c.EntityCount * 20
	if score > 60 {
		score = 60
	}

	score += int(c.EffectiveConfidence * 30)

	if c.TimeSpanSeconds > 600 {
		score -= 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func buildDescription(c *models.CorrelationResult, severity string) string {
	fp := c.Fingerprint
	if len(fp) > 8 {
		fp = fp[:8]
	}
	return fmt.Sprintf(
		"%s fraud intent detected: Pattern %s... observed across %d entities within %.0fs. "+
			"Confidence: %s. Recommend immediate investigation and potential coordinated response.",
		severity, fp, c.EntityCount, c.TimeSpanSeconds, c.ConfidenceLabel,
	)
}

func buildRationale(c *models.CorrelationResult, severity string, fraudScore int) string {
	fp := c.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf(
		"Pattern %s... observed across %d entities within %.0fs. "+
			"Fraud score: %d/100. Severity: %s. Confidence: %s.",
		fp, c.EntityCount, c.TimeSpanSeconds, fraudScore, severity, c.ConfidenceLabel,
	)
}

func alertID(c *models.CorrelationResult, now time.Time) string {
	fp := c.Fingerprint
	if len(fp) > 8 {
		fp = fp[:8]
	}
	return fmt.Sprintf("ALT-%s-%s", now.Format("20060102150405"), fp)
}

func recommendationFor(severity string) string {
	switch severity {
	case "CRITICAL":
		return "IMMEDIATE_ESCALATION"
	case "HIGH":
		return "URGENT_REVIEW"
	case "MEDIUM":
		return "PRIORITY_REVIEW"
	default:
		return "MONITOR"
	}
}
