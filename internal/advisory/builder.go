// Package advisory converts internal fraud intent alerts into the
// entity-facing recommendations the hub actually sends out.
//
// Alerts are internal. Advisories are external: this package is the only
// place threat intelligence crosses that boundary into entity-readable
// action recommendations.
package advisory

import (
	"fmt"
	"time"

	"github.com/synapsefi/bridge-hub/pkg/models"
)

var confidenceToSeverity = map[string]string{
	"HIGH":   "CRITICAL",
	"MEDIUM": "HIGH",
	"LOW":    "MEDIUM",
}

// Build converts an intent alert into an advisory, remapping confidence to
// entity-facing severity and carrying the decay fields through for
// transparency.
func Build(alert *models.IntentAlert, now time.Time) models.Advisory {
	severity := severityFor(alert.ConfidenceLabel)
	actions := generateActions(severity, alert.PatternStatus)
	message := buildMessage(alert, severity, now)
	decayExplanation := buildDecayExplanation(alert)

	return models.Advisory{
		AdvisoryID:         generateID(alert, now),
		Fingerprint:        alert.Fingerprint,
		Severity:           severity,
		Message:            message,
		RecommendedActions: actions,
		EntityCount:        alert.EntityCount,
		Confidence:         alert.ConfidenceLabel,
		FraudScore:         alert.FraudScore,
		Timestamp:          now,

		BaseConfidence:           alert.BaseConfidence,
		DecayScore:               alert.DecayScore,
		EffectiveConfidence:      alert.EffectiveConfidence,
		LastSeen:                 alert.LastSeen,
		PatternStatus:            alert.PatternStatus,
		TimeSinceLastSeenSeconds: alert.TimeSinceLastSeenSeconds,
		DecayExplanation:         decayExplanation,
	}
}

// BuildAllClear builds an advisory signaling that a pattern has stopped
// showing cross-entity correlation. Not called by the hub orchestrator —
// the hub has no "pattern resolved" trigger today — but kept as a public
// entry point for a future scheduled sweep or manual operator action.
func BuildAllClear(fingerprint string, now time.Time) models.Advisory {
	shortFP := fingerprint
	if len(shortFP) > 12 {
		shortFP = shortFP[:12]
	}
	return models.Advisory{
		AdvisoryID:  fmt.Sprintf("ADV-CLEAR-%s", shortID(fingerprint, 8)),
		Fingerprint: fingerprint,
		Severity:    "INFO",
		Message: fmt.Sprintf(
			"SYNAPSE-FI Pattern Update\n\n"+
				"The previously flagged pattern (ID: %s...) has not shown coordinated "+
				"activity across entities in recent monitoring. Standard fraud detection "+
				"protocols can resume.\n\n"+
				"This does not indicate the pattern is safe - only that multi-entity "+
				"coordination has ceased. Continue monitoring individual transactions.",
			shortFP,
		),
		RecommendedActions: []string{
			"INFORMATIONAL: Pattern no longer shows cross-entity correlation",
			"RECOMMENDED: Continue standard fraud monitoring",
			"OPTIONAL: Review outcome of previous advisory actions",
		},
		EntityCount: 0,
		Confidence:  "INFO",
		FraudScore:  0,
		Timestamp:   now,
	}
}

func severityFor(confidence string) string {
	if s, ok := confidenceToSeverity[confidence]; ok {
		return s
	}
	return "MEDIUM"
}

func generateActions(severity string, patternStatus string) []string {
	statusPrefix := ""
	switch patternStatus {
	case string(models.StatusCooling):
		statusPrefix = "[COOLING PATTERN] "
	case string(models.StatusDormant):
		statusPrefix = "[DORMANT PATTERN] "
	}

	var actions []string
	switch severity {
	case "CRITICAL":
		actions = []string{
			statusPrefix + "IMMEDIATE: Flag all matching transactions for manual review",
			"IMMEDIATE: Implement temporary transaction limits on affected accounts",
			"URGENT: Notify fraud investigation team for coordinated response",
			"URGENT: Check for additional correlated patterns in recent history",
			"RECOMMENDED: Share findings with peer institutions via secure channel",
			"RECOMMENDED: Review and update fraud detection rules based on pattern",
		}
	case "HIGH":
		actions = []string{
			statusPrefix + "URGENT: Flag matching transactions for priority review",
			"URGENT: Monitor affected accounts for additional suspicious activity",
			"RECOMMENDED: Notify fraud team for investigation",
			"RECOMMENDED: Check transaction history for similar patterns",
			"OPTIONAL: Consider enhanced authentication for affected accounts",
		}
	case "MEDIUM":
		actions = []string{
			statusPrefix + "RECOMMENDED: Add matching transactions to review queue",
			"RECOMMENDED: Monitor accounts for pattern recurrence",
			"OPTIONAL: Alert fraud analysts for manual inspection",
			"OPTIONAL: Document pattern for future rule refinement",
		}
	default:
		actions = []string{"INFORMATIONAL: Pattern noted, no immediate action required"}
	}

	switch patternStatus {
	case string(models.StatusDormant):
		actions = append(actions, "NOTE: This is a dormant pattern - verify if still actively occurring")
	case string(models.StatusCooling):
		actions = append(actions, "NOTE: Pattern cooling down - last observed several minutes ago")
	}

	return actions
}

func buildMessage(alert *models.IntentAlert, severity string, now time.Time) string {
	fpShort := shortID(alert.Fingerprint, 12) + "..."
	minutesSince := alert.TimeSinceLastSeenSeconds / 60.0

	return fmt.Sprintf(
		"SYNAPSE-FI Fraud Advisory\n\n"+
			"Severity: %s\n"+
			"Fraud Score: %d/100\n"+
			"Confidence: %s\n"+
			"Pattern Status: %s\n"+
			"Effective Confidence: %.0f%%\n"+
			"Last Seen: %.1f minutes ago\n\n"+
			"A coordinated fraud pattern has been detected across %d "+
			"financial institutions within a %.0fs window. "+
			"This behavioral signature (Pattern ID: %s) suggests an organized "+
			"fraud operation.\n\n"+
			"PATTERN CHARACTERISTICS:\n"+
			"- Multi-entity coordination detected\n"+
			"- Rapid succession execution\n"+
			"- Behavioral anomaly correlation confirmed\n"+
			"- Pattern lifecycle: %s (decay factor: %.2f)\n\n"+
			"DECAY ANALYSIS:\n"+
			"%s\n\n"+
			"PRIVACY NOTE: This advisory is based on behavioral fingerprints only. "+
			"No customer PII or transaction data has been shared between institutions.\n\n"+
			"Timestamp: %sZ",
		severity, alert.FraudScore, alert.ConfidenceLabel, alert.PatternStatus,
		alert.EffectiveConfidence*100, minutesSince,
		alert.EntityCount, alert.TimeSpanSeconds, fpShort,
		alert.PatternStatus, alert.DecayScore,
		buildDecayExplanation(alert),
		now.Format("2006-01-02T15:04:05"),
	)
}

func buildDecayExplanation(alert *models.IntentAlert) string {
	minutesSince := alert.TimeSinceLastSeenSeconds / 60.0

	switch alert.PatternStatus {
	case string(models.StatusActive):
		return fmt.Sprintf(
			"Pattern is ACTIVE (last seen %.1f min ago). Base confidence %.0f%% remains "+
				"high with minimal decay (decay factor %.2f). This is a fresh, actively "+
				"occurring pattern requiring immediate attention.",
			minutesSince, alert.BaseConfidence*100, alert.DecayScore,
		)
	case string(models.StatusCooling):
		return fmt.Sprintf(
			"Pattern is COOLING (last seen %.1f min ago). Base confidence %.0f%% has "+
				"been reduced to %.0f%% due to time decay (factor %.2f). Pattern may be "+
				"slowing down but still warrants monitoring.",
			minutesSince, alert.BaseConfidence*100, alert.EffectiveConfidence*100, alert.DecayScore,
		)
	default: // DORMANT
		return fmt.Sprintf(
			"Pattern is DORMANT (last seen %.1f min ago). Base confidence %.0f%% has "+
				"significantly decayed to %.0f%% (factor %.2f). This is a stale pattern - "+
				"verify if still actively occurring before taking action.",
			minutesSince, alert.BaseConfidence*100, alert.EffectiveConfidence*100, alert.DecayScore,
		)
	}
}

func generateID(alert *models.IntentAlert, now time.Time) string {
	return fmt.Sprintf("ADV-%s-%s", now.Format("20060102-150405"), shortID(alert.Fingerprint, 8))
}

func shortID(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
