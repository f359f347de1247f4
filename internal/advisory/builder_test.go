package advisory

import (
	"strings"
	"testing"
	"time"

	"github.com/synapsefi/bridge-hub/pkg/models"
)

func baseAlert() *models.IntentAlert {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return &models.IntentAlert{
		AlertID:                  "ALT-20260304050607-abcdefgh",
		Fingerprint:              "abcdefgh12345678",
		Severity:                 "HIGH",
		ConfidenceLabel:          "HIGH",
		EntityCount:              3,
		TimeSpanSeconds:          90,
		FraudScore:               82,
		Timestamp:                now,
		BaseConfidence:           0.9,
		DecayScore:               1.0,
		EffectiveConfidence:      0.9,
		LastSeen:                 now,
		PatternStatus:            string(models.StatusActive),
		TimeSinceLastSeenSeconds: 30,
	}
}

func TestBuild_RemapsConfidenceToSeverity(t *testing.T) {
	tests := []struct {
		confidence   string
		wantSeverity string
	}{
		{"HIGH", "CRITICAL"},
		{"MEDIUM", "HIGH"},
		{"LOW", "MEDIUM"},
	}

	now := time.Now()
	for _, tt := range tests {
		alert := baseAlert()
		alert.ConfidenceLabel = tt.confidence
		adv := Build(alert, now)
		if adv.Severity != tt.wantSeverity {
			t.Errorf("confidence=%s: severity = %s, want %s", tt.confidence, adv.Severity, tt.wantSeverity)
		}
	}
}

func TestBuild_AdvisoryIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	adv := Build(baseAlert(), now)
	want := "ADV-20260304-050607-abcdefgh"
	if adv.AdvisoryID != want {
		t.Errorf("AdvisoryID = %s, want %s", adv.AdvisoryID, want)
	}
}

func TestBuild_DormantPatternGetsVerificationNote(t *testing.T) {
	alert := baseAlert()
	alert.PatternStatus = string(models.StatusDormant)
	adv := Build(alert, time.Now())

	found := false
	for _, a := range adv.RecommendedActions {
		if strings.Contains(a, "verify if still actively occurring") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a dormant-pattern verification note in %v", adv.RecommendedActions)
	}
}

func TestBuild_CoolingActionsCarryStatusPrefix(t *testing.T) {
	alert := baseAlert()
	alert.PatternStatus = string(models.StatusCooling)
	adv := Build(alert, time.Now())

	if len(adv.RecommendedActions) == 0 || !strings.HasPrefix(adv.RecommendedActions[0], "[COOLING PATTERN]") {
		t.Errorf("expected first action to carry a COOLING PATTERN prefix, got %v", adv.RecommendedActions)
	}
}

func TestBuildAllClear_FixedIDFormat(t *testing.T) {
	adv := BuildAllClear("abcdefgh12345678", time.Now())
	if adv.AdvisoryID != "ADV-CLEAR-abcdefgh" {
		t.Errorf("AdvisoryID = %s, want ADV-CLEAR-abcdefgh", adv.AdvisoryID)
	}
	if adv.Severity != "INFO" {
		t.Errorf("expected INFO severity for an all-clear advisory, got %s", adv.Severity)
	}
}

func TestSeverityMeetsThreshold(t *testing.T) {
	tests := []struct {
		severity string
		minimum  string
		want     bool
	}{
		{"CRITICAL", "HIGH", true},
		{"MEDIUM", "HIGH", false},
		{"HIGH", "HIGH", true},
		{"INFO", "MEDIUM", false},
	}

	for _, tt := range tests {
		got := severityMeetsThreshold(tt.severity, tt.minimum)
		if got != tt.want {
			t.Errorf("severityMeetsThreshold(%s, %s) = %v, want %v", tt.severity, tt.minimum, got, tt.want)
		}
	}
}
