package decay

import (
	"testing"
	"time"

	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

func testConfig() *hubconfig.Config {
	return &hubconfig.Config{
		DecayWindows: hubconfig.DefaultDecayWindows(),
		StatusThresholds: hubconfig.StatusThresholds{
			ActiveMin:  0.7,
			CoolingMin: 0.4,
		},
	}
}

func TestScore(t *testing.T) {
	windows := hubconfig.DefaultDecayWindows()

	tests := []struct {
		name           string
		elapsedSeconds float64
		expected       float64
	}{
		{"at zero", 0, 1.0},
		{"fresh boundary inclusive", 120, 1.0},
		{"just past fresh", 120.01, 0.8},
		{"recent boundary inclusive", 300, 0.8},
		{"aging boundary inclusive", 600, 0.5},
		{"well past aging", 3600, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(windows, tt.elapsedSeconds)
			if got != tt.expected {
				t.Errorf("Score(%v) = %v, want %v", tt.elapsedSeconds, got, tt.expected)
			}
		})
	}
}

func TestScore_EmptyTableDefaultsStale(t *testing.T) {
	got := Score(nil, 10)
	if got != 0.2 {
		t.Errorf("Score(nil, 10) = %v, want 0.2", got)
	}
}

func TestEffectiveConfidence(t *testing.T) {
	tests := []struct {
		name           string
		baseConfidence float64
		decayScore     float64
		expected       float64
	}{
		{"full strength", 0.9, 1.0, 0.9},
		{"cooling", 0.9, 0.5, 0.45},
		{"clamped above one", 2.0, 1.0, 1.0},
		{"clamped below zero", -1.0, 1.0, 0.0},
		{"rounds to four places", 0.33333, 0.33333, 0.1111},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveConfidence(tt.baseConfidence, tt.decayScore)
			if got != tt.expected {
				t.Errorf("EffectiveConfidence(%v, %v) = %v, want %v", tt.baseConfidence, tt.decayScore, got, tt.expected)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	thresholds := hubconfig.StatusThresholds{ActiveMin: 0.7, CoolingMin: 0.4}

	tests := []struct {
		name                string
		effectiveConfidence float64
		expected            models.PatternStatus
	}{
		{"active boundary", 0.7, models.StatusActive},
		{"well above active", 0.95, models.StatusActive},
		{"cooling boundary", 0.4, models.StatusCooling},
		{"mid cooling", 0.55, models.StatusCooling},
		{"dormant", 0.1, models.StatusDormant},
		{"zero", 0.0, models.StatusDormant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Status(thresholds, tt.effectiveConfidence)
			if got != tt.expected {
				t.Errorf("Status(%v) = %v, want %v", tt.effectiveConfidence, got, tt.expected)
			}
		})
	}
}

func TestApply_FreshPatternIsActive(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lastSeen := now.Add(-10 * time.Second)

	r := Apply(cfg, 0.9, lastSeen, now)

	if r.DecayScore != 1.0 {
		t.Errorf("expected decay_score 1.0 for a 10s-old pattern, got %v", r.DecayScore)
	}
	if r.Status != models.StatusActive {
		t.Errorf("expected ACTIVE status, got %v", r.Status)
	}
	if r.EffectiveConfidence != 0.9 {
		t.Errorf("expected effective confidence 0.9, got %v", r.EffectiveConfidence)
	}
}

func TestApply_StalePatternIsDormant(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lastSeen := now.Add(-1 * time.Hour)

	r := Apply(cfg, 0.9, lastSeen, now)

	if r.DecayScore != 0.2 {
		t.Errorf("expected decay_score 0.2 for a 1h-old pattern, got %v", r.DecayScore)
	}
	if r.Status != models.StatusDormant {
		t.Errorf("expected DORMANT status, got %v", r.Status)
	}
	if r.TimeSinceLastSeenSeconds != 3600 {
		t.Errorf("expected time_since_last_seen_seconds 3600, got %v", r.TimeSinceLastSeenSeconds)
	}
}

func TestReactivate_ResetsToFullStrength(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r := Reactivate(cfg, 0.75, now)

	if !r.Reactivated {
		t.Error("expected Reactivated to be true")
	}
	if r.DecayScore != 1.0 {
		t.Errorf("expected decay_score 1.0 on reactivation, got %v", r.DecayScore)
	}
	if r.TimeSinceLastSeenSeconds != 0.0 {
		t.Errorf("expected time_since_last_seen_seconds 0, got %v", r.TimeSinceLastSeenSeconds)
	}
	if !r.LastSeen.Equal(now) {
		t.Errorf("expected last_seen reset to now")
	}
}

func TestExplain_VariesByStatus(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	active := Apply(cfg, 0.9, now.Add(-5*time.Second), now)
	cooling := Apply(cfg, 0.9, now.Add(-400*time.Second), now)
	dormant := Apply(cfg, 0.9, now.Add(-3600*time.Second), now)

	activeMsg := Explain("fp-1", active)
	coolingMsg := Explain("fp-1", cooling)
	dormantMsg := Explain("fp-1", dormant)

	if activeMsg == coolingMsg || coolingMsg == dormantMsg {
		t.Error("expected distinct explanations across lifecycle statuses")
	}
	if got := active.Status; got != models.StatusActive {
		t.Fatalf("fixture drifted: expected active fixture to be ACTIVE, got %v", got)
	}
}
