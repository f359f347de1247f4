package correlator

import (
	"testing"
	"time"

	"github.com/synapsefi/bridge-hub/internal/brg"
	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

func testConfig() *hubconfig.Config {
	return &hubconfig.Config{
		EntityThreshold:   2,
		TimeWindowSeconds: 300,
		DecayWindows:      hubconfig.DefaultDecayWindows(),
		StatusThresholds:  hubconfig.StatusThresholds{ActiveMin: 0.7, CoolingMin: 0.4},
	}
}

func TestDetect_NoObservationsReturnsNil(t *testing.T) {
	cfg := testConfig()
	g := brg.New(10 * time.Minute)
	result := Detect(cfg, g, "fp-unknown", time.Now())
	if result != nil {
		t.Fatalf("expected nil for a fingerprint with no observations, got %+v", result)
	}
}

func TestDetect_BelowThresholdReturnsNil(t *testing.T) {
	cfg := testConfig()
	g := brg.New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-5*time.Second), 0, 0, 0, models.StatusActive)

	result := Detect(cfg, g, "fp-1", now)
	if result != nil {
		t.Fatalf("expected nil with only one observing entity, got %+v", result)
	}
}

func TestDetect_HighConfidenceForManyEntitiesTightSpan(t *testing.T) {
	cfg := testConfig()
	g := brg.New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-90*time.Second), 0, 0, 0, models.StatusActive)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-60*time.Second), 0, 0, 0, models.StatusActive)
	g.AddObservation("fp-1", "entity-C", "HIGH", now.Add(-5*time.Second), 0, 0, 0, models.StatusActive)

	result := Detect(cfg, g, "fp-1", now)
	if result == nil {
		t.Fatal("expected a correlation result")
	}
	if result.ConfidenceLabel != "HIGH" {
		t.Errorf("expected HIGH confidence, got %s", result.ConfidenceLabel)
	}
	if result.EntityCount != 3 {
		t.Errorf("expected entity count 3, got %d", result.EntityCount)
	}
	if result.BaseConfidence != 0.9 {
		t.Errorf("expected base confidence 0.9, got %v", result.BaseConfidence)
	}
}

func TestDetect_MediumConfidenceForTwoEntitiesWiderSpan(t *testing.T) {
	cfg := testConfig()
	g := brg.New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-250*time.Second), 0, 0, 0, models.StatusActive)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-5*time.Second), 0, 0, 0, models.StatusActive)

	result := Detect(cfg, g, "fp-1", now)
	if result == nil {
		t.Fatal("expected a correlation result")
	}
	if result.ConfidenceLabel != "MEDIUM" {
		t.Errorf("expected MEDIUM confidence, got %s", result.ConfidenceLabel)
	}
}

func TestDetect_AppliesDecayToLastSeen(t *testing.T) {
	cfg := testConfig()
	cfg.TimeWindowSeconds = 1200
	g := brg.New(20 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-15*time.Minute), 0, 0, 0, models.StatusActive)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-14*time.Minute), 0, 0, 0, models.StatusActive)

	result := Detect(cfg, g, "fp-1", now)
	if result == nil {
		t.Fatal("expected a correlation result")
	}
	if result.PatternStatus != string(models.StatusDormant) {
		t.Errorf("expected a 14-minute-old pattern to be DORMANT, got %s", result.PatternStatus)
	}
	if result.DecayScore != 0.2 {
		t.Errorf("expected decay score 0.2 for a stale pattern, got %v", result.DecayScore)
	}
}
