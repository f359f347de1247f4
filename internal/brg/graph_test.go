package brg

import (
	"testing"
	"time"

	"github.com/synapsefi/bridge-hub/pkg/models"
)

func TestAddObservation_CreatesPatternAndEntity(t *testing.T) {
	g := New(5 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now, 0.9, 1.0, 0.9, models.StatusActive)

	stats := g.Stats(now)
	if stats.UniquePatterns != 1 {
		t.Errorf("expected 1 unique pattern, got %d", stats.UniquePatterns)
	}
	if stats.UniqueEntities != 1 {
		t.Errorf("expected 1 unique entity, got %d", stats.UniqueEntities)
	}
	if stats.TotalObservations != 1 {
		t.Errorf("expected 1 total observation, got %d", stats.TotalObservations)
	}
}

func TestRecentObservations_FiltersByWindow(t *testing.T) {
	g := New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-400*time.Second), 0.5, 0.5, 0.25, models.StatusCooling)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-10*time.Second), 0.9, 1.0, 0.9, models.StatusActive)

	obs := g.RecentObservations("fp-1", 300*time.Second, now)
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation within 300s window, got %d", len(obs))
	}
	if obs[0].EntityID != "entity-B" {
		t.Errorf("expected entity-B, got %s", obs[0].EntityID)
	}
}

func TestRecentObservations_SortedOldestFirst(t *testing.T) {
	g := New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-5*time.Second), 0.9, 1.0, 0.9, models.StatusActive)
	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-30*time.Second), 0.9, 1.0, 0.9, models.StatusActive)

	obs := g.RecentObservations("fp-1", 60*time.Second, now)
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].EntityID != "entity-A" || obs[1].EntityID != "entity-B" {
		t.Errorf("expected oldest-first ordering, got %v", obs)
	}
}

func TestUniqueEntities_DedupesRepeatObservers(t *testing.T) {
	g := New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-5*time.Second), 0.9, 1.0, 0.9, models.StatusActive)
	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-2*time.Second), 0.9, 1.0, 0.9, models.StatusActive)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-1*time.Second), 0.9, 1.0, 0.9, models.StatusActive)

	count := g.UniqueEntities("fp-1", 60*time.Second, now)
	if count != 2 {
		t.Errorf("expected 2 unique entities, got %d", count)
	}
}

func TestPrune_RemovesExpiredEdgesAndOrphanedPatterns(t *testing.T) {
	g := New(5 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-stale", "entity-A", "HIGH", now.Add(-1*time.Hour), 0.9, 0.2, 0.18, models.StatusDormant)
	g.AddObservation("fp-fresh", "entity-B", "HIGH", now.Add(-10*time.Second), 0.9, 1.0, 0.9, models.StatusActive)

	removed := g.Prune(now)
	if removed != 1 {
		t.Errorf("expected 1 edge pruned, got %d", removed)
	}

	stats := g.Stats(now)
	if stats.UniquePatterns != 1 {
		t.Errorf("expected only fp-fresh to survive pruning, got %d patterns", stats.UniquePatterns)
	}
	if stats.UniqueEntities != 2 {
		t.Errorf("expected entity-A to stay in the entity set after its edge is pruned, got %d", stats.UniqueEntities)
	}
}

func TestPrune_NeverDeletesPatternsWithSurvivingEdges(t *testing.T) {
	g := New(5 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-A", "HIGH", now.Add(-1*time.Hour), 0.9, 0.2, 0.18, models.StatusDormant)
	g.AddObservation("fp-1", "entity-B", "HIGH", now.Add(-10*time.Second), 0.9, 1.0, 0.9, models.StatusActive)

	g.Prune(now)

	details := g.PatternDetails("fp-1", now)
	if details == nil {
		t.Fatal("expected fp-1 to survive pruning since one edge is still within the window")
	}
}

func TestPatternDetails_UnknownFingerprintReturnsNil(t *testing.T) {
	g := New(5 * time.Minute)
	if d := g.PatternDetails("nope", time.Now()); d != nil {
		t.Errorf("expected nil for unknown fingerprint, got %+v", d)
	}
}

func TestActiveEntities_RespectsLookback(t *testing.T) {
	g := New(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.AddObservation("fp-1", "entity-old", "HIGH", now.Add(-2*time.Hour), 0.9, 0.2, 0.18, models.StatusDormant)
	g.AddObservation("fp-1", "entity-new", "HIGH", now.Add(-1*time.Minute), 0.9, 1.0, 0.9, models.StatusActive)

	active := g.ActiveEntities(60*time.Minute, now)
	if len(active) != 1 || active[0] != "entity-new" {
		t.Errorf("expected only entity-new to be active within 60m, got %v", active)
	}
}
