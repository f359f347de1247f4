// Package brg implements the Behavioral Risk Graph: an in-memory bipartite
// multigraph correlating entities against behavioral pattern fingerprints.
//
// Privacy guarantee: the graph stores only opaque fingerprints and entity
// identifiers, never raw customer data. Nodes are never deleted by decay —
// only their decay fields are downgraded; pruning removes only edges older
// than the retention window and the pattern nodes they leave orphaned.
package brg

import (
	"sort"
	"sync"
	"time"

	"github.com/synapsefi/bridge-hub/pkg/models"
)

// patternNode holds a pattern's decay state and its observation edges.
type patternNode struct {
	firstSeen           time.Time
	lastSeen            time.Time
	observationCount    int
	baseConfidence      float64
	decayScore          float64
	effectiveConfidence float64
	status              models.PatternStatus
	observations        []edge
}

type edge struct {
	entityID  string
	timestamp time.Time
	severity  string
}

// Graph is a concurrent-safe Behavioral Risk Graph.
type Graph struct {
	mu sync.RWMutex

	maxAge time.Duration

	patterns map[string]*patternNode
	entities map[string]struct{}

	observationCount int64
}

// New creates an empty graph with the given retention window. Observations
// older than maxAge are eligible for removal by Prune.
func New(maxAge time.Duration) *Graph {
	return &Graph{
		maxAge:   maxAge,
		patterns: make(map[string]*patternNode),
		entities: make(map[string]struct{}),
	}
}

// AddObservation records one entity's observation of a fingerprint,
// creating the pattern and entity nodes if they don't already exist and
// overwriting the pattern's decay fields with the caller's freshly
// computed values.
func (g *Graph) AddObservation(fingerprint, entityID, severity string, timestamp time.Time, baseConfidence, decayScore, effectiveConfidence float64, status models.PatternStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.patterns[fingerprint]
	if !exists {
		n = &patternNode{firstSeen: timestamp}
		g.patterns[fingerprint] = n
	}

	n.baseConfidence = baseConfidence
	n.decayScore = decayScore
	n.effectiveConfidence = effectiveConfidence
	n.status = status
	n.lastSeen = timestamp
	n.observationCount++
	n.observations = append(n.observations, edge{
		entityID:  entityID,
		timestamp: timestamp,
		severity:  severity,
	})

	g.entities[entityID] = struct{}{}
	g.observationCount++
}

// UpdateDecayFields overwrites a pattern's decay-derived fields in place,
// without appending a new edge. Used once an observation has already been
// written and correlation has been recomputed against state that includes
// it, so the correlation's fresher decay numbers replace the provisional
// ones AddObservation wrote. A no-op if the fingerprint is unknown.
func (g *Graph) UpdateDecayFields(fingerprint string, baseConfidence, decayScore, effectiveConfidence float64, status models.PatternStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.patterns[fingerprint]
	if !exists {
		return
	}
	n.baseConfidence = baseConfidence
	n.decayScore = decayScore
	n.effectiveConfidence = effectiveConfidence
	n.status = status
}

// RecentObservations returns, oldest first, every observation of
// fingerprint within window of the given instant.
func (g *Graph) RecentObservations(fingerprint string, window time.Duration, now time.Time) []models.Observation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, exists := g.patterns[fingerprint]
	if !exists {
		return nil
	}

	cutoff := now.Add(-window)
	var out []models.Observation
	for _, e := range n.observations {
		if e.timestamp.After(cutoff) {
			out = append(out, models.Observation{
				EntityID:  e.entityID,
				Timestamp: e.timestamp,
				Severity:  e.severity,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// UniqueEntities counts the distinct entities that observed fingerprint
// within window of now.
func (g *Graph) UniqueEntities(fingerprint string, window time.Duration, now time.Time) int {
	obs := g.RecentObservations(fingerprint, window, now)
	seen := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		seen[o.EntityID] = struct{}{}
	}
	return len(seen)
}

// ActiveEntities returns entities that made at least one observation
// within lookback of now.
func (g *Graph) ActiveEntities(lookback time.Duration, now time.Time) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cutoff := now.Add(-lookback)
	seen := make(map[string]struct{})
	for _, n := range g.patterns {
		for _, e := range n.observations {
			if !e.timestamp.Before(cutoff) {
				seen[e.entityID] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune removes observation edges older than the graph's retention window
// and drops any pattern node left with zero observations. It returns the
// number of edges removed. Pattern nodes are never removed for any other
// reason — decay downgrades influence, it never deletes history.
func (g *Graph) Prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.maxAge)
	removed := 0

	for fp, n := range g.patterns {
		kept := n.observations[:0]
		for _, e := range n.observations {
			if e.timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		n.observations = kept

		if len(n.observations) == 0 {
			delete(g.patterns, fp)
		}
	}

	return removed
}

func (g *Graph) rebuildEntitiesLocked() {
	entities := make(map[string]struct{})
	for _, n := range g.patterns {
		for _, e := range n.observations {
			entities[e.entityID] = struct{}{}
		}
	}
	g.entities = entities
}

// Stats summarizes the graph for introspection endpoints.
func (g *Graph) Stats(now time.Time) models.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	statuses := map[string]int{
		string(models.StatusActive):  0,
		string(models.StatusCooling): 0,
		string(models.StatusDormant): 0,
	}

	var totalEffective float64
	var minTS, maxTS time.Time
	totalEdges := 0

	for _, n := range g.patterns {
		statuses[string(n.status)]++
		totalEffective += n.effectiveConfidence
		for _, e := range n.observations {
			totalEdges++
			if minTS.IsZero() || e.timestamp.Before(minTS) {
				minTS = e.timestamp
			}
			if maxTS.IsZero() || e.timestamp.After(maxTS) {
				maxTS = e.timestamp
			}
		}
	}

	var avgEffective float64
	if len(g.patterns) > 0 {
		avgEffective = round3(totalEffective / float64(len(g.patterns)))
	}

	var coverage int64
	if !minTS.IsZero() {
		coverage = int64(maxTS.Sub(minTS).Seconds())
	}

	activeCount := len(g.activeEntitiesLocked(60*time.Minute, now))

	return models.GraphStats{
		UniquePatterns:          len(g.patterns),
		TotalObservations:       int(g.observationCount),
		UniqueEntities:          len(g.entities),
		ActiveEntities:          activeCount,
		MemorySizeBytes:         int64(len(g.patterns))*1000 + int64(totalEdges)*500,
		TemporalCoverageSeconds: coverage,
		PatternStatuses:         statuses,
		AvgEffectiveConfidence:  avgEffective,
	}
}

func (g *Graph) activeEntitiesLocked(lookback time.Duration, now time.Time) []string {
	cutoff := now.Add(-lookback)
	seen := make(map[string]struct{})
	for _, n := range g.patterns {
		for _, e := range n.observations {
			if !e.timestamp.Before(cutoff) {
				seen[e.entityID] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// PatternDetails returns a pattern's node-level summary, or nil if the
// fingerprint is unknown.
func (g *Graph) PatternDetails(fingerprint string, now time.Time) *models.PatternDetails {
	g.mu.RLock()
	n, exists := g.patterns[fingerprint]
	g.mu.RUnlock()
	if !exists {
		return nil
	}

	return &models.PatternDetails{
		Fingerprint:         fingerprint,
		FirstSeen:           n.firstSeen,
		LastSeen:            n.lastSeen,
		ObservationCount:    n.observationCount,
		EntityCount:         g.UniqueEntities(fingerprint, g.maxAge, now),
		BaseConfidence:      n.baseConfidence,
		DecayScore:          n.decayScore,
		EffectiveConfidence: n.effectiveConfidence,
		PatternStatus:       string(n.status),
	}
}

// KnownPatterns returns every pattern fingerprint with at least one
// observation within lookback of now. Used only by introspection
// endpoints that need to scan the whole graph, never the ingest path.
func (g *Graph) KnownPatterns(lookback time.Duration, now time.Time) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cutoff := now.Add(-lookback)
	out := make([]string, 0, len(g.patterns))
	for fp, n := range g.patterns {
		for _, e := range n.observations {
			if !e.timestamp.Before(cutoff) {
				out = append(out, fp)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
