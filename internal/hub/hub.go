// Package hub implements the Hub Orchestrator: the per-ingest choreography
// that ties the Behavioral Risk Graph, Temporal Correlator, Escalation
// Engine, Advisory Builder, and Metrics Tracker together, plus the
// background pruning loop that keeps the graph bounded.
package hub

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapsefi/bridge-hub/internal/advisory"
	"github.com/synapsefi/bridge-hub/internal/brg"
	"github.com/synapsefi/bridge-hub/internal/correlator"
	"github.com/synapsefi/bridge-hub/internal/escalation"
	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/internal/huberr"
	"github.com/synapsefi/bridge-hub/internal/metrics"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

// ingestLockWait is the upper bound an ingest will wait to acquire its
// fingerprint's serialization lock before failing with a CapacityError.
const ingestLockWait = time.Second

// Hub owns the hub's entire in-process state and orchestrates every
// ingest and the periodic pruner.
type Hub struct {
	cfg atomic.Pointer[hubconfig.Config]

	graph     *brg.Graph
	webhooks  *advisory.WebhookManager
	tracker   *metrics.Tracker
	startedAt time.Time

	fpLocks    sync.Map // fingerprint -> *sync.Mutex
	advMu      sync.Mutex
	advisories []models.Advisory

	onAdvisory func(models.Advisory)
}

// New constructs a Hub from the given configuration.
func New(cfg *hubconfig.Config) *Hub {
	h := &Hub{
		graph:     brg.New(time.Duration(cfg.MaxGraphAgeSeconds) * time.Second),
		webhooks:  advisory.NewWebhookManager(),
		tracker:   metrics.NewTracker(time.Duration(cfg.MetricsWindowSeconds) * time.Second),
		startedAt: time.Now(),
	}
	h.cfg.Store(cfg)
	return h
}

// Config returns the currently active configuration snapshot.
func (h *Hub) Config() *hubconfig.Config {
	return h.cfg.Load()
}

// UpdateConfig validates and atomically swaps in a new configuration. On
// validation failure the previous configuration is retained.
func (h *Hub) UpdateConfig(newCfg *hubconfig.Config) error {
	if err := hubconfig.Validate(newCfg); err != nil {
		return err
	}
	h.cfg.Store(newCfg)
	return nil
}

// Webhooks exposes the webhook fan-out manager for registration endpoints.
func (h *Hub) Webhooks() *advisory.WebhookManager {
	return h.webhooks
}

// OnAdvisory registers a callback invoked with every advisory right after
// it is appended to the log and handed to webhook fan-out. Used to drive
// the supplementary live advisory stream (internal/api/stream.go). Ingest
// calls it while still holding the fingerprint's serialization lock.
func (h *Hub) OnAdvisory(fn func(models.Advisory)) {
	h.onAdvisory = fn
}

func (h *Hub) fingerprintLock(fingerprint string) *sync.Mutex {
	v, _ := h.fpLocks.LoadOrStore(fingerprint, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// tryLock attempts to acquire mu within timeout, returning false if the
// budget is exhausted first. On timeout the pending acquisition is
// released as soon as it completes, so mu is not left held.
func tryLock(mu *sync.Mutex, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		go func() {
			<-done
			mu.Unlock()
		}()
		return false
	}
}

// Ingest runs the full per-fingerprint choreography described for the Hub
// Orchestrator: write the observation, correlate against state that now
// includes it, refresh its decay fields from the correlation if one was
// found, escalate and build an advisory if warranted, then record metrics.
func (h *Hub) Ingest(fp models.RiskFingerprint, now time.Time) (models.IngestAck, error) {
	start := time.Now()
	cfg := h.cfg.Load()

	if err := validateFingerprint(fp); err != nil {
		return models.IngestAck{}, err
	}

	mu := h.fingerprintLock(fp.Fingerprint)
	if !tryLock(mu, ingestLockWait) {
		return models.IngestAck{}, huberr.Capacity("timed out waiting to serialize access to this fingerprint")
	}
	defer mu.Unlock()

	// Step 2: write the observation first, with provisional decay fields,
	// so this request's own edge is visible to the correlation check below.
	// Correlating before this write would miss the entity that completes
	// the threshold on its own triggering request.
	h.graph.AddObservation(fp.Fingerprint, fp.EntityID, fp.Severity, fp.Timestamp,
		0.5, 1.0, 0.5, models.StatusActive)

	// Step 3: correlate against state that includes this observation, and
	// replace the provisional decay fields with the correlation's fresher
	// computation if one was found.
	correlation := correlator.Detect(cfg, h.graph, fp.Fingerprint, now)
	if correlation != nil {
		h.graph.UpdateDecayFields(fp.Fingerprint, correlation.BaseConfidence,
			correlation.DecayScore, correlation.EffectiveConfidence,
			models.PatternStatus(correlation.PatternStatus))
	}

	ingestionLatencyMs := float64(time.Since(start).Microseconds()) / 1000.0
	h.tracker.RecordIngestion(fp.EntityID, ingestionLatencyMs, now)
	h.tracker.RecordCorrelation(ingestionLatencyMs, correlation != nil, now)

	correlationDetected := correlation != nil

	// Step 5: escalate and advise if the correlation warrants it.
	if correlation != nil {
		if alert := escalation.Evaluate(cfg, correlation, now); alert != nil {
			h.tracker.RecordEscalation(now)

			adv := advisory.Build(alert, now)
			h.appendAdvisory(adv, cfg.MaxAdvisories)
			h.tracker.RecordAdvisory(adv.Severity, float64(adv.FraudScore), now)
			h.webhooks.Fanout(adv)
			if h.onAdvisory != nil {
				h.onAdvisory(adv)
			}
		}
	}

	short := fp.Fingerprint
	if len(short) > 16 {
		short = short[:16]
	}

	return models.IngestAck{
		Status:              "accepted",
		Fingerprint:         short + "...",
		EntityID:            fp.EntityID,
		CorrelationDetected: correlationDetected,
	}, nil
}

func (h *Hub) appendAdvisory(adv models.Advisory, cap int) {
	h.advMu.Lock()
	defer h.advMu.Unlock()

	h.advisories = append(h.advisories, adv)
	if len(h.advisories) > cap {
		h.advisories = h.advisories[len(h.advisories)-cap:]
	}
}

// Advisories returns up to limit recent advisories, newest first,
// optionally filtered to a single severity.
func (h *Hub) Advisories(limit int, severity string) []models.Advisory {
	h.advMu.Lock()
	defer h.advMu.Unlock()

	var filtered []models.Advisory
	for _, a := range h.advisories {
		if severity == "" || a.Severity == severity {
			filtered = append(filtered, a)
		}
	}

	if limit <= 0 || limit > len(filtered) {
		limit = len(filtered)
	}

	out := make([]models.Advisory, limit)
	for i := 0; i < limit; i++ {
		out[i] = filtered[len(filtered)-1-i]
	}
	return out
}

// GraphStats returns the Behavioral Risk Graph's current statistics.
func (h *Hub) GraphStats(now time.Time) models.GraphStats {
	return h.graph.Stats(now)
}

// ActiveEntities lists entities with at least one observation within
// lookback of now, for the graph-entity introspection dump.
func (h *Hub) ActiveEntities(lookback time.Duration, now time.Time) []string {
	return h.graph.ActiveEntities(lookback, now)
}

// PatternDetails returns details for a single pattern, or nil if unknown.
func (h *Hub) PatternDetails(fingerprint string, now time.Time) *models.PatternDetails {
	return h.graph.PatternDetails(fingerprint, now)
}

// PatternHistory returns the observation timeline for a fingerprint.
func (h *Hub) PatternHistory(fingerprint string, lookback time.Duration, now time.Time) models.PatternHistory {
	observations := h.graph.RecentObservations(fingerprint, lookback, now)
	if len(observations) == 0 {
		return models.PatternHistory{
			Fingerprint: fingerprint,
			Status:      "NOT_FOUND",
			Message:     "No recent observations for this pattern",
		}
	}

	seen := make(map[string]struct{})
	for _, o := range observations {
		seen[o.EntityID] = struct{}{}
	}
	entities := make([]string, 0, len(seen))
	for e := range seen {
		entities = append(entities, e)
	}

	var span float64
	if len(observations) > 1 {
		span = observations[len(observations)-1].Timestamp.Sub(observations[0].Timestamp).Seconds()
	}

	first := observations[0].Timestamp
	last := observations[len(observations)-1].Timestamp

	return models.PatternHistory{
		Fingerprint:      fingerprint,
		Status:           "ACTIVE",
		ObservationCount: len(observations),
		EntityCount:      len(entities),
		Entities:         entities,
		TimeSpanSeconds:  span,
		FirstSeen:        &first,
		LastSeen:         &last,
		Observations:     observations,
	}
}

// EntityActivity returns a participation summary for one entity.
func (h *Hub) EntityActivity(entityID string, lookback time.Duration, now time.Time) models.EntityActivity {
	patterns := make(map[string]struct{})
	var obsCount int
	var first, last time.Time

	for _, fp := range h.knownFingerprints() {
		for _, o := range h.graph.RecentObservations(fp, lookback, now) {
			if o.EntityID != entityID {
				continue
			}
			obsCount++
			patterns[fp] = struct{}{}
			if first.IsZero() || o.Timestamp.Before(first) {
				first = o.Timestamp
			}
			if last.IsZero() || o.Timestamp.After(last) {
				last = o.Timestamp
			}
		}
	}

	if obsCount == 0 {
		return models.EntityActivity{
			EntityID: entityID,
			Status:   "NO_ACTIVITY",
			Message:  "No observations in the requested lookback window",
		}
	}

	patternList := make([]string, 0, len(patterns))
	for p := range patterns {
		patternList = append(patternList, p)
	}

	return models.EntityActivity{
		EntityID:         entityID,
		Status:           "ACTIVE",
		ObservationCount: obsCount,
		UniquePatterns:   len(patternList),
		Patterns:         patternList,
		FirstObservation: &first,
		LastObservation:  &last,
	}
}

// knownFingerprints lists every pattern fingerprint currently tracked.
// Used only by introspection endpoints, never the ingest hot path.
func (h *Hub) knownFingerprints() []string {
	// Every fingerprint with at least one observation within the graph's
	// own retention window (max_graph_age_seconds).
	cfg := h.cfg.Load()
	maxAge := time.Duration(cfg.MaxGraphAgeSeconds) * time.Second
	return h.graph.KnownPatterns(maxAge, time.Now())
}

// HealthStatus reports overall hub health for service-discovery probes.
func (h *Hub) HealthStatus(now time.Time) models.HealthStatus {
	stats := h.graph.Stats(now)

	h.advMu.Lock()
	advisoryCount := len(h.advisories)
	h.advMu.Unlock()

	graphHealthy := stats.UniquePatterns < 10000
	advisoriesHealthy := advisoryCount < h.cfg.Load().MaxAdvisories

	status := "HEALTHY"
	message := "All systems operational"
	if !graphHealthy || !advisoriesHealthy {
		status = "DEGRADED"
		message = "Issues detected:"
		if !graphHealthy {
			message += " graph memory approaching limit;"
		}
		if !advisoriesHealthy {
			message += " advisory queue large;"
		}
	}

	return models.HealthStatus{
		Status:        status,
		UptimeSeconds: now.Sub(h.startedAt).Seconds(),
		Message:       message,
		Timestamp:     now,
	}
}

// MetricsSummary returns the current rolling-window metrics snapshot.
func (h *Hub) MetricsSummary(now time.Time) models.MetricsSummary {
	stats := h.graph.Stats(now)
	h.tracker.UpdatePatternStatusCounts(
		stats.PatternStatuses[string(models.StatusActive)],
		stats.PatternStatuses[string(models.StatusCooling)],
		stats.PatternStatuses[string(models.StatusDormant)],
	)
	return h.tracker.Summary(stats.UniquePatterns, stats.TotalObservations, now)
}

// RunPruner drives the background pruning loop until ctx is cancelled,
// calling BRG.Prune every prune_interval_seconds.
func (h *Hub) RunPruner(ctx context.Context) {
	for {
		cfg := h.cfg.Load()
		interval := time.Duration(cfg.PruneIntervalSeconds) * time.Second

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			removed := h.graph.Prune(time.Now())
			if removed > 0 {
				log.Printf("[hub] pruned %d expired edges from BRG", removed)
			}
		}
	}
}

func validateFingerprint(fp models.RiskFingerprint) error {
	if fp.EntityID == "" {
		return huberr.Validation("entity_id is required")
	}
	if fp.Fingerprint == "" {
		return huberr.Validation("fingerprint is required")
	}
	if !models.ValidSeverity(fp.Severity) {
		return huberr.Validation("severity must be one of LOW, MEDIUM, HIGH, CRITICAL")
	}
	if fp.Timestamp.IsZero() {
		return huberr.Validation("timestamp is required")
	}
	return nil
}
