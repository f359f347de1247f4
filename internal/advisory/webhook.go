package advisory

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

var severityRank = map[string]int{
	"INFO": 0, "MEDIUM": 1, "HIGH": 2, "CRITICAL": 3,
}

// WebhookEndpoint is a registered advisory receiver. Only advisories at or
// above MinSeverity are delivered to it.
type WebhookEndpoint struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Enabled     bool              `json:"enabled"`
	Headers     map[string]string `json:"headers,omitempty"`
	MinSeverity string            `json:"min_severity"`
}

// WebhookManager fans advisories out to registered HTTP endpoints.
// Delivery is async and non-blocking: a slow or failing endpoint never
// delays advisory construction. Failures are logged; no delivery history
// is kept.
type WebhookManager struct {
	mu         sync.RWMutex
	endpoints  []WebhookEndpoint
	httpClient *http.Client
}

// NewWebhookManager creates an empty webhook fan-out manager.
func NewWebhookManager() *WebhookManager {
	return &WebhookManager{
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Register adds a webhook endpoint and returns its generated ID.
func (wm *WebhookManager) Register(name, url, minSeverity string, headers map[string]string) string {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	id := uuid.New().String()
	wm.endpoints = append(wm.endpoints, WebhookEndpoint{
		ID:          id,
		Name:        name,
		URL:         url,
		Enabled:     true,
		Headers:     headers,
		MinSeverity: minSeverity,
	})

	log.Printf("[advisory] registered webhook %s (%s) -> %s min=%s", id, name, url, minSeverity)
	return id
}

// Unregister removes a webhook endpoint by ID.
func (wm *WebhookManager) Unregister(id string) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for i, e := range wm.endpoints {
		if e.ID == id {
			wm.endpoints = append(wm.endpoints[:i], wm.endpoints[i+1:]...)
			return
		}
	}
}

// Endpoints returns a snapshot of all registered webhooks.
func (wm *WebhookManager) Endpoints() []WebhookEndpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	out := make([]WebhookEndpoint, len(wm.endpoints))
	copy(out, wm.endpoints)
	return out
}

// Fanout delivers adv to every enabled endpoint whose MinSeverity is met,
// each in its own goroutine so a slow endpoint cannot block the others.
func (wm *WebhookManager) Fanout(adv models.Advisory) {
	wm.mu.RLock()
	endpoints := make([]WebhookEndpoint, len(wm.endpoints))
	copy(endpoints, wm.endpoints)
	wm.mu.RUnlock()

	for _, ep := range endpoints {
		if !ep.Enabled {
			continue
		}
		if !severityMeetsThreshold(adv.Severity, ep.MinSeverity) {
			continue
		}
		go wm.send(ep, adv)
	}
}

func (wm *WebhookManager) send(ep WebhookEndpoint, adv models.Advisory) {
	payload, err := json.Marshal(adv)
	if err != nil {
		log.Printf("[advisory] failed to marshal advisory %s: %v", adv.AdvisoryID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[advisory] failed to build request for %s: %v", ep.Name, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	resp, err := wm.httpClient.Do(req)
	if err != nil {
		log.Printf("[advisory] delivery to %s failed: %v", ep.Name, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("[advisory] %s returned status %d", ep.Name, resp.StatusCode)
	}
}

func severityMeetsThreshold(severity, minimum string) bool {
	return severityRank[severity] >= severityRank[minimum]
}
