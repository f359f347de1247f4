// Package hubconfig loads and validates the hub's runtime configuration.
// Mirrors the env-var-driven config of cmd/engine/main.go in the teacher
// repo (requireEnv/getEnvOrDefault), but bundled into a single struct that
// can be atomically swapped out from under in-flight requests (spec §5).
package hubconfig

import (
	"math"
	"os"
	"strconv"

	"github.com/synapsefi/bridge-hub/internal/huberr"
)

// DecayWindow is one row of the discrete decay lookup table.
type DecayWindow struct {
	Name       string  `json:"name"`
	MaxSeconds float64 `json:"max_seconds"` // +Inf for the terminal "stale" bucket
	DecayScore float64 `json:"decay_score"`
}

// StatusThresholds are the ACTIVE/COOLING/DORMANT effective-confidence
// boundaries.
type StatusThresholds struct {
	ActiveMin  float64 `json:"active_min"`
	CoolingMin float64 `json:"cooling_min"`
}

// Config is the hub's single source of runtime-tunable behavior. A Config
// value is treated as immutable once constructed; updates replace the
// pointer held by the hub (see internal/hub) rather than mutating fields.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	APIKey   string `json:"api_key"`
	LogLevel string `json:"log_level"`

	// C3 Temporal Correlator
	EntityThreshold   int `json:"entity_threshold"`
	TimeWindowSeconds int `json:"time_window_seconds"`

	// C4 Escalation Engine — must be non-decreasing.
	MediumThreshold   int `json:"medium_threshold"`
	HighThreshold     int `json:"high_threshold"`
	CriticalThreshold int `json:"critical_threshold"`

	// C1 Behavioral Risk Graph
	MaxGraphAgeSeconds int `json:"max_graph_age_seconds"`

	// C6 Hub Orchestrator
	PruneIntervalSeconds int `json:"prune_interval_seconds"`
	MaxAdvisories        int `json:"max_advisories"`

	// C2 Decay Engine
	DecayWindows     []DecayWindow    `json:"decay_windows"`
	StatusThresholds StatusThresholds `json:"status_thresholds"`

	// C7 Metrics Tracker
	MetricsWindowSeconds int `json:"metrics_window_seconds"`
}

// DefaultDecayWindows is the spec §4.2 default table, evaluated in order.
func DefaultDecayWindows() []DecayWindow {
	return []DecayWindow{
		{Name: "fresh", MaxSeconds: 120, DecayScore: 1.0},
		{Name: "recent", MaxSeconds: 300, DecayScore: 0.8},
		{Name: "aging", MaxSeconds: 600, DecayScore: 0.5},
		{Name: "stale", MaxSeconds: math.Inf(1), DecayScore: 0.2},
	}
}

// Load builds a Config from environment variables, falling back to the
// spec's documented defaults for anything unset.
func Load() *Config {
	return &Config{
		Host: getEnvOrDefault("HUB_HOST", "0.0.0.0"),
		Port: getEnvIntOrDefault("HUB_PORT", 8000),

		APIKey:   getEnvOrDefault("HUB_API_KEY", "dev-key-change-in-production"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),

		EntityThreshold:   getEnvIntOrDefault("ENTITY_THRESHOLD", 2),
		TimeWindowSeconds: getEnvIntOrDefault("TIME_WINDOW_SECONDS", 300),

		MediumThreshold:   getEnvIntOrDefault("MEDIUM_THRESHOLD", 2),
		HighThreshold:     getEnvIntOrDefault("HIGH_THRESHOLD", 3),
		CriticalThreshold: getEnvIntOrDefault("CRITICAL_THRESHOLD", 4),

		MaxGraphAgeSeconds: getEnvIntOrDefault("MAX_GRAPH_AGE_SECONDS", 3600),

		PruneIntervalSeconds: getEnvIntOrDefault("PRUNE_INTERVAL_SECONDS", 300),
		MaxAdvisories:        getEnvIntOrDefault("MAX_ADVISORIES", 1000),

		DecayWindows: DefaultDecayWindows(),
		StatusThresholds: StatusThresholds{
			ActiveMin:  0.7,
			CoolingMin: 0.4,
		},

		MetricsWindowSeconds: getEnvIntOrDefault("METRICS_WINDOW_SECONDS", 3600),
	}
}

// Validate rejects a Config that violates the ordering/range constraints
// from spec §6. On failure the caller must retain the previously-active
// Config (§7 ConfigError: "rejected atomically, old config retained").
func Validate(c *Config) error {
	if c.EntityThreshold < 1 {
		return huberr.Config("entity_threshold must be >= 1")
	}
	if c.TimeWindowSeconds < 1 {
		return huberr.Config("time_window_seconds must be >= 1")
	}
	if !(1 <= c.MediumThreshold && c.MediumThreshold <= c.HighThreshold && c.HighThreshold <= c.CriticalThreshold) {
		return huberr.Config("escalation thresholds must satisfy medium <= high <= critical")
	}
	if c.MaxGraphAgeSeconds < 60 {
		return huberr.Config("max_graph_age_seconds must be >= 60")
	}
	if c.PruneIntervalSeconds < 10 {
		return huberr.Config("prune_interval_seconds must be >= 10")
	}
	if c.MaxAdvisories < 1 {
		return huberr.Config("max_advisories must be >= 1")
	}
	if !(c.StatusThresholds.CoolingMin <= c.StatusThresholds.ActiveMin) {
		return huberr.Config("status_thresholds.cooling_min must be <= active_min")
	}
	if len(c.DecayWindows) == 0 {
		return huberr.Config("decay_windows must not be empty")
	}
	if !(1 <= c.Port && c.Port <= 65535) {
		return huberr.Config("port must be between 1 and 65535")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
