package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/synapsefi/bridge-hub/internal/hub"
	"github.com/synapsefi/bridge-hub/internal/hubconfig"
	"github.com/synapsefi/bridge-hub/internal/huberr"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

// defaultPatternLookback bounds how far back /patterns/:fingerprint and
// /entities/:id/activity search when the caller doesn't specify a window.
const defaultPatternLookback = time.Hour

type Handler struct {
	hub *hub.Hub
}

// SetupRouter builds the hub's gin.Engine: CORS, a public health/stream
// group, and an X-API-Key + rate-limited protected group carrying every
// ingress/egress/introspection/config endpoint.
func SetupRouter(h *hub.Hub, stream *StreamHub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-API-Key, Authorization, X-Trace-Id, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	handler := &Handler{hub: h}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", stream.Subscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(traceID())
	protected.Use(AuthMiddleware(h))
	protected.Use(NewRateLimiter(120, 20).Middleware())
	{
		protected.POST("/ingest", handler.handleIngest)

		protected.GET("/advisories", handler.handleListAdvisories)

		protected.GET("/patterns/:fingerprint", handler.handlePatternHistory)
		protected.GET("/entities/:id/activity", handler.handleEntityActivity)

		protected.GET("/stats", handler.handleGraphStats)
		protected.GET("/metrics", handler.handleMetricsSummary)
		protected.GET("/graph/patterns", handler.handleGraphPatterns)
		protected.GET("/graph/entities", handler.handleGraphEntities)

		protected.PUT("/config", handler.handleUpdateConfig)

		webhooks := protected.Group("/webhooks")
		{
			webhooks.GET("", handler.handleListWebhooks)
			webhooks.POST("", handler.handleRegisterWebhook)
			webhooks.DELETE("/:id", handler.handleUnregisterWebhook)
		}
	}

	return r
}

// traceID stamps every protected request with a correlation ID, echoed in
// the response header and available to handlers for structured logging.
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set("trace_id", id)
		c.Writer.Header().Set("X-Trace-Id", id)
		c.Next()
	}
}

// writeError maps a huberr.Kind to its transport-layer status code and a
// uniform JSON body, per spec §7.
func writeError(c *gin.Context, err error) {
	he, ok := err.(*huberr.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch he.Kind {
	case huberr.KindValidation:
		status = http.StatusBadRequest
	case huberr.KindAuth:
		status = http.StatusUnauthorized
	case huberr.KindCapacity:
		status = http.StatusServiceUnavailable
	case huberr.KindNotFound:
		status = http.StatusNotFound
	case huberr.KindConfig:
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": he.Kind.String(), "message": he.Message})
}

// handleIngest is the normative ingress endpoint: POST a RiskFingerprint,
// run the full hub orchestrator choreography, return the ack.
func (h *Handler) handleIngest(c *gin.Context) {
	var fp models.RiskFingerprint
	if err := c.ShouldBindJSON(&fp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request body"})
		return
	}

	ack, err := h.hub.Ingest(fp, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ack)
}

// handleListAdvisories is the normative egress poll endpoint.
// GET /api/v1/advisories?limit=&severity=
func (h *Handler) handleListAdvisories(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	severity := strings.ToUpper(c.Query("severity"))

	advisories := h.hub.Advisories(limit, severity)
	c.JSON(http.StatusOK, gin.H{"advisories": advisories, "count": len(advisories)})
}

func (h *Handler) handlePatternHistory(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	lookback := parseLookback(c, defaultPatternLookback)
	c.JSON(http.StatusOK, h.hub.PatternHistory(fingerprint, lookback, time.Now()))
}

func (h *Handler) handleEntityActivity(c *gin.Context) {
	entityID := c.Param("id")
	lookback := parseLookback(c, defaultPatternLookback)
	c.JSON(http.StatusOK, h.hub.EntityActivity(entityID, lookback, time.Now()))
}

func (h *Handler) handleGraphStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GraphStats(time.Now()))
}

func (h *Handler) handleMetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.MetricsSummary(time.Now()))
}

// handleGraphPatterns dumps per-pattern node details for every pattern
// named in the query string (?fingerprint=a&fingerprint=b). Unknown names
// are skipped; if none are named, the list is empty.
func (h *Handler) handleGraphPatterns(c *gin.Context) {
	now := time.Now()
	fingerprints := c.QueryArray("fingerprint")

	details := make([]*models.PatternDetails, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if d := h.hub.PatternDetails(fp, now); d != nil {
			details = append(details, d)
		}
	}
	c.JSON(http.StatusOK, gin.H{"patterns": details, "count": len(details)})
}

// handleGraphEntities dumps the entities active within the lookback window.
func (h *Handler) handleGraphEntities(c *gin.Context) {
	lookback := parseLookback(c, time.Hour)
	entities := h.hub.ActiveEntities(lookback, time.Now())
	c.JSON(http.StatusOK, gin.H{"entities": entities, "count": len(entities)})
}

// handleUpdateConfig validates and atomically swaps in a new runtime
// configuration. Rejected updates retain the prior config untouched.
func (h *Handler) handleUpdateConfig(c *gin.Context) {
	var cfg hubconfig.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid config body"})
		return
	}

	if err := h.hub.UpdateConfig(&cfg); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "config_updated"})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.HealthStatus(time.Now()))
}

func (h *Handler) handleListWebhooks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"webhooks": h.hub.Webhooks().Endpoints()})
}

func (h *Handler) handleRegisterWebhook(c *gin.Context) {
	var req struct {
		Name        string            `json:"name"`
		URL         string            `json:"url"`
		MinSeverity string            `json:"min_severity"`
		Headers     map[string]string `json:"headers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "url is required"})
		return
	}
	if req.MinSeverity == "" {
		req.MinSeverity = "MEDIUM"
	}

	id := h.hub.Webhooks().Register(req.Name, req.URL, strings.ToUpper(req.MinSeverity), req.Headers)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) handleUnregisterWebhook(c *gin.Context) {
	h.hub.Webhooks().Unregister(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}

func parseLookback(c *gin.Context, fallback time.Duration) time.Duration {
	if raw := c.Query("lookback_seconds"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
