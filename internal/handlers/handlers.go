// Package handlers contains the HTTP API surface.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"vibesense-service/internal/cache"
	"vibesense-service/internal/metrics"
	"vibesense-service/internal/models"
	"vibesense-service/internal/service"
	"vibesense-service/internal/stabilizer"
	"vibesense-service/internal/store"
	"vibesense-service/internal/stream"
	"vibesense-service/internal/suggest"
)

// Handler carries the dependencies for all HTTP handlers. The cache and
// publisher may be nil; the service then runs without them.
type Handler struct {
	service   *service.Service
	suggester *suggest.Service
	prefs     *store.PreferencesStore
	cache     *cache.ReadingCache
	publisher *stream.Publisher
	logger    *zap.Logger
	startTime time.Time
}

// New wires up a handler set.
func New(
	svc *service.Service,
	suggester *suggest.Service,
	prefs *store.PreferencesStore,
	readingCache *cache.ReadingCache,
	publisher *stream.Publisher,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:   svc,
		suggester: suggester,
		prefs:     prefs,
		cache:     readingCache,
		publisher: publisher,
		logger:    logger,
		startTime: time.Now(),
	}
}

// validRate rejects non-finite and non-positive rates at the edge; the
// stabilizer assumes valid input.
func validRate(bpm float64) bool {
	return !math.IsNaN(bpm) && !math.IsInf(bpm, 0) && bpm > 0
}

// IngestHandler handles POST /ingest.
func (h *Handler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/ingest", r.Method))
	defer timer.ObserveDuration()

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "400").Inc()
		return
	}

	if !validRate(req.BPM) {
		h.respondError(w, "bpm must be a positive, finite number", http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "400").Inc()
		return
	}

	state, suggestion, _ := h.ingestOne(req)

	metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{
		"status":     "ok",
		"state":      state,
		"suggestion": suggestion,
	}, http.StatusOK)
}

// ingestOne runs one sample through the core and the side channels.
func (h *Handler) ingestOne(req models.IngestRequest) (models.StableReading, suggest.Suggestion, stabilizer.Verdict) {
	metrics.SamplesReceived.Inc()

	start := time.Now()
	state, verdict := h.service.Ingest(req)
	metrics.IngestLatency.Observe(time.Since(start).Seconds())
	metrics.ActiveUsers.Set(float64(h.service.ActiveUsers()))

	if verdict == stabilizer.Published {
		metrics.ReadingsPublished.Inc()
		metrics.SmoothedBPM.Set(state.BPM)

		if h.cache != nil {
			if err := h.cache.SaveReading(state); err != nil {
				metrics.CacheMisses.Inc()
				h.logger.Warn("failed to cache reading", zap.Error(err))
			} else {
				metrics.CacheHits.Inc()
				_, _ = h.cache.IncrementCounter("publish:total")
			}
		}
		if h.publisher != nil {
			if err := h.publisher.PublishReading(state); err != nil {
				h.logger.Warn("failed to publish reading event", zap.Error(err))
			}
		}
	} else {
		metrics.SamplesSuppressed.WithLabelValues(verdict.String()).Inc()
	}

	if h.cache != nil {
		_, _ = h.cache.IncrementCounter("samples:total")
	}

	return state, h.suggester.Suggest(state), verdict
}

// IngestBatchHandler handles POST /ingest/batch.
func (h *Handler) IngestBatchHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/ingest/batch", r.Method))
	defer timer.ObserveDuration()

	var batch models.IngestBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest/batch", r.Method, "400").Inc()
		return
	}

	states := make([]models.StableReading, 0, len(batch.Samples))
	published := 0
	for _, req := range batch.Samples {
		if !validRate(req.BPM) {
			continue
		}
		state, _, verdict := h.ingestOne(req)
		states = append(states, state)
		if verdict == stabilizer.Published {
			published++
		}
	}

	metrics.RequestsTotal.WithLabelValues("/ingest/batch", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{
		"processed": len(states),
		"published": published,
		"states":    states,
	}, http.StatusOK)
}

// LatestHandler handles GET /state/latest.
func (h *Handler) LatestHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/state/latest", r.Method))
	defer timer.ObserveDuration()

	userID := r.URL.Query().Get("user_id")
	state := h.service.Latest(userID)
	if state == nil {
		h.respondError(w, "no heart data available for that user", http.StatusNotFound)
		metrics.RequestsTotal.WithLabelValues("/state/latest", r.Method, "404").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/state/latest", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{"status": "ok", "state": state}, http.StatusOK)
}

// RecentHandler handles GET /state/recent, served from the Redis cache.
func (h *Handler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/state/recent", r.Method))
	defer timer.ObserveDuration()

	if h.cache == nil {
		h.respondError(w, "cache not available", http.StatusServiceUnavailable)
		metrics.RequestsTotal.WithLabelValues("/state/recent", r.Method, "503").Inc()
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = models.DefaultUser
	}
	count := int64(20)
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.ParseInt(countStr, 10, 64); err == nil && c > 0 && c <= cache.RecentLimit {
			count = c
		}
	}

	readings, err := h.cache.RecentReadings(userID, count)
	if err != nil {
		h.respondError(w, "failed to get recent readings: "+err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/state/recent", r.Method, "500").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/state/recent", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{"status": "ok", "readings": readings}, http.StatusOK)
}

// SuggestionHandler handles GET /suggestion: derives a suggestion on demand
// from the latest stable reading.
func (h *Handler) SuggestionHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/suggestion", r.Method))
	defer timer.ObserveDuration()

	userID := r.URL.Query().Get("user_id")
	state := h.service.Latest(userID)
	if state == nil {
		h.respondError(w, "no heart data available for that user", http.StatusNotFound)
		metrics.RequestsTotal.WithLabelValues("/suggestion", r.Method, "404").Inc()
		return
	}

	suggestion := h.suggester.Suggest(*state)
	metrics.RequestsTotal.WithLabelValues("/suggestion", r.Method, "200").Inc()
	h.respondJSON(w, suggestion, http.StatusOK)
}

// preferencesRequest is the body of POST /preferences.
type preferencesRequest struct {
	UserID string `json:"user_id,omitempty"`
	store.Preferences
}

// UpdatePreferencesHandler handles POST /preferences.
func (h *Handler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/preferences", r.Method))
	defer timer.ObserveDuration()

	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "400").Inc()
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = models.DefaultUser
	}
	if err := h.prefs.Set(userID, req.Preferences); err != nil {
		h.respondError(w, "failed to save preferences: "+err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "500").Inc()
		return
	}

	saved, err := h.prefs.Get(userID)
	if err != nil {
		h.respondError(w, "failed to load preferences: "+err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "500").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{
		"status":      "ok",
		"user_id":     userID,
		"preferences": saved,
	}, http.StatusOK)
}

// GetPreferencesHandler handles GET /preferences.
func (h *Handler) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/preferences", r.Method))
	defer timer.ObserveDuration()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = models.DefaultUser
	}

	prefs, err := h.prefs.Get(userID)
	if err != nil {
		h.respondError(w, "failed to load preferences: "+err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "500").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/preferences", r.Method, "200").Inc()
	h.respondJSON(w, map[string]interface{}{
		"status":      "ok",
		"user_id":     userID,
		"preferences": prefs,
	}, http.StatusOK)
}

// resetRequest is the body of POST /state/reset.
type resetRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// ResetHandler handles POST /state/reset: discards a user's stabilizer and
// repository state so the next ingest bootstraps again.
func (h *Handler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/state/reset", r.Method))
	defer timer.ObserveDuration()

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/state/reset", r.Method, "400").Inc()
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = models.DefaultUser
	}
	h.service.Reset(userID)
	h.suggester.Reset(userID)
	metrics.ActiveUsers.Set(float64(h.service.ActiveUsers()))

	metrics.RequestsTotal.WithLabelValues("/state/reset", r.Method, "200").Inc()
	h.respondJSON(w, map[string]string{"status": "ok", "user_id": userID}, http.StatusOK)
}

// HealthHandler handles GET /health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping() == nil {
		redisStatus = "connected"
	}
	natsStatus := "disconnected"
	if h.publisher != nil && h.publisher.Connected() {
		natsStatus = "connected"
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Nats:      natsStatus,
		Uptime:    time.Since(h.startTime).String(),
	}
	h.respondJSON(w, status, http.StatusOK)
}

// StatsHandler handles GET /stats.
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/stats", r.Method))
	defer timer.ObserveDuration()

	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	var totalSamples, totalPublished int64
	if h.cache != nil {
		totalSamples, _ = h.cache.GetCounter("samples:total")
		totalPublished, _ = h.cache.GetCounter("publish:total")
	}

	response := models.StatsResponse{
		TotalSamples:   totalSamples,
		TotalPublished: totalPublished,
		ActiveUsers:    h.service.ActiveUsers(),
	}

	metrics.RequestsTotal.WithLabelValues("/stats", r.Method, "200").Inc()
	h.respondJSON(w, response, http.StatusOK)
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
