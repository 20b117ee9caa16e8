package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
	"charge-gateway/internal/respond"
	"charge-gateway/internal/storage"
	"charge-gateway/internal/validation"
)

const (
	defaultAttemptsLimit = 50
	maxAttemptsLimit     = 200
)

// Pinger reports reachability of an optional dependency. Satisfied by
// *redis.KeySource; nil means the dependency is not configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetaHandler serves the endpoints that read service state without touching
// the processor: health, the supported-country list and the attempt trail.
type MetaHandler struct {
	validator         *validation.Validator
	store             storage.Store
	keys              Pinger
	eventsMockMode    bool
	webhookConfigured bool
	log               *logger.Logger
}

func NewMetaHandler(validator *validation.Validator, store storage.Store, keys Pinger, eventsMockMode, webhookConfigured bool, log *logger.Logger) *MetaHandler {
	return &MetaHandler{
		validator:         validator,
		store:             store,
		keys:              keys,
		eventsMockMode:    eventsMockMode,
		webhookConfigured: webhookConfigured,
		log:               log,
	}
}

// Health handles GET /health.
func (h *MetaHandler) Health(c *gin.Context) {
	storeStatus := "ok"
	if err := h.store.Ping(c.Request.Context()); err != nil {
		storeStatus = "unreachable"
	}

	redisStatus := "disabled"
	if h.keys != nil {
		redisStatus = "ok"
		if err := h.keys.Ping(c.Request.Context()); err != nil {
			redisStatus = "unreachable"
		}
	}

	eventsStatus := "kafka"
	if h.eventsMockMode {
		eventsStatus = "mock"
	}

	webhookStatus := "configured"
	if !h.webhookConfigured {
		webhookStatus = "disabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "charge-gateway",
		"version":   "1.0.0",
		"dependencies": gin.H{
			"processor": "configured",
			"store":     storeStatus,
			"redis":     redisStatus,
			"events":    eventsStatus,
			"webhook":   webhookStatus,
		},
	})
}

// Countries handles GET /api/countries.
func (h *MetaHandler) Countries(c *gin.Context) {
	countries := h.validator.SupportedCountries()
	c.JSON(http.StatusOK, models.CountriesResponse{
		Success:   true,
		Countries: countries,
		Count:     len(countries),
	})
}

// Attempts handles GET /api/attempts. Most recent first, optionally filtered
// by status.
func (h *MetaHandler) Attempts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAttemptsLimit)))
	if err != nil || limit < 1 {
		limit = defaultAttemptsLimit
	}
	if limit > maxAttemptsLimit {
		limit = maxAttemptsLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	status := models.ChargeStatus(c.Query("status"))

	attempts, err := h.store.ListAttempts(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.log.Error("HANDLER", fmt.Sprintf("Failed to list attempts: %v", err))
		c.JSON(http.StatusInternalServerError, respond.Error("failed to list charge attempts", "", "internal_error"))
		return
	}
	if attempts == nil {
		attempts = []*models.ChargeAttempt{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"attempts": attempts,
		"count":    len(attempts),
	})
}
