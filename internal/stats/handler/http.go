// Package handler serves the polled stats snapshot.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	statsdomain "presence-tracker/internal/stats/domain"
)

// Service is the slice of the tracking service the stats endpoint needs.
type Service interface {
	ExpireInactive(ctx context.Context, threshold time.Duration) (int64, error)
	GetStats(ctx context.Context) (*statsdomain.Snapshot, error)
}

type Handler struct {
	svc           Service
	idleThreshold time.Duration
	logger        zerolog.Logger
}

func NewHandler(svc Service, idleThreshold time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, idleThreshold: idleThreshold, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
}

// GetStats runs one expiry sweep before reading so a poller never sees
// sessions that went stale since the last scheduled sweep. The sweep is
// best-effort: if it fails the read itself decides whether to fail.
func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.svc.ExpireInactive(ctx, h.idleThreshold); err != nil {
		h.logger.Warn().Err(err).Msg("pre-read expiry sweep failed")
	}

	snap, err := h.svc.GetStats(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("stats read failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
