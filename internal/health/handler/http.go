// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing store is reachable (e.g. *sqlx.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

type Handler struct {
	pinger Pinger
}

// NewHandler returns a health handler. pinger may be nil, in which case
// readiness skips the store check.
func NewHandler(pinger Pinger) *Handler {
	return &Handler{pinger: pinger}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Live)
	r.GET("/readyz", h.Ready)
}

// Live reports process liveness only.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can serve traffic: the store must answer
// a ping within the timeout.
func (h *Handler) Ready(c *gin.Context) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "store unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
