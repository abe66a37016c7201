// Package handler exposes the login/logout/heartbeat event triggers over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	sessiondomain "presence-tracker/internal/session/domain"
	"presence-tracker/internal/telemetry"
)

// Service is the slice of the tracking service the event endpoints need.
type Service interface {
	RecordLogin(ctx context.Context, userID, deviceHint, ipAddress string) (*sessiondomain.Session, error)
	RecordLogout(ctx context.Context, userID string) error
	Heartbeat(ctx context.Context, userID string) error
}

type Handler struct {
	svc     Service
	emitter telemetry.EventEmitter
	logger  zerolog.Logger
}

func NewHandler(svc Service, emitter telemetry.EventEmitter, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, emitter: emitter, logger: logger}
}

// RegisterRoutes mounts the event triggers. The caller is expected to have
// attached auth middleware to rg already.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events/login", h.Login)
	rg.POST("/events/logout", h.Logout)
	rg.POST("/events/heartbeat", h.Heartbeat)
}

type eventRequest struct {
	UserID     string `json:"userId"`
	DeviceHint string `json:"deviceHint"`
	IPAddress  string `json:"ipAddress"`
}

func (h *Handler) Login(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ip := req.IPAddress
	if ip == "" {
		ip = c.ClientIP()
	}

	sess, err := h.svc.RecordLogin(c.Request.Context(), req.UserID, req.DeviceHint, ip)
	if err != nil {
		h.fail(c, "login", req.UserID, err)
		return
	}

	telemetry.EmitAsync(h.emitter, c.Request.Context(), &telemetry.Event{
		EventType: telemetry.EventLogin,
		UserID:    sess.UserID,
		Device:    string(sess.DeviceType),
		IPAddress: sess.IPAddress,
		Source:    "presence-tracker",
		CreatedAt: sess.LoginAt,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "accepted",
		"sessionId": sess.ID,
		"device":    string(sess.DeviceType),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.RecordLogout(c.Request.Context(), req.UserID); err != nil {
		h.fail(c, "logout", req.UserID, err)
		return
	}

	telemetry.EmitAsync(h.emitter, c.Request.Context(), &telemetry.Event{
		EventType: telemetry.EventLogout,
		UserID:    req.UserID,
		Source:    "presence-tracker",
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) Heartbeat(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.Heartbeat(c.Request.Context(), req.UserID); err != nil {
		h.fail(c, "heartbeat", req.UserID, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// fail maps service errors onto the response taxonomy: malformed identifiers
// are the caller's fault, everything else means the store is unreachable.
func (h *Handler) fail(c *gin.Context, op, userID string, err error) {
	if errors.Is(err, sessiondomain.ErrInvalidUserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}
	h.logger.Error().Err(err).Str("op", op).Str("user_id", userID).Msg("event rejected")
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
}
