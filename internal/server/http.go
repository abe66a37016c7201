// Package server assembles the HTTP surface of the presence tracker.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	healthhandler "presence-tracker/internal/health/handler"
	"presence-tracker/internal/security"
	"presence-tracker/internal/server/middleware"
	statshandler "presence-tracker/internal/stats/handler"
	"presence-tracker/internal/telemetry"
	trackinghandler "presence-tracker/internal/tracking/handler"
)

// Deps holds the dependencies the HTTP routes are built from.
type Deps struct {
	// Tracking serves the login/logout/heartbeat event triggers.
	Tracking trackinghandler.Service
	// Stats serves the polled snapshot.
	Stats statshandler.Service
	// Emitter receives telemetry events for accepted triggers. May be nil.
	Emitter telemetry.EventEmitter
	// Pinger backs the readiness probe (e.g. *sqlx.DB). May be nil.
	Pinger healthhandler.Pinger
	// Tokens validates bearer tokens on the event triggers. If nil the
	// shared stats key guards them instead.
	Tokens *security.TokenProvider
	// StatsKey is the shared secret for GET /stats.
	StatsKey string
	// IdleThreshold is the staleness bound used by the pre-read sweep.
	IdleThreshold time.Duration
	Logger        zerolog.Logger
}

// Route map:
//   - GET  /healthz, /readyz       → internal/health/handler (unauthenticated)
//   - GET  /stats                  → internal/stats/handler  (stats key)
//   - POST /events/{login,logout,heartbeat} → internal/tracking/handler (service token)
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog(deps.Logger))
	r.Use(otelgin.Middleware("presence-tracker"))

	healthhandler.NewHandler(deps.Pinger).RegisterRoutes(r)

	stats := r.Group("/", middleware.StatsKeyAuth(deps.StatsKey))
	statshandler.NewHandler(deps.Stats, deps.IdleThreshold, deps.Logger).RegisterRoutes(stats)

	events := r.Group("/", middleware.EventAuth(deps.Tokens, deps.StatsKey))
	trackinghandler.NewHandler(deps.Tracking, deps.Emitter, deps.Logger).RegisterRoutes(events)

	return r
}
