// Package router registers the HTTP API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/handler"
	"github.com/iliyamo/handoff-wait/internal/middleware"
)

// Handlers bundles everything the routes call into.
type Handlers struct {
	Display  *handler.DisplayHandler
	Settings *handler.SettingsHandler
	Scans    *handler.ScanHandler
	Tickets  *handler.TicketHandler
	DB       handler.Pinger
}

// RegisterRoutes registers the health checks.  /healthz only says the process
// is up; /readyz also checks the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the unauthenticated read routes: the display
// board, ticket lookups and printable cards.  Responses that are the same
// for every caller go through the redis cache.
func RegisterPublic(e *echo.Echo, h Handlers, cache config.CacheConfig, rdb *redis.Client) {
	e.GET("/v1/display", h.Display.GetDisplay, middleware.NewRedisCache(cache, cache.TTL, rdb))
	e.GET("/v1/tickets/:token/status", h.Tickets.GetStatus)

	cards := e.Group("/v1/cards")
	cards.GET("", handler.ListCards)
	cards.GET("/:token/qr.png", handler.CardQR, middleware.NewRedisCache(cache, cache.ImageTTL, rdb))
}

// RegisterStation registers the routes used by scan stations and the
// operator panel.  Scans are rate limited per station.
func RegisterStation(e *echo.Echo, h Handlers, rl config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/v1/scans", h.Scans.PostScan, middleware.NewTokenBucket(rl, rdb))

	s := e.Group("/v1/settings")
	s.GET("", h.Settings.GetSettings)
	s.PATCH("", h.Settings.PatchSettings)
	s.POST("/display/on", h.Settings.DisplayOn)
	s.POST("/display/off", h.Settings.DisplayOff)
	s.DELETE("/manual", h.Settings.ClearManual)
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, cache config.CacheConfig, rl config.RateLimitConfig, rdb *redis.Client) {
	RegisterRoutes(e, h.DB)
	RegisterPublic(e, h, cache, rdb)
	RegisterStation(e, h, rl, rdb)
}
