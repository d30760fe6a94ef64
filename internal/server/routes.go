package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	// Prometheus scrapes without the API key.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.Use(SetJSONContentType)
	v1.Use(SetNoCacheHeaders)
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1.GET("/health", h.Health)
	v1.GET("/route", h.Route)
	v1.POST("/plan", h.Plan)

	// Execution, requires a wallet
	v1.POST("/swap", h.Swap)
	v1.POST("/buy", h.Buy)
	v1.POST("/sell", h.Sell)
	v1.POST("/zap/buy", h.ZapBuy)
	v1.POST("/zap/sell", h.ZapSell)

	v1.GET("/bond/:token", h.Bond)
	v1.GET("/price/:token", h.Price)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/curve", h.Curve)
	v1.GET("/risk", h.Risk)

	tokens := v1.Group("/tokens")
	tokens.GET("", h.TokensList)
	tokens.GET("/:address", h.TokensGet)
	tokens.PUT("/:address", h.TokensPut)

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/intent", h.AIIntent)
	aigroup.POST("/ask", h.AIAsk)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
