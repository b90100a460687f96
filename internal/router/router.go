// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mlefevre/boutique-api/internal/config"
	"github.com/mlefevre/boutique-api/internal/handler"
	"github.com/mlefevre/boutique-api/internal/middleware"
)

// Register sets up all application routes. Auth endpoints live under
// /auth; /me and /products require a valid access token. The product
// listing additionally goes through the Redis response cache, keyed on the
// full query string, so identical listing requests are served without
// touching the database.
func Register(e *echo.Echo, a *handler.AuthHandler, p *handler.ProductHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/health", handler.Health)

	auth := e.Group("/auth")
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/logout", a.Logout)

	protected := e.Group("", middleware.JWTAuth(a.Cfg.JWTSecret))
	protected.GET("/me", a.Me)
	protected.GET("/products", p.List, middleware.NewRedisCache(cacheCfg, rdb))
}
