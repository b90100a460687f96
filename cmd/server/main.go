package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/mlefevre/boutique-api/internal/config"
	"github.com/mlefevre/boutique-api/internal/database"
	"github.com/mlefevre/boutique-api/internal/handler"
	"github.com/mlefevre/boutique-api/internal/logging"
	"github.com/mlefevre/boutique-api/internal/queue"
	"github.com/mlefevre/boutique-api/internal/repository"
	"github.com/mlefevre/boutique-api/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	l := logging.New(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(l) // handlers pick this up via logging.FromContext
	cfg := config.Load()
	cfg.Warn(l)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		l.Error("opening database failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		l.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if cfg.SeedOnStart {
		if err := database.Seed(context.Background(), db, cfg.BcryptCost); err != nil {
			l.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	productHandler := handler.NewProductHandler(products)

	rdb := config.NewRedisClient()
	if rdb == nil {
		l.Warn("redis unreachable; response caching disabled")
	}

	// Optional broker-backed audit trail of session events.
	if os.Getenv("AUTH_EVENTS_LOG") == "true" {
		go func() {
			if err := queue.StartAuthEventConsumer(); err != nil {
				l.Error("auth event consumer stopped", "error", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		// Attach a request-scoped logger so repositories and handlers log
		// with method/path context.
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), l.With("method", req.Method, "path", req.URL.Path))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})
	e.HTTPErrorHandler = errorHandler(l)

	router.Register(e, authHandler, productHandler, config.LoadCacheConfig(), rdb)

	addr := ":" + cfg.Port
	l.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		l.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// errorHandler is the fallback for anything handlers did not map
// themselves: echo HTTP errors keep their status, everything else becomes
// a generic 500 with the details logged, never sent to the client.
func errorHandler(l *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, echo.Map{"error": he.Message})
			return
		}
		l.Error("unhandled error", "path", c.Path(), "error", err)
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected server error"})
	}
}
