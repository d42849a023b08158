package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nettrail/ipstory/cmd/ipstory/container"
	"github.com/nettrail/ipstory/cmd/ipstory/repository"
	"github.com/nettrail/ipstory/cmd/ipstory/routes"
	"github.com/nettrail/ipstory/common/bootstrap"
	"github.com/nettrail/ipstory/common/server"
	"github.com/nettrail/ipstory/common/telemetry"
	"github.com/nettrail/ipstory/web"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, storage backend, telemetry)
	components, err := bootstrap.Setup(ctx, "ipstory",
		bootstrap.WithDBInitHook(repository.EnsureSchema),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap ipstory: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	if components.Telemetry != nil {
		e.Use(requestTiming(components.Telemetry))
	}
	setupHealthCheck(e, components)
	routes.RegisterStoryRoutes(e, serviceContainer)
	setupFrontend(e)

	// Start server with graceful shutdown
	srv := server.New("ipstory", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// requestTiming records per-route request durations
func requestTiming(tel *telemetry.Telemetry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer tel.RecordDuration(c.Request().Method+" "+c.Path(), time.Now())
			return next(c)
		}
	}
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "ipstory",
		})
	})
}

// setupFrontend serves the embedded frontend, delegating page routing
// to the client by falling back to index.html
func setupFrontend(e *echo.Echo) {
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Filesystem: http.FS(web.Assets()),
		HTML5:      true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/api") ||
				strings.HasPrefix(path, "/openapi") ||
				path == "/health"
		},
	}))
}
