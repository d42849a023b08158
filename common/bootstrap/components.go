package bootstrap

import (
	"context"
	"fmt"

	"github.com/nettrail/ipstory/common/config"
	"github.com/nettrail/ipstory/common/db"
	"github.com/nettrail/ipstory/common/logger"
	rediscommon "github.com/nettrail/ipstory/common/redis"
	"github.com/nettrail/ipstory/common/telemetry"
)

// Components holds all initialized service dependencies. Exactly one of
// Redis and DB is set, matching the configured storage backend; both
// stay nil for the memory backend.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     *rediscommon.Client
	DB        *db.DB
	Telemetry *telemetry.Telemetry

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components
func (c *Components) Health(ctx context.Context) error {
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}

	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
