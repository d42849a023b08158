package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nettrail/ipstory/common/config"
	"github.com/nettrail/ipstory/common/db"
	"github.com/nettrail/ipstory/common/logger"
	rediscommon "github.com/nettrail/ipstory/common/redis"
	"github.com/nettrail/ipstory/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for the service
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
		"storage", components.Config.Storage.Backend,
	)

	// 3. Initialize the configured storage backend (if not skipped)
	if !options.skipStorage {
		switch components.Config.Storage.Backend {
		case config.BackendRedis:
			components.Logger.Info("connecting to redis", "addr", components.Config.RedisAddr())
			raw := goredis.NewClient(&goredis.Options{
				Addr:     components.Config.RedisAddr(),
				Password: components.Config.Redis.Password,
				DB:       components.Config.Redis.DB,
			})
			client := rediscommon.NewClient(raw, components.Logger)
			if err := client.Ping(ctx); err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			components.Redis = client

			components.addCleanup(func() error {
				components.Logger.Info("closing redis connection")
				return client.Close()
			})

		case config.BackendPostgres:
			components.Logger.Info("connecting to database")
			components.DB, err = db.New(ctx, components.Config, components.Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			components.addCleanup(func() error {
				components.Logger.Info("closing database connection")
				components.DB.Close()
				return nil
			})

			// Run DB init hook if provided
			if options.dbInitHook != nil {
				components.Logger.Info("running database init hook")
				if err := options.dbInitHook(components.DB); err != nil {
					components.Shutdown(ctx)
					return nil, fmt.Errorf("database init hook failed: %w", err)
				}
			}

		case config.BackendMemory:
			components.Logger.Warn("memory storage backend: stories will not survive restarts")
		}
	}

	// 4. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"redis", components.Redis != nil,
		"db", components.DB != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful when the service can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
