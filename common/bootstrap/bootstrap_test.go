package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettrail/ipstory/common/config"
	"github.com/nettrail/ipstory/common/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{
			Name:      "ipstory",
			Port:      8080,
			LogLevel:  "error",
			LogFormat: "json",
		},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
	}
}

func TestSetupWithMemoryBackend(t *testing.T) {
	ctx := context.Background()

	components, err := Setup(ctx, "ipstory",
		WithCustomConfig(memoryConfig()),
		WithCustomLogger(logger.New("error", "json")),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.Nil(t, components.Redis)
	assert.Nil(t, components.DB)
	assert.Nil(t, components.Telemetry)

	// No backing stores means nothing to fail
	assert.NoError(t, components.Health(ctx))
	assert.NoError(t, components.Shutdown(ctx))
}

func TestSetupWithoutStorage(t *testing.T) {
	ctx := context.Background()

	// Redis backend configured, but storage init skipped: no
	// connection is attempted
	cfg := memoryConfig()
	cfg.Storage.Backend = config.BackendRedis
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	components, err := Setup(ctx, "ipstory",
		WithCustomConfig(cfg),
		WithoutStorage(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	assert.Nil(t, components.Redis)
	assert.NoError(t, components.Shutdown(ctx))
}

func TestMustSetupPanicsOnUnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = config.BackendRedis
	// Port 1 is never listening
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	require.Panics(t, func() {
		MustSetup(context.Background(), "ipstory", WithCustomConfig(cfg), WithoutTelemetry())
	})
}
