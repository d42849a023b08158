package bootstrap

import (
	"github.com/nettrail/ipstory/common/config"
	"github.com/nettrail/ipstory/common/db"
	"github.com/nettrail/ipstory/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStorage   bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	dbInitHook    func(*db.DB) error
}

func defaultOptions() *options {
	return &options{}
}

// WithoutStorage skips storage backend initialization
func WithoutStorage() Option {
	return func(o *options) {
		o.skipStorage = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithDBInitHook runs a custom function after the database backend is
// initialized. Useful for creating schema on startup.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}
