package config

import (
	"context"
	"time"

	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/profile"
	"github.com/spf13/pflag"
)

// Provider defines the interface for accessing configuration values
// All configuration values are immutable after loading; a Watcher hands
// out a fresh Provider on every change
type Provider interface {
	// GetLogLevel returns the configured logging level
	GetLogLevel() logger.LogLevel

	// GetRoot returns the prefix under which sysfs and /dev are found
	GetRoot() string

	// GetSocket returns the control socket path
	GetSocket() string

	// GetPIDFile returns the PID file path, empty when disabled
	GetPIDFile() string

	// GetDefaultProfile returns the profile applied at startup
	GetDefaultProfile() profile.ID

	// GetInteractionPolicy returns what an interaction hint does
	GetInteractionPolicy() power.InteractionPolicy

	// GetHintIntervals returns the minimum spacing per hint kind
	GetHintIntervals() map[hint.Kind]time.Duration

	// GetInputs returns the names of input devices gated by interactivity
	GetInputs() []string

	// GetBootBoost returns how long to boost after startup, zero when disabled
	GetBootBoost() time.Duration

	// IsFtraceEnabled returns whether interaction hints write a trace marker
	IsFtraceEnabled() bool

	// GetMetrics returns the event journal configuration
	GetMetrics() metrics.Config
}

// Watcher enables live configuration updates
type Watcher interface {
	// Watch starts watching for configuration changes
	// The callback is called when configuration changes are detected
	Watch(ctx context.Context, callback func(Provider)) error
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	flags      *pflag.FlagSet
	logger     logger.Logger
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "POWERHALD"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithFlags binds a flag set prepared by RegisterFlags
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *options) error {
		o.flags = fs
		return nil
	}
}

// WithLogger sets where reload failures are reported
func WithLogger(log logger.Logger) Option {
	return func(o *options) error {
		o.logger = log
		return nil
	}
}
