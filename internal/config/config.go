package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/profile"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "POWERHALD"
	DefaultConfigName = "powerhald"
	DefaultConfigDir  = "/etc"
	DefaultLogLevel   = "info"
	DefaultRoot       = "/"
	DefaultSocket     = "/run/powerhald.sock"
	DefaultPIDFile    = "/run/powerhald.pid"
	DefaultProfile    = "balanced"
	DefaultInput      = "elan-touchscreen"
)

const (
	keyLogLevel            = "log_level"
	keyRoot                = "root"
	keySocket              = "socket"
	keyPIDFile             = "pid_file"
	keyDefaultProfile      = "default_profile"
	keyInteractionPolicy   = "interaction_policy"
	keyHintIntervals       = "hint_intervals"
	keyInputs              = "inputs"
	keyBootBoost           = "boot_boost"
	keyFtrace              = "ftrace"
	keyMetricsEnabled      = "metrics.enabled"
	keyMetricsDBPath       = "metrics.db_path"
	keyMetricsBatchSize    = "metrics.batch_size"
	keyMetricsBatchTimeout = "metrics.batch_timeout"
)

// flagKeys maps flag names to the keys they override.
var flagKeys = map[string]string{
	"log-level":          keyLogLevel,
	"root":               keyRoot,
	"socket":             keySocket,
	"pid-file":           keyPIDFile,
	"profile":            keyDefaultProfile,
	"interaction-policy": keyInteractionPolicy,
	"boot-boost":         keyBootBoost,
	"ftrace":             keyFtrace,
	"metrics":            keyMetricsEnabled,
}

// Config is one validated snapshot of the configuration.
type Config struct {
	LogLevel          logger.LogLevel
	Root              string
	Socket            string
	PIDFile           string
	DefaultProfile    profile.ID
	InteractionPolicy power.InteractionPolicy
	HintIntervals     map[hint.Kind]time.Duration
	Inputs            []string
	BootBoost         time.Duration
	Ftrace            bool
	Metrics           metrics.Config

	v      *viper.Viper
	logger logger.Logger
	mu     sync.Mutex
}

// RegisterFlags defines the flags Load binds when given WithFlags.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("root", DefaultRoot, "Filesystem prefix for sysfs and /dev")
	fs.String("socket", DefaultSocket, "Control socket path")
	fs.String("pid-file", DefaultPIDFile, "PID file path, empty to disable")
	fs.String("profile", DefaultProfile, "Power profile applied at startup")
	fs.String("interaction-policy", string(power.PolicyNone), "Interaction hint policy (none, floor)")
	fs.Duration("boot-boost", 0, "Hold max frequency for this long after startup")
	fs.Bool("ftrace", false, "Write an ftrace marker on interaction hints")
	fs.Bool("metrics", false, "Record events to the journal database")
}

func setDefaults(v *viper.Viper) {
	defaults := metrics.DefaultConfig()

	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyRoot, DefaultRoot)
	v.SetDefault(keySocket, DefaultSocket)
	v.SetDefault(keyPIDFile, DefaultPIDFile)
	v.SetDefault(keyDefaultProfile, DefaultProfile)
	v.SetDefault(keyInteractionPolicy, string(power.PolicyNone))
	v.SetDefault(keyHintIntervals, map[string]any{})
	v.SetDefault(keyInputs, []string{DefaultInput})
	v.SetDefault(keyBootBoost, "0s")
	v.SetDefault(keyFtrace, false)
	v.SetDefault(keyMetricsEnabled, defaults.Enabled)
	v.SetDefault(keyMetricsDBPath, defaults.DBPath)
	v.SetDefault(keyMetricsBatchSize, defaults.BatchSize)
	v.SetDefault(keyMetricsBatchTimeout, defaults.BatchTimeout.String())
}

// Load reads defaults, the config file, POWERHALD_* environment
// variables and changed flags, in increasing precedence. A missing
// default config file is not an error; a missing explicit one is.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: DefaultEnvPrefix,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(errors.ErrTimeout, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.flags != nil {
		for name, key := range flagKeys {
			flag := o.flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	path := resolveConfigPath(o)
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(DefaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.logger = o.logger

	return cfg, nil
}

func resolveConfigPath(o *options) string {
	if o.configPath != "" {
		return o.configPath
	}
	if o.flags != nil {
		if flag := o.flags.Lookup("config"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	return os.Getenv(o.envPrefix + "_CONFIG")
}

func decode(v *viper.Viper) (*Config, error) {
	errFactory := errors.New()

	level, err := logger.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return nil, err
	}

	root := v.GetString(keyRoot)
	if root == "" {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, invalid(keyRoot, root))
	}

	socket := v.GetString(keySocket)
	if socket == "" {
		return nil, errFactory.WithData(errors.ErrMissingConfig, keySocket)
	}

	id, err := profile.ParseID(v.GetString(keyDefaultProfile))
	if err != nil {
		return nil, err
	}

	policy, err := power.ParsePolicy(v.GetString(keyInteractionPolicy))
	if err != nil {
		return nil, err
	}

	intervals, err := hintIntervals(v)
	if err != nil {
		return nil, err
	}

	bootBoost, err := duration(v, keyBootBoost)
	if err != nil {
		return nil, err
	}

	batchTimeout, err := duration(v, keyMetricsBatchTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:          level,
		Root:              filepath.Clean(root),
		Socket:            socket,
		PIDFile:           v.GetString(keyPIDFile),
		DefaultProfile:    id,
		InteractionPolicy: policy,
		HintIntervals:     intervals,
		Inputs:            v.GetStringSlice(keyInputs),
		BootBoost:         bootBoost,
		Ftrace:            v.GetBool(keyFtrace),
		Metrics: metrics.Config{
			DBPath:       v.GetString(keyMetricsDBPath),
			Enabled:      v.GetBool(keyMetricsEnabled),
			BatchSize:    v.GetInt(keyMetricsBatchSize),
			BatchTimeout: batchTimeout,
		},
		v: v,
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// hintIntervals overlays the configured intervals on the gate defaults.
// A zero interval disables rate limiting for that kind.
func hintIntervals(v *viper.Viper) (map[hint.Kind]time.Duration, error) {
	errFactory := errors.New()
	intervals := hint.NewGate().Intervals()

	for name, value := range v.GetStringMapString(keyHintIntervals) {
		kind, err := hint.ParseKind(name)
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return nil, errFactory.WithData(errors.ErrInvalidInterval, invalid(keyHintIntervals+"."+name, value))
		}
		intervals[kind] = d
	}

	return intervals, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	value := v.GetString(key)
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, errors.New().WithData(errors.ErrInvalidInterval, invalid(key, value))
	}
	return d, nil
}

type invalidValue struct {
	Field string
	Value string
}

func invalid(field, value string) invalidValue {
	return invalidValue{Field: field, Value: value}
}

// Watch reloads the configuration whenever the config file changes and
// passes each valid snapshot to callback. Invalid edits are logged and
// skipped. Watching requires a config file.
func (c *Config) Watch(ctx context.Context, callback func(Provider)) error {
	if c.v.ConfigFileUsed() == "" {
		return errors.New().WithMessage(errors.ErrMissingConfig, "no config file to watch")
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		next, err := decode(c.v)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid configuration change")
			return
		}
		next.logger = c.logger

		c.logger.Info().Str("file", e.Name).Msg("Configuration reloaded")
		callback(next)
	})
	c.v.WatchConfig()

	return nil
}

// ConfigFile returns the file the configuration was read from, if any.
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

func (c *Config) GetLogLevel() logger.LogLevel { return c.LogLevel }

func (c *Config) GetRoot() string { return c.Root }

func (c *Config) GetSocket() string { return c.Socket }

func (c *Config) GetPIDFile() string { return c.PIDFile }

func (c *Config) GetDefaultProfile() profile.ID { return c.DefaultProfile }

func (c *Config) GetInteractionPolicy() power.InteractionPolicy { return c.InteractionPolicy }

func (c *Config) GetHintIntervals() map[hint.Kind]time.Duration {
	intervals := make(map[hint.Kind]time.Duration, len(c.HintIntervals))
	for k, d := range c.HintIntervals {
		intervals[k] = d
	}
	return intervals
}

func (c *Config) GetInputs() []string { return append([]string(nil), c.Inputs...) }

func (c *Config) GetBootBoost() time.Duration { return c.BootBoost }

func (c *Config) IsFtraceEnabled() bool { return c.Ftrace }

func (c *Config) GetMetrics() metrics.Config { return c.Metrics }
