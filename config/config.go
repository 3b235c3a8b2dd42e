// Package config loads the settings of the countbench command.
//
// Values are layered: built-in defaults, then an optional config file,
// then COUNTBENCH_* environment variables, then command-line flags.
// Nested keys map to environment variables with underscores, so
// device.backend is set by COUNTBENCH_DEVICE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/exascience/countbench/accel"
	"github.com/exascience/countbench/bench"
)

// EnvPrefix is the prefix of environment variables.
const EnvPrefix = "COUNTBENCH"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all settings.
type Config struct {
	Iterations  int    `mapstructure:"iterations"`
	Seed        uint64 `mapstructure:"seed"`
	Bound       uint64 `mapstructure:"bound"`
	SweepLimit  int    `mapstructure:"sweep_limit"`
	Sizes       []int  `mapstructure:"sizes"`
	Verify      bool   `mapstructure:"verify"`
	MaxElements int    `mapstructure:"max_elements"`
	Output      string `mapstructure:"output"`

	Device Device `mapstructure:"device"`
	Log    Log    `mapstructure:"log"`
	Store  Store  `mapstructure:"store"`
}

// Device configures the accelerator.
type Device struct {
	Backend        string        `mapstructure:"backend"`
	ComputeUnits   int           `mapstructure:"compute_units"`
	WorkGroupSize  int           `mapstructure:"work_group_size"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	MemoryLimit    int64         `mapstructure:"memory_limit"`
}

// Log configures the logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Store configures the run history. An empty path disables it.
type Store struct {
	Path string `mapstructure:"path"`
}

var defaults = map[string]any{
	"iterations":             bench.DefaultIterations,
	"seed":                   bench.DefaultSeed,
	"bound":                  bench.DefaultBound,
	"sweep_limit":            0,
	"sizes":                  []int{},
	"verify":                 false,
	"max_elements":           0,
	"output":                 "",
	"device.backend":         "emulated",
	"device.compute_units":   0,
	"device.work_group_size": accel.DefaultWorkGroupSize,
	"device.acquire_timeout": accel.DefaultAcquireTimeout,
	"device.memory_limit":    0,
	"log.level":              "info",
	"log.format":             "console",
	"store.path":             "",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"iterations":      "iterations",
	"seed":            "seed",
	"bound":           "bound",
	"sweep-limit":     "sweep_limit",
	"sizes":           "sizes",
	"verify":          "verify",
	"max-elements":    "max_elements",
	"output":          "output",
	"device":          "device.backend",
	"compute-units":   "device.compute_units",
	"acquire-timeout": "device.acquire_timeout",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"store":           "store.path",
}

// Load reads the configuration. The file at path is optional; an empty
// path skips it. Only the flags of flags that were set on the command
// line override other sources.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks the ranges of all settings.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	check(c.Iterations > 0, "iterations must be positive, got %d", c.Iterations)
	check(c.Bound > 0, "bound must be positive")
	check(c.SweepLimit >= 0, "sweep_limit must not be negative, got %d", c.SweepLimit)
	check(c.MaxElements >= 0, "max_elements must not be negative, got %d", c.MaxElements)
	if len(c.Sizes) > 0 {
		if err := bench.Sweep(c.Sizes).Validate(); err != nil {
			problems = append(problems, "sizes: "+err.Error())
		}
	}
	check(c.Device.ComputeUnits >= 0, "device.compute_units must not be negative, got %d", c.Device.ComputeUnits)
	check(c.Device.WorkGroupSize >= 0, "device.work_group_size must not be negative, got %d", c.Device.WorkGroupSize)
	check(c.Device.AcquireTimeout >= 0, "device.acquire_timeout must not be negative, got %v", c.Device.AcquireTimeout)
	check(c.Device.MemoryLimit >= 0, "device.memory_limit must not be negative, got %d", c.Device.MemoryLimit)
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	check(c.Log.Format == "json" || c.Log.Format == "console",
		"log.format must be json or console, got %q", c.Log.Format)
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Sweep returns the explicit sizes if any, and otherwise the default
// sweep trimmed to SweepLimit.
func (c Config) Sweep() bench.Sweep {
	if len(c.Sizes) > 0 {
		return append(bench.Sweep(nil), c.Sizes...)
	}
	return bench.SweepUpTo(c.SweepLimit)
}

// SessionOptions returns the session options for c.
func (c Config) SessionOptions() []bench.Option {
	return []bench.Option{
		bench.WithIterations(c.Iterations),
		bench.WithSeed(c.Seed),
		bench.WithBound(c.Bound),
		bench.WithSweep(c.Sweep()),
		bench.WithVerify(c.Verify),
		bench.WithMaxElements(c.MaxElements),
	}
}

// AccelOptions returns the accelerator options for c.
func (c Config) AccelOptions(log *zap.Logger) accel.Options {
	return accel.Options{
		ComputeUnits:   c.Device.ComputeUnits,
		WorkGroupSize:  c.Device.WorkGroupSize,
		AcquireTimeout: c.Device.AcquireTimeout,
		MemoryLimit:    c.Device.MemoryLimit,
		Logger:         log,
	}
}

// NewLogger builds a logger writing to w in the configured format and
// level.
func (c Config) NewLogger(w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	var enc zapcore.Encoder
	switch c.Log.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)), nil
}
