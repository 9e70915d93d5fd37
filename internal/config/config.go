// Package config loads patchbay settings from patchbay.yaml, PATCHBAY_*
// environment variables and bound command flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = "patchbay"

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type EngineConfig struct {
	FPS      int    `mapstructure:"fps"`
	Ordering string `mapstructure:"ordering"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	// NodeBudget bounds one script run, e.g. "50ms". Empty disables it.
	NodeBudget string `mapstructure:"node_budget"`
	ProtoCache int    `mapstructure:"proto_cache"`
	NoiseSeed  int64  `mapstructure:"noise_seed"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// StateKey seals node scripts in the stored patch (base64, 32 bytes).
	StateKey string `mapstructure:"state_key"`
	// StateFallbackKeys still open scripts sealed with previous keys.
	StateFallbackKeys []string `mapstructure:"state_fallback_keys"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	// Addr enables the Redis console feed and patch store when set.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	Capacity int    `mapstructure:"capacity"`
}

type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// New returns a viper instance with defaults and environment binding.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("engine.fps", 60)
	v.SetDefault("engine.ordering", "declaration")
	v.SetDefault("engine.width", 200)
	v.SetDefault("engine.height", 100)
	v.SetDefault("engine.proto_cache", 256)
	v.SetDefault("engine.noise_seed", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("redis.prefix", "patchbay:")
	v.SetDefault("redis.capacity", 50)
	v.SetDefault("tracing.sample_rate", 0.01)

	v.SetEnvPrefix("PATCHBAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or patchbay.yaml in the working directory when path is
// empty. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string
	if c.Engine.FPS <= 0 || c.Engine.FPS > 240 {
		warnings = append(warnings, fmt.Sprintf("engine.fps %d is outside [1, 240]", c.Engine.FPS))
	}
	switch c.Engine.Ordering {
	case "", "declaration", "topological":
	default:
		warnings = append(warnings, fmt.Sprintf("engine.ordering %q is unknown", c.Engine.Ordering))
	}
	if c.Engine.Width <= 0 || c.Engine.Height <= 0 {
		warnings = append(warnings, fmt.Sprintf("engine surface size %dx%d is empty", c.Engine.Width, c.Engine.Height))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	return warnings
}
