// control/config.go
// Author: momentics <momentics@gmail.com>
//
// viper-backed configuration for ring hosts, with an atomic snapshot store
// and hot-reload propagation when the backing file changes.

package control

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/core/ring"
	"github.com/momentics/hioload-ring/pool"
)

// EnvPrefix is the environment variable prefix, e.g. RINGDEMO_RING_CAPACITY.
const EnvPrefix = "RINGDEMO"

// ConfigName is the base name of the optional config file searched for in
// the working directory when no explicit file is given.
const ConfigName = "ringdemo"

// Config is the full host configuration.
type Config struct {
	Ring    RingConfig    `mapstructure:"ring"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RingConfig sizes the ring and picks its storage.
type RingConfig struct {
	Name        string `mapstructure:"name"`
	Capacity    uint32 `mapstructure:"capacity"`
	ElementSize int    `mapstructure:"element_size"`
	Storage     string `mapstructure:"storage"`
}

// DemoConfig drives the producer/consumer demonstration.
type DemoConfig struct {
	Total        int           `mapstructure:"total"`
	PushInterval time.Duration `mapstructure:"push_interval"`
	PopInterval  time.Duration `mapstructure:"pop_interval"`
	DropOnFull   bool          `mapstructure:"drop_on_full"`
	Affinity     []int         `mapstructure:"affinity"`
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults installs default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ring.name", "demo")
	v.SetDefault("ring.capacity", 10)
	v.SetDefault("ring.element_size", 4)
	v.SetDefault("ring.storage", pool.KindHeap)
	v.SetDefault("demo.total", 16)
	v.SetDefault("demo.push_interval", time.Second)
	v.SetDefault("demo.pop_interval", time.Second)
	v.SetDefault("demo.drop_on_full", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Load reads defaults, environment and a config file. A non-empty file must
// exist; otherwise ./ringdemo.yaml is read when present. v.ConfigFileUsed()
// reports which file, if any, was loaded.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return decode(v)
	}
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a ring and the demo depend on.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("config: "+format+": %w", append(args, api.ErrInvalidParams)...)
	}
	switch {
	case c.Ring.Name == "":
		return invalid("ring.name is empty")
	case c.Ring.Capacity < ring.MinCapacity:
		return invalid("ring.capacity %d below %d", c.Ring.Capacity, ring.MinCapacity)
	case c.Ring.ElementSize <= 0:
		return invalid("ring.element_size %d", c.Ring.ElementSize)
	case c.Ring.Storage != pool.KindHeap && c.Ring.Storage != pool.KindMmap:
		return invalid("ring.storage %q", c.Ring.Storage)
	case c.Demo.Total < 0:
		return invalid("demo.total %d", c.Demo.Total)
	case c.Demo.PushInterval < 0 || c.Demo.PopInterval < 0:
		return invalid("negative demo interval")
	case len(c.Demo.Affinity) > 2:
		return invalid("demo.affinity takes at most 2 cpus, got %d", len(c.Demo.Affinity))
	}
	return nil
}

// ConfigStore holds the current Config and notifies hooks on change.
type ConfigStore struct {
	current atomic.Pointer[Config]
	hooks   *ReloadHooks
}

// NewConfigStore seeds the store with cfg.
func NewConfigStore(cfg *Config) *ConfigStore {
	cs := &ConfigStore{hooks: NewReloadHooks()}
	cs.current.Store(cfg)
	return cs
}

// Get returns the current snapshot. Callers must not mutate it.
func (cs *ConfigStore) Get() *Config {
	return cs.current.Load()
}

// Set validates and stores cfg, then runs reload hooks synchronously.
func (cs *ConfigStore) Set(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.current.Store(cfg)
	cs.hooks.TriggerSync(cfg)
	return nil
}

// OnReload registers a listener called after every accepted change.
func (cs *ConfigStore) OnReload(fn func(*Config)) {
	cs.hooks.Register(fn)
}

// Watch re-decodes v whenever its config file changes. Invalid updates are
// passed to onError and the previous snapshot is kept.
func (cs *ConfigStore) Watch(v *viper.Viper, onError func(error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(v)
		if err == nil {
			err = cs.Set(cfg)
		}
		if err != nil && onError != nil {
			onError(err)
		}
	})
	v.WatchConfig()
}
