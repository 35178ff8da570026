// Package config loads YAML configuration for tio relays and tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/appnet-org/tio/pkg/logging"
)

// Config is the root configuration.
type Config struct {
	Log     logging.Config `mapstructure:"log"`
	Relay   RelayConfig    `mapstructure:"relay"`
	Capture CaptureConfig  `mapstructure:"capture"`
}

// RelayConfig configures a forwarding relay.
type RelayConfig struct {
	// Listen is the UDP address the relay receives packets on
	Listen string `mapstructure:"listen"`
	// Routes maps a hop number to the UDP address packets for that hop go to
	Routes map[string]string `mapstructure:"routes"`
	// Deliver receives packets that arrive with an empty routing trailer.
	// Such packets are dropped when it is empty.
	Deliver string `mapstructure:"deliver"`
	// Upstream receives return traffic from peers listed in Routes
	Upstream string `mapstructure:"upstream"`
	// Balancer picks among resolved addresses: random or first
	Balancer string `mapstructure:"balancer"`
	// StatsInterval controls periodic stats logging; 0 disables it
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// CaptureConfig enables packet capture to a file.
type CaptureConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Log: logging.DefaultConfig(),
		Relay: RelayConfig{
			Listen:        ":7855",
			Routes:        map[string]string{},
			Balancer:      "random",
			StatsInterval: 30 * time.Second,
		},
		Capture: CaptureConfig{
			Path:   "capture/relay.tiocap",
			Format: "proto",
		},
	}
}

// Load reads configuration from path (if non-empty), otherwise it searches
// common locations. Environment variables use the prefix TIO with `.`
// replaced by `_`, for example TIO_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("relay.listen", cfg.Relay.Listen)
	v.SetDefault("relay.deliver", cfg.Relay.Deliver)
	v.SetDefault("relay.upstream", cfg.Relay.Upstream)
	v.SetDefault("relay.balancer", cfg.Relay.Balancer)
	v.SetDefault("relay.stats_interval", cfg.Relay.StatsInterval)
	v.SetDefault("capture.enable", cfg.Capture.Enable)
	v.SetDefault("capture.path", cfg.Capture.Path)
	v.SetDefault("capture.format", cfg.Capture.Format)

	if path == "" {
		path = os.Getenv("TIO_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tio")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tio"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes fields and rejects invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	switch c.Relay.Balancer {
	case "":
		c.Relay.Balancer = "random"
	case "random", "first":
	default:
		return fmt.Errorf("invalid relay.balancer: %q", c.Relay.Balancer)
	}
	if c.Relay.StatsInterval < 0 {
		return fmt.Errorf("invalid relay.stats_interval: %s", c.Relay.StatsInterval)
	}
	if _, err := c.Relay.HopRoutes(); err != nil {
		return err
	}

	if c.Capture.Enable && strings.TrimSpace(c.Capture.Path) == "" {
		return errors.New("capture.path is required when capture is enabled")
	}
	return nil
}

// HopRoutes converts the route table keys to hop bytes.
func (r RelayConfig) HopRoutes() (map[byte]string, error) {
	routes := make(map[byte]string, len(r.Routes))
	for key, addr := range r.Routes {
		hop, err := strconv.ParseUint(strings.TrimSpace(key), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid relay.routes key %q: hop must be 0-255", key)
		}
		if strings.TrimSpace(addr) == "" {
			return nil, fmt.Errorf("relay.routes[%s]: empty address", key)
		}
		routes[byte(hop)] = addr
	}
	return routes, nil
}
