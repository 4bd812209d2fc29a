// Package config loads the sidecar's configuration from the
// environment.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultQueueCapacity    = 1024
	defaultListenerPort     = 8254
	defaultDialTimeout      = 5 * time.Second
	defaultExtensionName    = "logship"
	defaultBufferingTimeout = 25
	defaultBufferingBytes   = 262144
	defaultBufferingItems   = 1000
)

// Config is the sidecar's runtime configuration.
type Config struct {
	// LogStoreAddress is the downstream log store in host:port form.
	// Its absence is a startup-fatal configuration error.
	LogStoreAddress string `mapstructure:"log-store-address"`
	// RuntimeAPI is the host's extensions API endpoint (host:port).
	RuntimeAPI    string        `mapstructure:"runtime-api"`
	ExtensionName string        `mapstructure:"extension-name"`
	ListenerPort  int           `mapstructure:"listener-port"`
	QueueCapacity int           `mapstructure:"queue-capacity"`
	DialTimeout   time.Duration `mapstructure:"dial-timeout"`
	LogLevel      string        `mapstructure:"log-level"`

	Buffering BufferingConfig `mapstructure:",squash"`
}

// BufferingConfig holds the thresholds the host uses to group records
// into batches before delivering them.
type BufferingConfig struct {
	TimeoutMS int `mapstructure:"buffering-timeout-ms"`
	MaxBytes  int `mapstructure:"buffering-max-bytes"`
	MaxItems  int `mapstructure:"buffering-max-items"`
}

// Load reads configuration from the environment. LOGSHIP_-prefixed
// variables override the defaults; LOG_STORE_ADDRESS and
// AWS_LAMBDA_RUNTIME_API predate the prefix and are bound as-is.
func Load() (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix("LOGSHIP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("extension-name", defaultExtensionName)
	v.SetDefault("listener-port", defaultListenerPort)
	v.SetDefault("queue-capacity", defaultQueueCapacity)
	v.SetDefault("dial-timeout", defaultDialTimeout)
	v.SetDefault("log-level", "info")
	v.SetDefault("buffering-timeout-ms", defaultBufferingTimeout)
	v.SetDefault("buffering-max-bytes", defaultBufferingBytes)
	v.SetDefault("buffering-max-items", defaultBufferingItems)

	if err := v.BindEnv("log-store-address", "LOG_STORE_ADDRESS"); err != nil {
		return cfg, err
	}
	if err := v.BindEnv("runtime-api", "AWS_LAMBDA_RUNTIME_API"); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if cfg.LogStoreAddress == "" {
		return cfg, fmt.Errorf("config: LOG_STORE_ADDRESS is not set")
	}
	if _, _, err := net.SplitHostPort(cfg.LogStoreAddress); err != nil {
		return cfg, fmt.Errorf("config: invalid LOG_STORE_ADDRESS %q: %w", cfg.LogStoreAddress, err)
	}
	if cfg.RuntimeAPI == "" {
		return cfg, fmt.Errorf("config: AWS_LAMBDA_RUNTIME_API is not set")
	}
	if cfg.ListenerPort <= 0 || cfg.ListenerPort > 65535 {
		return cfg, fmt.Errorf("config: invalid listener port %d", cfg.ListenerPort)
	}
	if cfg.QueueCapacity <= 0 {
		return cfg, fmt.Errorf("config: queue capacity must be positive, got %d", cfg.QueueCapacity)
	}
	return cfg, nil
}
