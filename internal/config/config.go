// Package config loads livefeed settings with Viper and exposes them through
// a small typed accessor.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads livefeed.yaml (or configPath when set) on top of the built-in
// defaults. Environment variables override both: LF_SERVER_URL sets
// server.url.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("livefeed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/livefeed")
	}

	v.SetEnvPrefix("LF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file; defaults and env only.
	}

	return v, nil
}

// SetDefaults registers every known key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8082")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("feed.reconnect_delay", "60s")
	v.SetDefault("feed.handshake_timeout", "30s")
	v.SetDefault("feed.read_limit", 4<<20)
	v.SetDefault("notify.display", "6s")
	v.SetDefault("notify.locale", "en")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention", "168h")
	v.SetDefault("history.maintenance_interval", "1h")
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.rate", 1.0)
	v.SetDefault("webhook.burst", 5)
	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "livefeed")
	v.SetDefault("mqtt.topic_prefix", "livefeed")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.timeout", "10s")
	v.SetDefault("mqtt.retry_interval", "10s")
	v.SetDefault("mqtt.ha_discovery", false)
	v.SetDefault("mqtt.ha_discovery_prefix", "homeassistant")
}

// ViperConfig wraps a Viper instance so components can read their own
// section without knowing the full key path.
type ViperConfig struct {
	v      *viper.Viper
	prefix string
}

// New creates a ViperConfig backed by v. A nil v yields an empty config.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Unmarshal decodes the config (or the section of a Sub view) into target
// using its mapstructure tags. Defaults and environment overrides are
// included for every key.
func (c *ViperConfig) Unmarshal(target any) error {
	if c.prefix == "" {
		return c.v.Unmarshal(target)
	}

	// viper.UnmarshalKey drops defaults for a section that the config file
	// sets only partially, so decode from the merged settings instead.
	section := c.v.AllSettings()
	for _, k := range strings.Split(strings.TrimSuffix(c.prefix, "."), ".") {
		section, _ = section[k].(map[string]any)
	}
	sub := viper.New()
	if err := sub.MergeConfigMap(section); err != nil {
		return fmt.Errorf("config section %q: %w", strings.TrimSuffix(c.prefix, "."), err)
	}
	return sub.Unmarshal(target)
}

func (c *ViperConfig) key(k string) string {
	return c.prefix + k
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(c.key(key))
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(c.key(key))
}

func (c *ViperConfig) GetFloat64(key string) float64 {
	return c.v.GetFloat64(c.key(key))
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(c.key(key))
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(c.key(key))
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(c.key(key))
}

// Sub returns a view of the section under key. Unlike viper.Sub, the view
// still sees defaults and environment overrides for the section.
func (c *ViperConfig) Sub(key string) *ViperConfig {
	return &ViperConfig{v: c.v, prefix: c.key(key) + "."}
}

// Viper returns the underlying Viper instance.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}
