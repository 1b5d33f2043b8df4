package mqtt

import "time"

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL   string        `mapstructure:"broker_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID    string        `mapstructure:"client_id"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	QoS         byte          `mapstructure:"qos"`
	Retain      bool          `mapstructure:"retain"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// RetryInterval spaces connection attempts while the broker has never
	// been reached. Lost connections use paho's auto-reconnect.
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// Home Assistant device_tracker auto-discovery.
	HADiscovery       bool   `mapstructure:"ha_discovery"`
	HADiscoveryPrefix string `mapstructure:"ha_discovery_prefix"`
}

// DefaultConfig returns the publisher defaults. The broker URL is empty,
// which disables publishing.
func DefaultConfig() Config {
	return Config{
		ClientID:          "livefeed",
		TopicPrefix:       "livefeed",
		QoS:               1,
		Timeout:           10 * time.Second,
		RetryInterval:     10 * time.Second,
		HADiscoveryPrefix: "homeassistant",
	}
}
