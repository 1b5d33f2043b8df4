package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8082", v.GetString("server.url"))
	assert.Equal(t, 60*time.Second, v.GetDuration("feed.reconnect_delay"))
	assert.Equal(t, 6*time.Second, v.GetDuration("notify.display"))
	assert.Equal(t, "en", v.GetString("notify.locale"))
	assert.False(t, v.GetBool("webhook.enabled"))
	assert.Equal(t, "livefeed", v.GetString("mqtt.topic_prefix"))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "server:\n  url: https://tracker.example.com\nnotify:\n  display: 3s\n  locale: de\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tracker.example.com", v.GetString("server.url"))
	assert.Equal(t, 3*time.Second, v.GetDuration("notify.display"))
	assert.Equal(t, "de", v.GetString("notify.locale"))
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, v.GetDuration("server.timeout"))
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LF_SERVER_URL", "https://env.example.com")
	t.Setenv("LF_FEED_RECONNECT_DELAY", "5s")

	v, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", v.GetString("server.url"))
	assert.Equal(t, 5*time.Second, v.GetDuration("feed.reconnect_delay"))
}

func TestViperConfig_Sub(t *testing.T) {
	t.Chdir(t.TempDir())
	v, err := Load("")
	require.NoError(t, err)

	cfg := New(v)
	webhook := cfg.Sub("webhook")
	assert.Equal(t, 10*time.Second, webhook.GetDuration("timeout"))
	assert.Equal(t, 5, webhook.GetInt("burst"))
	assert.InDelta(t, 1.0, webhook.GetFloat64("rate"), 0.0001)

	missing := cfg.Sub("nope")
	require.NotNil(t, missing)
	assert.False(t, missing.IsSet("anything"))
}

func TestViperConfig_SubKeepsDefaultsUnderPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("webhook:\n  url: http://hook.local\n"), 0o600))

	v, err := Load(path)
	require.NoError(t, err)

	webhook := New(v).Sub("webhook")
	assert.Equal(t, "http://hook.local", webhook.GetString("url"))
	assert.Equal(t, 10*time.Second, webhook.GetDuration("timeout"))
}

func TestViperConfig_NilViper(t *testing.T) {
	cfg := New(nil)
	require.NotNil(t, cfg.Viper())
	assert.Empty(t, cfg.GetString("server.url"))
}

func TestViperConfig_UnmarshalSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("webhook:\n  url: http://hook.local\n"), 0o600))
	t.Setenv("LF_WEBHOOK_BURST", "9")

	v, err := Load(path)
	require.NoError(t, err)

	var section struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
		Burst   int           `mapstructure:"burst"`
		Enabled bool          `mapstructure:"enabled"`
	}
	require.NoError(t, New(v).Sub("webhook").Unmarshal(&section))

	assert.Equal(t, "http://hook.local", section.URL)
	assert.Equal(t, 10*time.Second, section.Timeout)
	assert.Equal(t, 9, section.Burst)
	assert.False(t, section.Enabled)
}
