package main

import (
	"fmt"

	"github.com/HerbHall/livefeed/internal/api"
	"github.com/HerbHall/livefeed/internal/config"
	"github.com/HerbHall/livefeed/internal/feed"
	"github.com/HerbHall/livefeed/internal/history"
	"github.com/HerbHall/livefeed/internal/mqtt"
	"github.com/HerbHall/livefeed/internal/notify"
	"github.com/HerbHall/livefeed/internal/webhook"
)

// settings is every component configuration resolved from one config tree.
// Defaults come from config.SetDefaults.
type settings struct {
	API           api.Config
	Feed          feed.Config
	Notify        notify.Config
	History       history.Config
	Webhook       webhook.Config
	MQTT          mqtt.Config
	MetricsListen string
}

func loadSettings(cfg *config.ViperConfig) (settings, error) {
	s := settings{MetricsListen: cfg.GetString("metrics.listen")}

	sections := []struct {
		key    string
		target any
	}{
		{"server", &s.API},
		{"feed", &s.Feed},
		{"notify", &s.Notify},
		{"history", &s.History},
		{"webhook", &s.Webhook},
		{"mqtt", &s.MQTT},
	}
	for _, sec := range sections {
		if err := cfg.Sub(sec.key).Unmarshal(sec.target); err != nil {
			return settings{}, fmt.Errorf("decode %s settings: %w", sec.key, err)
		}
	}
	return s, nil
}
